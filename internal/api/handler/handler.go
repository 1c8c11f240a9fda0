package handler

import (
	"net/http"
	"time"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/config"
	"pairchat/backend/internal/media"
	"pairchat/backend/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Handler містить посилання на ChatHub, координатор доставки та сховища.
type Handler struct {
	Hub         *chathub.ManagerService
	Coordinator *chathub.Coordinator
	Storage     storage.Storage
	Media       *media.Service
	Config      *config.Config

	log       zerolog.Logger
	startedAt time.Time
	upgrader  websocket.Upgrader
}

func NewHandler(cfg *config.Config, hub *chathub.ManagerService, coordinator *chathub.Coordinator, store storage.Storage, mediaSvc *media.Service, logger zerolog.Logger) *Handler {
	h := &Handler{
		Hub:         hub,
		Coordinator: coordinator,
		Storage:     store,
		Media:       mediaSvc,
		Config:      cfg,
		log:         logger.With().Str("component", "http").Logger(),
		startedAt:   time.Now(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return cfg.AllowOrigin(r.Header.Get("Origin"))
		},
	}
	return h
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pairchat/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Storage is everything the chat core needs from persistence: the user
// directory, the conversation store and the message store.
//
// Lookups return (nil, nil) when the record does not exist.
type Storage interface {
	Ping(ctx context.Context) error

	// User directory
	UpsertUser(ctx context.Context, user *models.User) error
	SetUserOnline(ctx context.Context, code string, online bool) error
	ListUsers(ctx context.Context) ([]models.User, error)

	// Conversation store
	GetOrCreateConversation(ctx context.Context, a, b string) (*models.Conversation, error)
	FindConversation(ctx context.Context, a, b string) (*models.Conversation, error)

	// Message store
	CreateMessage(ctx context.Context, msg *models.Message) error
	FindMessage(ctx context.Context, id string) (*models.Message, error)
	FindUndelivered(ctx context.Context, to string) ([]models.Message, error)
	UpdateMessageStatus(ctx context.Context, id string, status models.MessageStatus, from ...models.MessageStatus) (bool, error)
	ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]models.Message, error)
}

// Service реалізує Storage поверх GORM (PostgreSQL або SQLite).
type Service struct {
	DB *gorm.DB
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Ping checks the database connection.
func (s *Service) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return fmt.Errorf("storage: ping: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// UpsertUser creates the user or overwrites its name and online flag.
func (s *Service) UpsertUser(ctx context.Context, user *models.User) error {
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "online", "updated_at"}),
		}).
		Create(user).Error
	if err != nil {
		return fmt.Errorf("storage: upsert user %s: %w", user.Code, err)
	}
	return nil
}

// SetUserOnline flips the online flag, creating the user on first contact.
// An existing user's name is left untouched.
func (s *Service) SetUserOnline(ctx context.Context, code string, online bool) error {
	user := models.User{Code: code, Online: online}
	err := s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{"online", "updated_at"}),
		}).
		Create(&user).Error
	if err != nil {
		return fmt.Errorf("storage: set user %s online=%t: %w", code, online, err)
	}
	return nil
}

// ListUsers returns all users ordered by code.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Order("code ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("storage: list users: %w", err)
	}
	return users, nil
}

// GetOrCreateConversation returns the single conversation for the pair,
// creating it if needed. Concurrent creators converge on the same row through
// the unique participants_key index.
func (s *Service) GetOrCreateConversation(ctx context.Context, a, b string) (*models.Conversation, error) {
	convo := models.NewConversation(a, b)
	db := s.DB.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "participants_key"}},
		DoNothing: true,
	}).Create(convo).Error
	if err != nil {
		return nil, fmt.Errorf("storage: create conversation %s: %w", convo.ParticipantsKey, err)
	}

	var stored models.Conversation
	if err := db.Where("participants_key = ?", convo.ParticipantsKey).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("storage: load conversation %s: %w", convo.ParticipantsKey, err)
	}
	return &stored, nil
}

// FindConversation looks up the pair's conversation without creating it.
func (s *Service) FindConversation(ctx context.Context, a, b string) (*models.Conversation, error) {
	var convo models.Conversation
	err := s.DB.WithContext(ctx).
		Where("participants_key = ?", models.ConversationKey(a, b)).
		First(&convo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: find conversation: %w", err)
	}
	return &convo, nil
}

// CreateMessage persists msg and fills in its ID.
func (s *Service) CreateMessage(ctx context.Context, msg *models.Message) error {
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("storage: create message in %s: %w", msg.ConversationID, err)
	}
	return nil
}

// FindMessage returns the message or (nil, nil) when it does not exist.
func (s *Service) FindMessage(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	err := s.DB.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: find message %s: %w", id, err)
	}
	return &msg, nil
}

// FindUndelivered returns messages addressed to code that are still "sent",
// oldest timestamp first.
func (s *Service) FindUndelivered(ctx context.Context, to string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.DB.WithContext(ctx).
		Where("to_code = ? AND status = ?", models.NormalizeCode(to), models.StatusSent).
		Order("sent_at ASC").
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("storage: undelivered for %s: %w", to, err)
	}
	return msgs, nil
}

// UpdateMessageStatus sets the status in a single conditional statement.
// With no from-statuses the update is unconditional; otherwise it only applies
// while the current status is one of them. It reports whether a row matched.
func (s *Service) UpdateMessageStatus(ctx context.Context, id string, status models.MessageStatus, from ...models.MessageStatus) (bool, error) {
	q := s.DB.WithContext(ctx).Model(&models.Message{}).Where("id = ?", id)
	if len(from) > 0 {
		q = q.Where("status IN ?", from)
	}
	result := q.Update("status", status)
	if result.Error != nil {
		return false, fmt.Errorf("storage: set message %s %s: %w", id, status, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ListMessages returns up to limit messages of a conversation ordered by
// timestamp ascending, optionally only those strictly before a point in time.
func (s *Service) ListMessages(ctx context.Context, conversationID string, before *time.Time, limit int) ([]models.Message, error) {
	q := s.DB.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if before != nil {
		q = q.Where("sent_at < ?", before.UTC())
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var msgs []models.Message
	if err := q.Order("sent_at ASC").Find(&msgs).Error; err != nil {
		return nil, fmt.Errorf("storage: list messages %s: %w", conversationID, err)
	}
	return msgs, nil
}

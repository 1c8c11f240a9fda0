package handler

import (
	"errors"
	"net/http"
	"strings"

	"pairchat/backend/internal/media"
	"pairchat/backend/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Upload приймає multipart-поле "file" і зберігає зображення.
func (h *Handler) Upload(c *gin.Context) {
	// Room for the multipart framing on top of the file itself.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.Media.MaxBytes()+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			h.uploadRejected(c, h.Media.TooLarge())
			return
		}
		metrics.Uploads.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		metrics.Uploads.WithLabelValues("failed").Inc()
		h.log.Error().Err(err).Msg("open uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}
	defer f.Close()

	res, err := h.Media.Upload(c.Request.Context(), f, fh.Header.Get("Content-Type"))
	if err != nil {
		var uerr *media.UploadError
		if errors.As(err, &uerr) {
			h.uploadRejected(c, uerr)
			return
		}
		metrics.Uploads.WithLabelValues("failed").Inc()
		h.log.Error().Err(err).Str("filename", fh.Filename).Msg("upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}

	metrics.Uploads.WithLabelValues("ok").Inc()
	h.log.Info().Str("path", res.Path).Str("mime", res.Mime).Int64("size", res.Size).Msg("file uploaded")
	c.JSON(http.StatusOK, res)
}

func (h *Handler) uploadRejected(c *gin.Context, uerr *media.UploadError) {
	metrics.Uploads.WithLabelValues("rejected").Inc()
	h.log.Warn().Str("code", uerr.Code).Msg(uerr.Message)
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Upload error",
		"code":    uerr.Code,
		"message": uerr.Message,
	})
}

// Package media validates image uploads and hands them to a blob store.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"
	_ "golang.org/x/image/webp"
)

// Upload error codes reported to clients.
const (
	CodeFileTooLarge   = "LIMIT_FILE_SIZE"
	CodeUnexpectedFile = "LIMIT_UNEXPECTED_FILE"
)

// UploadError is a client mistake: the file is too large or not an allowed image.
type UploadError struct {
	Code    string
	Message string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("media: %s: %s", e.Code, e.Message)
}

// Result describes a stored upload. Width and Height are nil when the format
// could not be decoded (svg, heic, avif).
type Result struct {
	URL      string `json:"url"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
	Mime     string `json:"mime"`
	Width    *int   `json:"width"`
	Height   *int   `json:"height"`
	Filename string `json:"filename"`
}

// Info is what Inspect learns from the file contents.
type Info struct {
	Mime      string
	Extension string
	Width     int
	Height    int
}

// Inspect sniffs the content type and, for raster formats, the dimensions.
func Inspect(data []byte) Info {
	mt := mimetype.Detect(data)
	info := Info{Mime: mt.String(), Extension: mt.Extension()}
	if i := strings.IndexByte(info.Mime, ';'); i >= 0 {
		info.Mime = strings.TrimSpace(info.Mime[:i])
	}

	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		info.Width, info.Height = cfg.Width, cfg.Height
	}
	return info
}

// Service enforces the upload policy in front of a Store.
type Service struct {
	store    Store
	maxBytes int64
	allowed  []string
}

func NewService(store Store, maxBytes int64, allowed []string) *Service {
	return &Service{store: store, maxBytes: maxBytes, allowed: allowed}
}

// MaxBytes is the size limit for one file.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

// TooLarge is the error for a file over MaxBytes.
func (s *Service) TooLarge() *UploadError {
	return &UploadError{
		Code:    CodeFileTooLarge,
		Message: fmt.Sprintf("File too large. Max %d MB.", s.maxBytes/(1024*1024)),
	}
}

// Upload reads the whole file, checks size and type, and stores it under a
// fresh name. declaredMime is the multipart Content-Type, used only when
// sniffing cannot tell.
func (s *Service) Upload(ctx context.Context, r io.Reader, declaredMime string) (*Result, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("media: read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, s.TooLarge()
	}

	info := Inspect(data)
	mime, ok := s.match(data, info.Mime, declaredMime)
	if !ok {
		return nil, &UploadError{
			Code:    CodeUnexpectedFile,
			Message: "Unsupported file type: " + info.Mime,
		}
	}

	name := strings.ToLower(ulid.Make().String()) + extensionFor(mime, info.Extension)
	obj, err := s.store.Put(ctx, name, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	res := &Result{
		URL:      obj.URL,
		Path:     obj.Path,
		Size:     int64(len(data)),
		Mime:     mime,
		Filename: name,
	}
	if info.Width > 0 && info.Height > 0 {
		w, h := info.Width, info.Height
		res.Width, res.Height = &w, &h
	}
	return res, nil
}

// match returns the allowed MIME type the content satisfies.
func (s *Service) match(data []byte, sniffed, declared string) (string, bool) {
	mt := mimetype.Detect(data)
	for _, allowed := range s.allowed {
		if mt.Is(allowed) {
			return allowed, true
		}
	}
	// Sniffing gives up on some containers; trust the declared type only then.
	if sniffed == "application/octet-stream" {
		declared = strings.ToLower(strings.TrimSpace(declared))
		for _, allowed := range s.allowed {
			if declared == allowed {
				return allowed, true
			}
		}
	}
	return "", false
}

func extensionFor(mime, sniffedExt string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/svg+xml":
		return ".svg"
	}
	if sniffedExt != "" {
		return sniffedExt
	}
	if i := strings.IndexByte(mime, '/'); i >= 0 {
		return "." + strings.TrimSuffix(mime[i+1:], "+xml")
	}
	return ""
}

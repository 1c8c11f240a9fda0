package media_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pairchat/backend/internal/config"
	"pairchat/backend/internal/media"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func allowedTypes() []string {
	return strings.Split(config.DefaultAllowedImageMIME, ",")
}

type failingStore struct{}

func (failingStore) Put(context.Context, string, io.Reader) (media.Object, error) {
	return media.Object{}, errors.New("disk full")
}

func TestInspect(t *testing.T) {
	info := media.Inspect(pngBytes(t, 7, 3))
	assert.Equal(t, "image/png", info.Mime)
	assert.Equal(t, ".png", info.Extension)
	assert.Equal(t, 7, info.Width)
	assert.Equal(t, 3, info.Height)

	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, image.NewPaletted(image.Rect(0, 0, 5, 9), color.Palette{color.Black, color.White}), nil))
	info = media.Inspect(buf.Bytes())
	assert.Equal(t, "image/gif", info.Mime)
	assert.Equal(t, 5, info.Width)
	assert.Equal(t, 9, info.Height)

	info = media.Inspect([]byte("hello there"))
	assert.Equal(t, "text/plain", info.Mime)
	assert.Zero(t, info.Width)
}

func TestService_UploadPNG(t *testing.T) {
	dir := t.TempDir()
	svc := media.NewService(media.NewLocalStore(dir, "http://localhost:4000/"), 1024*1024, allowedTypes())

	data := pngBytes(t, 10, 20)
	res, err := svc.Upload(context.Background(), bytes.NewReader(data), "application/octet-stream")
	require.NoError(t, err)

	assert.Equal(t, "image/png", res.Mime)
	assert.Equal(t, int64(len(data)), res.Size)
	require.NotNil(t, res.Width)
	require.NotNil(t, res.Height)
	assert.Equal(t, 10, *res.Width)
	assert.Equal(t, 20, *res.Height)
	assert.True(t, strings.HasSuffix(res.Filename, ".png"))
	assert.Equal(t, "uploads/"+res.Filename, res.Path)
	assert.Equal(t, "http://localhost:4000/uploads/"+res.Filename, res.URL)

	stored, err := os.ReadFile(filepath.Join(dir, res.Filename))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
}

func TestService_UploadSVGHasNoDimensions(t *testing.T) {
	svc := media.NewService(media.NewLocalStore(t.TempDir(), "http://x"), 1024*1024, allowedTypes())

	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`
	res, err := svc.Upload(context.Background(), strings.NewReader(svg), "image/svg+xml")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", res.Mime)
	assert.Nil(t, res.Width)
	assert.Nil(t, res.Height)
	assert.True(t, strings.HasSuffix(res.Filename, ".svg"))
}

func TestService_UploadTooLarge(t *testing.T) {
	svc := media.NewService(media.NewLocalStore(t.TempDir(), "http://x"), 2*1024*1024, allowedTypes())

	_, err := svc.Upload(context.Background(), bytes.NewReader(make([]byte, 2*1024*1024+1)), "image/png")

	var uerr *media.UploadError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, media.CodeFileTooLarge, uerr.Code)
	assert.Equal(t, "File too large. Max 2 MB.", uerr.Message)
}

func TestService_UploadRejectsUnsupportedType(t *testing.T) {
	svc := media.NewService(media.NewLocalStore(t.TempDir(), "http://x"), 1024*1024, []string{"image/png"})

	tests := []struct {
		name     string
		data     []byte
		declared string
	}{
		{name: "pdf", data: []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n"), declared: "application/pdf"},
		{name: "lying text", data: []byte("just text"), declared: "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(context.Background(), bytes.NewReader(tt.data), tt.declared)
			var uerr *media.UploadError
			require.ErrorAs(t, err, &uerr)
			assert.Equal(t, media.CodeUnexpectedFile, uerr.Code)
			assert.Contains(t, uerr.Message, "Unsupported file type")
		})
	}
}

func TestService_UploadStoreFailure(t *testing.T) {
	svc := media.NewService(failingStore{}, 1024*1024, allowedTypes())

	_, err := svc.Upload(context.Background(), bytes.NewReader(pngBytes(t, 1, 1)), "image/png")
	require.Error(t, err)
	var uerr *media.UploadError
	assert.False(t, errors.As(err, &uerr))
}

func TestLocalStore_RejectsPathTraversal(t *testing.T) {
	store := media.NewLocalStore(t.TempDir(), "http://x")
	_, err := store.Put(context.Background(), "../escape.png", strings.NewReader("x"))
	assert.Error(t, err)
}

// Package storage keeps uploaded product media on local disk or in Cloudinary.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("Unsupported file type")
	ErrFileTooLarge    = errors.New("File too large")
)

// Kind is the media folder a file is stored in
type Kind string

const (
	KindImage Kind = "images"
	KindModel Kind = "models"
)

// Form fields that carry product media, with the most files each accepts
const (
	FieldThumbnail = "thumbnail"
	FieldImages    = "images"
	FieldModel     = "model"
)

// FieldLimits maps each media form field to its maximum file count
var FieldLimits = map[string]int{
	FieldThumbnail: 1,
	FieldImages:    5,
	FieldModel:     1,
}

// KindForField returns the folder files uploaded under a form field go to
func KindForField(field string) Kind {
	if field == FieldModel {
		return KindModel
	}
	return KindImage
}

// Store persists media and hands back its public URL
type Store interface {
	Save(ctx context.Context, kind Kind, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// Accept reports whether a file may be uploaded, judged by its MIME type
// or, failing that, its extension.
func Accept(filename, contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case strings.HasPrefix(ct, "image/"),
		ct == "application/octet-stream",
		ct == "model/gltf-binary",
		ct == "model/gltf+json":
		return true
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".glb", ".gltf":
		return true
	}
	return false
}

// FileName returns the stored name for an upload: a uuid plus the original extension
func FileName(original string) string {
	return uuid.NewString() + strings.ToLower(filepath.Ext(original))
}

// SaveFile checks an uploaded multipart file against the filter and size
// limit and stores it.
func SaveFile(ctx context.Context, s Store, kind Kind, fh *multipart.FileHeader, maxSize int64) (string, error) {
	if !Accept(fh.Filename, fh.Header.Get("Content-Type")) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, fh.Filename)
	}
	if maxSize > 0 && fh.Size > maxSize {
		return "", ErrFileTooLarge
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if maxSize > 0 {
		r = &limitedReader{r: f, remaining: maxSize}
	}
	return s.Save(ctx, kind, FileName(fh.Filename), r)
}

// limitedReader fails with ErrFileTooLarge instead of truncating
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrFileTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrFileTooLarge
	}
	return n, err
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
	"github.com/lorrc/pizza-orders-backend/internal/core/ports"
)

const maxNameLength = 100

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// DiskStore keeps uploaded menu images in a local directory.
type DiskStore struct {
	dir      string
	maxBytes int64
	now      func() time.Time
	logger   *slog.Logger
}

var _ ports.ImageStore = (*DiskStore)(nil)

// NewDiskStore creates the directory if needed. maxBytes <= 0 disables the size limit.
func NewDiskStore(dir string, maxBytes int64, logger *slog.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &DiskStore{
		dir:      dir,
		maxBytes: maxBytes,
		now:      time.Now,
		logger:   logger.With("component", "image_store"),
	}, nil
}

// Dir returns the directory served as static files.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes the content as <unix-millis><sanitized-name> and returns the stored name.
func (s *DiskStore) Save(ctx context.Context, originalName string, content io.Reader) (string, error) {
	if content == nil {
		return "", apperrors.ErrImageRequired
	}
	name := strconv.FormatInt(s.now().UnixMilli(), 10) + SanitizeFilename(originalName)

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}

	src := content
	if s.maxBytes > 0 {
		src = io.LimitReader(content, s.maxBytes+1)
	}
	n, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && s.maxBytes > 0 && n > s.maxBytes {
		tooLarge := apperrors.NewValidationErrors()
		tooLarge.Add("file", "Image is too large")
		err = tooLarge
	}
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, name))
		return "", err
	}

	s.logger.DebugContext(ctx, "image stored", "name", name, "bytes", n)
	return name, nil
}

// Delete removes a stored image. Missing files are not an error.
func (s *DiskStore) Delete(ctx context.Context, name string) error {
	if name == "" || filepath.Base(name) != name {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.WarnContext(ctx, "failed to delete image", "name", name, "error", err)
		return err
	}
	return nil
}

// SanitizeFilename keeps the base name and replaces anything outside [A-Za-z0-9._-].
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeChars.ReplaceAllString(name, "_")
	name = strings.TrimLeft(name, ".")
	if name == "" || name == "_" {
		name = "image"
	}
	if len(name) > maxNameLength {
		name = name[len(name)-maxNameLength:]
	}
	return name
}

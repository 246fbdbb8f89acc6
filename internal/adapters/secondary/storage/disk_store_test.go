package storage

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apperrors "github.com/lorrc/pizza-orders-backend/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxBytes int64) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir(), maxBytes, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	store.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return store
}

func TestDiskStore_SaveAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0)

	name, err := store.Save(ctx, "margherita.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "1700000000123margherita.png", name)

	data, err := os.ReadFile(filepath.Join(store.Dir(), name))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(ctx, name))
	_, err = os.Stat(filepath.Join(store.Dir(), name))
	assert.True(t, os.IsNotExist(err))

	// Deleting again is a no-op.
	assert.NoError(t, store.Delete(ctx, name))
}

func TestDiskStore_SameMillisecondCollision(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 0)

	_, err := store.Save(ctx, "a.png", strings.NewReader("1"))
	require.NoError(t, err)

	_, err = store.Save(ctx, "a.png", strings.NewReader("2"))
	assert.Error(t, err)
}

func TestDiskStore_RejectsOversizedImage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, 4)

	_, err := store.Save(ctx, "big.png", strings.NewReader("too-large"))
	require.Error(t, err)

	var verrs *apperrors.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Contains(t, verrs.Errors, "file")

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskStore_DeleteIgnoresPaths(t *testing.T) {
	store := newTestStore(t, 0)
	assert.NoError(t, store.Delete(context.Background(), "../etc/passwd"))
	assert.NoError(t, store.Delete(context.Background(), ""))
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pizza.png", "pizza.png"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\my pizza!.jpg`, "my_pizza_.jpg"},
		{".hidden", "hidden"},
		{"", "image"},
		{"***", "image"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
}

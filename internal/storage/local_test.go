package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/park-passes/internal/config"
)

func TestLocalStore_PutGet(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "passes/1/PP000001.png", "image/png", []byte("png")))
	b, err := s.Get(ctx, "passes/1/PP000001.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png"), b)

	_, err = s.Get(ctx, "passes/2/missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, s.Put(context.Background(), "../outside", "text/plain", nil))
	assert.Error(t, s.Put(context.Background(), "", "text/plain", nil))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}

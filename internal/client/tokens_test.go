package client

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	store := NewFileTokenStore(path)

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token, "missing file means no token")

	require.NoError(t, store.Save("abc-123"))

	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc-123", token)
}

func TestFileTokenStoreTrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	store := NewFileTokenStore(path)

	require.NoError(t, store.Save("abc-123"))

	// A hand-edited file may pick up a trailing newline.
	edited := NewFileTokenStore(path)
	token, err := edited.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc-123", token)
}

func TestMemoryTokenStore(t *testing.T) {
	store := NewMemoryTokenStore()

	token, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Save("abc"))
	token, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

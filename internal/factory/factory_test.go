package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToMemoryStorage(t *testing.T) {
	app, err := New(Config{})
	require.NoError(t, err)

	assert.NotNil(t, app.Storage)
	assert.NotNil(t, app.Service)
	assert.NotNil(t, app.Hub)
	assert.NotNil(t, app.Metrics)
	assert.NotNil(t, app.Registry)
}

func TestNewRedisRequiresConfig(t *testing.T) {
	_, err := New(Config{StorageType: StorageTypeRedis})
	assert.Error(t, err)
}

func TestNewRejectsUnknownStorageType(t *testing.T) {
	_, err := New(Config{StorageType: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestNewTestAppWiresMocks(t *testing.T) {
	app := NewTestApp()

	require.NotNil(t, app.MockClock)
	require.NotNil(t, app.MockRandom)
	assert.Same(t, app.Clock, app.MockClock)
	assert.Same(t, app.Random, app.MockRandom)
}

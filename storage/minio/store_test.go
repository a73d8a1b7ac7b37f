package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/poiesic/vibecheck/core"
	"github.com/poiesic/vibecheck/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	cfg := NewConfig()
	assert.Error(t, cfg.Validate(), "bucket is required")

	cfg = NewConfig(WithBucket("inference"), WithEndpoint("localhost:9000"), WithSSL(false))
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:9000", cfg.Endpoint)
	assert.False(t, cfg.UseSSL)

	cfg = NewConfig(WithBucket("inference"), WithEndpoint(""))
	assert.Error(t, cfg.Validate())
}

func TestNewStore(t *testing.T) {
	store, err := NewStore(NewConfig(
		WithBucket("inference"),
		WithEndpoint("localhost:9000"),
		WithCredentials("key", "secret"),
		WithRegion("us-east-1"),
	))
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, store.Close())

	_, err = NewStore(NewConfig())
	assert.Error(t, err)
}

func TestStore_UnsupportedDelimiter(t *testing.T) {
	store, err := NewStore(NewConfig(WithBucket("inference"), WithEndpoint("localhost:9000")))
	require.NoError(t, err)

	_, err = store.List(context.Background(), "Q1/", "|")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func TestWrapErr(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		err := wrapErr("get", "a.json", minio.ErrorResponse{Code: minio.NoSuchKey, Message: "missing"})
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, err, core.ErrStorage)
	})

	t.Run("transport failure", func(t *testing.T) {
		err := wrapErr("get", "a.json", errors.New("dial tcp: connection refused"))
		assert.ErrorIs(t, err, core.ErrConnectivity)
		assert.ErrorIs(t, err, core.ErrStorage)
		assert.True(t, core.IsRecoverable(err))
	})

	t.Run("other s3 error", func(t *testing.T) {
		err := wrapErr("put", "a.json", minio.ErrorResponse{Code: "AccessDenied"})
		assert.ErrorIs(t, err, core.ErrStorage)
		assert.NotErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType("Q1/x/stats.json"))
	assert.Equal(t, "application/x-ndjson", contentType("Q1/x/predictions.jsonl"))
	assert.Equal(t, "application/yaml", contentType("concepts.yml"))
	assert.Equal(t, "application/octet-stream", contentType("passages_embeddings.npy"))
}

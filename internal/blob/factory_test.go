package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appcfg "github.com/orbitha/orbitha/internal/config"
)

func observed() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return zap.New(core), logs
}

func TestNewBlobStoreLocalForced(t *testing.T) {
	logger, logs := observed()

	store, mode, err := NewBlobStore(context.Background(), appcfg.BlobConfig{Mode: appcfg.BlobModeLocal}, logger)
	require.NoError(t, err)
	assert.Equal(t, appcfg.BlobModeLocal, mode)
	assert.IsType(t, &MemoryStore{}, store)

	entries := logs.FilterMessage("blob store ready").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "forced", entries[0].ContextMap()["reason"])
}

func TestNewBlobStoreAutoEmptyS3FallsBackToLocal(t *testing.T) {
	logger, logs := observed()

	store, mode, err := NewBlobStore(context.Background(), appcfg.BlobConfig{Mode: appcfg.BlobModeAuto}, logger)
	require.NoError(t, err)
	assert.Equal(t, appcfg.BlobModeLocal, mode)
	assert.IsType(t, &MemoryStore{}, store)

	assert.Equal(t, 1, logs.FilterField(zap.String("code", "s3_not_configured")).Len())
	assert.Equal(t, 1, logs.FilterField(zap.String("reason", "auto, S3 not configured")).Len())
}

func TestNewBlobStoreAutoPartialConfigWarns(t *testing.T) {
	logger, logs := observed()

	_, mode, err := NewBlobStore(context.Background(), appcfg.BlobConfig{
		Mode: appcfg.BlobModeAuto,
		S3:   appcfg.S3Config{Endpoint: "https://s3.example.com", SecretAccessKey: "shh"},
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, appcfg.BlobModeLocal, mode)

	warn := logs.FilterField(zap.String("code", "s3_partial_config")).All()
	require.Len(t, warn, 1)
	assert.Equal(t, zap.WarnLevel, warn[0].Level)
	assert.NotContains(t, warn[0].ContextMap()["s3"], "shh")
}

func TestNewBlobStoreAutoConfiguredUsesS3(t *testing.T) {
	logger, _ := observed()

	store, mode, err := NewBlobStore(context.Background(), appcfg.BlobConfig{
		Mode: appcfg.BlobModeAuto,
		S3: appcfg.S3Config{
			Endpoint:        "http://127.0.0.1:9000",
			Region:          "sa-east-1",
			Bucket:          "meal-photos",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
		},
	}, logger)
	require.NoError(t, err)
	assert.Equal(t, appcfg.BlobModeS3, mode)
	assert.IsType(t, &S3Store{}, store)
}

func TestNewBlobStoreS3MissingRequiredReturnsError(t *testing.T) {
	logger, _ := observed()

	store, mode, err := NewBlobStore(context.Background(), appcfg.BlobConfig{
		Mode: appcfg.BlobModeS3,
		S3:   appcfg.S3Config{Endpoint: "https://s3.example.com"},
	}, logger)
	require.Error(t, err)
	assert.Nil(t, store)
	assert.Empty(t, mode)
	assert.Contains(t, err.Error(), "missing required config")
}

func TestNewBlobStoreUnknownMode(t *testing.T) {
	logger, _ := observed()

	_, _, err := NewBlobStore(context.Background(), appcfg.BlobConfig{Mode: "ftp"}, logger)
	assert.ErrorContains(t, err, "unsupported blob mode")
}

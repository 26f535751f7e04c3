package storage_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/audiolens/component"
	"github.com/kbukum/audiolens/logger"
	"github.com/kbukum/audiolens/storage"
	_ "github.com/kbukum/audiolens/storage/local"
	"github.com/kbukum/audiolens/storage/memory"
)

func TestConfigDefaults(t *testing.T) {
	cfg := storage.Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, storage.ProviderLocal, cfg.Provider)
	assert.Equal(t, "media-uploads", cfg.Bucket)
	assert.Equal(t, storage.DefaultMaxFileSize, cfg.MaxFileSize)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr string
	}{
		{"supabase needs url and key", storage.Config{Provider: storage.ProviderSupabase, Bucket: "b"}, "url is required"},
		{"s3 needs region", storage.Config{Provider: storage.ProviderS3, Bucket: "b"}, "region is required"},
		{"unknown provider", storage.Config{Provider: "ftp"}, "unsupported provider"},
		{"memory needs nothing", storage.Config{Provider: storage.ProviderMemory}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewUsesRegisteredFactory(t *testing.T) {
	s, err := storage.New(storage.Config{Provider: storage.ProviderLocal, BasePath: t.TempDir()}, logger.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, s.Upload(ctx, "audio_1.mp3", strings.NewReader("id3")))
	ok, err := s.Exists(ctx, "audio_1.mp3")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewRejectsUnlinkedProvider(t *testing.T) {
	_, err := storage.New(storage.Config{Provider: storage.ProviderS3, Bucket: "b", Region: "eu-west-1"}, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not linked")
}

func TestIsNotFound(t *testing.T) {
	s := memory.New()
	_, err := s.Download(context.Background(), "missing.mp3")
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))
	assert.False(t, storage.IsNotFound(fmt.Errorf("timeout")))
}

func TestComponentLifecycle(t *testing.T) {
	c := storage.NewComponent(storage.Config{Provider: storage.ProviderMemory}, logger.Nop())
	ctx := context.Background()

	assert.Equal(t, component.StatusUnhealthy, c.Health(ctx).Status)
	require.NoError(t, c.Start(ctx))
	assert.Equal(t, component.StatusHealthy, c.Health(ctx).Status)
	assert.Equal(t, "provider=memory", c.Describe().Details)

	require.NoError(t, c.Storage().Upload(ctx, "a.mp3", strings.NewReader("x")))
	rc, err := c.Storage().Download(ctx, "a.mp3")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "x", string(data))

	require.NoError(t, c.Stop(ctx))
	assert.Nil(t, c.Storage())
}

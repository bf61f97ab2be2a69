package dbmigrate

import (
	"context"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitha/orbitha/internal/config"
	"github.com/orbitha/orbitha/migrations"
)

func TestSelectDatabaseURL(t *testing.T) {
	tests := []struct {
		name          string
		cfg           config.Config
		requireDirect bool
		wantURL       string
		wantSource    string
		wantWarning   bool
		wantErr       error
	}{
		{
			name:       "direct wins",
			cfg:        config.Config{DatabaseURLDirect: "postgres://direct", DatabaseURLRaw: "postgres://url", DatabaseURLPooled: "postgres://pooled"},
			wantURL:    "postgres://direct",
			wantSource: "DATABASE_URL_DIRECT",
		},
		{
			name:       "falls back to DATABASE_URL",
			cfg:        config.Config{DatabaseURLRaw: "postgres://url", DatabaseURLPooled: "postgres://pooled"},
			wantURL:    "postgres://url",
			wantSource: "DATABASE_URL",
		},
		{
			name:        "pooled with warning",
			cfg:         config.Config{DatabaseURLPooled: "postgres://pooled"},
			wantURL:     "postgres://pooled",
			wantSource:  "DATABASE_URL_POOLED",
			wantWarning: true,
		},
		{
			name:          "direct required",
			cfg:           config.Config{DatabaseURLRaw: "postgres://url"},
			requireDirect: true,
			wantErr:       ErrDirectURLRequired,
		},
		{
			name:    "nothing configured",
			wantErr: ErrNoDatabaseURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, source, warning, err := SelectDatabaseURL(&tt.cfg, tt.requireDirect)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, url)
			assert.Equal(t, tt.wantSource, source)
			assert.Equal(t, tt.wantWarning, warning != "")
		})
	}
}

func TestRun_EmptyURL(t *testing.T) {
	err := Run(context.Background(), "status", "", "", nil)
	assert.ErrorIs(t, err, ErrEmptyDatabaseURL)
}

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrations.FS, "*.sql")
	require.NoError(t, err)
	require.Len(t, files, 3)

	raw, err := fs.ReadFile(migrations.FS, "00003_meals_usage.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "get_daily_summary")
}

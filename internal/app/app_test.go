package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/medkit-bot/config"
	"github.com/yourusername/medkit-bot/internal/domain/entity"
)

func TestNewLogger_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := newLogger(config.LogConfig{Level: "warn", Format: "JSON"}, &buf)

	log.Info("hidden")
	log.Warn("shown", slog.String("component", "test"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "test", rec["component"])
	assert.NotContains(t, rec, slog.SourceKey)
}

func TestNewLogger_Text(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := newLogger(config.LogConfig{Level: "debug", Format: "text"}, &buf)

	log.Debug("tick", slog.Int("n", 3))

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "msg=tick")
	assert.Contains(t, out, "n=3")
	assert.Contains(t, out, "source=")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" DEBUG ": slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"Error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "%q", in)
	}
}

func TestBuildVersion(t *testing.T) {
	assert.Equal(t, "dev (commit: unknown, built: unknown)", BuildVersion())
}

func TestOpenStorage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("memory", func(t *testing.T) {
		repo, err := OpenStorage(ctx, config.StorageConfig{Driver: config.DriverMemory}, log)
		require.NoError(t, err)
		defer repo.Close()

		med := &entity.Medicine{Name: "Аспирин", NameKey: entity.NameKey("Аспирин"), Quantity: "10", Notes: "-", ExpDate: "2027-01-01", Owner: 1}
		require.NoError(t, repo.Insert(ctx, med))
		assert.NotEmpty(t, med.ID)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "medkit.db")
		repo, err := OpenStorage(ctx, config.StorageConfig{Driver: config.DriverSQLite, SQLitePath: path}, log)
		require.NoError(t, err)
		require.NoError(t, repo.Close())
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := OpenStorage(ctx, config.StorageConfig{Driver: "redis"}, log)
		assert.ErrorContains(t, err, `unknown storage driver "redis"`)
	})
}

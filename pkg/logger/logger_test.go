package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fatflowers/dukabill/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "app.log")
	l, err := New(&config.Config{Env: config.EnvProd, Log: config.LogConfig{File: file, MaxSizeMB: 1, MaxBackups: 1}})
	require.NoError(t, err)

	l.Infow("subscription activated", "subscription_id", "s1")
	_ = l.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "subscription activated")
	assert.Contains(t, string(data), `"subscription_id":"s1"`)
}

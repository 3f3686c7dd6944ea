package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults applied", func(t *testing.T) {
		path := writeConfig(t, "compliance_url: http://reviews.internal\n")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "localhost:8080", cfg.ServerAddr)
		assert.Equal(t, 30, cfg.TargetDaysToClose)
		assert.Equal(t, "http://reviews.internal", cfg.ComplianceURL)
	})

	t.Run("overrides respected", func(t *testing.T) {
		path := writeConfig(t, "server_addr: 0.0.0.0:9090\ntarget_days_to_close: 45\n")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0:9090", cfg.ServerAddr)
		assert.Equal(t, 45, cfg.TargetDaysToClose)
	})

	t.Run("invalid target rejected", func(t *testing.T) {
		path := writeConfig(t, "target_days_to_close: -5\n")

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

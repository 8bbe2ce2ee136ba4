package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7420", cfg.Listen)
	assert.Equal(t, "/api", cfg.BasePath)
	assert.Equal(t, "stop", cfg.StopCommand)
	assert.Equal(t, 30*time.Second, cfg.GracePeriod)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "craftd.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen = "0.0.0.0:9000"
data_dir = "/var/lib/craftd"
java_path = "/usr/lib/jvm/java-21/bin/java"
grace_period = "45s"
ready_phrases = ["Dedicated server took"]
history_dsn = "sqlite:///var/lib/craftd/history.db"

[log]
level = "debug"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "/var/lib/craftd", cfg.DataDir)
	assert.Equal(t, 45*time.Second, cfg.GracePeriod)
	assert.Equal(t, []string{"Dedicated server took"}, cfg.ReadyPhrases)
	assert.Equal(t, "sqlite:///var/lib/craftd/history.db", cfg.HistoryDSN)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Unset keys keep their defaults.
	assert.Equal(t, "/api", cfg.BasePath)
	assert.Equal(t, "stop", cfg.StopCommand)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("listen = [broken"), 0o600))
	_, err = Load(bad)
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.toml")
	require.NoError(t, os.WriteFile(empty, []byte(`data_dir = ""`), 0o600))
	_, err = Load(empty)
	assert.Error(t, err)
}

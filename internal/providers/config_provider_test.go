package providers

import (
	"crewboard/internal/structures"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `
webServer:
  host: 127.0.0.1
  port: 8090
logger:
  level: debug
  mode: 0644
  dir: /tmp
roster:
  path: roster.yaml
cache:
  ttl: 2m
presence:
  reconnectDelay: 2s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestNewConfigProvider_LoadsFileWithDefaults(t *testing.T) {
	path := writeConfig(t, testConfigYAML)

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path, DebugMode: true})
	require.NoError(t, err)

	assert.Equal(t, "CrewBoard", conf.AppName)
	assert.True(t, conf.Debug)
	assert.Equal(t, "127.0.0.1", conf.WebServer.Host)
	assert.Equal(t, 8090, conf.WebServer.Port)
	assert.Equal(t, 2*time.Minute, conf.Cache.TTL)
	assert.Equal(t, 2*time.Second, conf.Presence.ReconnectDelay)
	assert.Equal(t, "https://api.github.com", conf.Stats.APIURL)
	assert.Equal(t, "wss://lanyard.vxnet.sh/socket", conf.Presence.SocketURL)
	assert.Equal(t, 100, conf.Stats.EventsPerPage)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "roster.yaml"), conf.Roster.Path)
}

func TestNewConfigProvider_EnvOverride(t *testing.T) {
	path := writeConfig(t, testConfigYAML)
	t.Setenv("CREWBOARD_LOG_LEVEL", "warn")

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "warn", conf.Logger.Level)
}

func TestNewConfigProvider_MissingFile(t *testing.T) {
	_, err := NewConfigProvider(&structures.CliFlags{ConfigPath: "/nonexistent/config.yaml"})
	assert.Error(t, err)
}

func TestNewConfigProvider_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "webServer:\n  host: \"\"\n  port: 0\n")
	_, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path})
	assert.Error(t, err)
}

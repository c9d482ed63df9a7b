package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, Default.Port, cfg.Port)
	assert.True(t, cfg.Telegram.Enabled)
	assert.Equal(t, "https://api.telegram.org", cfg.Telegram.APIURL)
	assert.Equal(t, 15*time.Second, cfg.Telegram.Timeout)
	assert.Equal(t, Default.Telegram.Message, cfg.Telegram.Message)
	assert.Empty(t, cfg.Telegram.BotToken)
}

func TestLoadFrom_File(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`port: 9200
telegram:
  bot_token: ABC
  chat_id: "123"
  notify_only_on_errors: true
  timeout: 3s
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644))

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 9200, cfg.Port)
	assert.Equal(t, "ABC", cfg.Telegram.BotToken)
	assert.Equal(t, "123", cfg.Telegram.ChatID)
	assert.True(t, cfg.Telegram.NotifyOnlyOnErrors)
	assert.Equal(t, 3*time.Second, cfg.Telegram.Timeout)
	assert.True(t, cfg.Telegram.Enabled)
}

func TestLoadFrom_EnvOverride(t *testing.T) {
	t.Setenv("BASECFG_TELEGRAM_CHAT_ID", "999")
	t.Setenv("BASECFG_PORT", "9300")

	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "999", cfg.Telegram.ChatID)
	assert.Equal(t, 9300, cfg.Port)
}

func TestLoadFrom_BadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("port: [1,"), 0644))

	_, err := LoadFrom(dir)
	require.Error(t, err)
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  chat_id: \"1\"\n"), 0644))

	_, err := LoadFrom(dir)
	require.NoError(t, err)

	reloaded := make(chan *Config, 4)
	Watch(func(cfg *Config, _ fsnotify.Event) {
		reloaded <- cfg
	})

	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  chat_id: \"2\"\n"), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "2", cfg.Telegram.ChatID)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not delivered")
	}
}

func TestWatch_DeliversOnlyLastOfBurst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  chat_id: \"1\"\n"), 0644))

	_, err := LoadFrom(dir)
	require.NoError(t, err)

	reloaded := make(chan *Config, 4)
	Watch(func(cfg *Config, _ fsnotify.Event) {
		reloaded <- cfg
	})

	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  chat_id: \"2\"\n"), 0644))
	require.NoError(t, os.WriteFile(path, []byte("telegram:\n  chat_id: \"3\"\n"), 0644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "3", cfg.Telegram.ChatID)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not delivered")
	}

	select {
	case cfg := <-reloaded:
		t.Fatalf("unexpected second reload with chat_id %q", cfg.Telegram.ChatID)
	case <-time.After(3 * reloadDelay):
	}
}

func TestWatch_NoFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	Watch(func(*Config, fsnotify.Event) {
		t.Error("unexpected reload")
	})
}

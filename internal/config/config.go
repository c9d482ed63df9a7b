package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"basecfg/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type TelegramConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	NotifyOnlyOnErrors bool          `mapstructure:"notify_only_on_errors"`
	BotToken           string        `mapstructure:"bot_token"`
	ChatID             string        `mapstructure:"chat_id"`
	SecondaryToken     string        `mapstructure:"secondary_token"`
	SecondaryChatID    string        `mapstructure:"secondary_chat_id"`
	Message            string        `mapstructure:"message"`
	APIURL             string        `mapstructure:"api_url"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

type Config struct {
	Port     int            `mapstructure:"port"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

var Default = Config{
	Port: 9100,
	Telegram: TelegramConfig{
		Enabled: true,
		Message: "Test message from the backup configurator.",
		APIURL:  "https://api.telegram.org",
		Timeout: 15 * time.Second,
	},
}

const reloadDelay = 200 * time.Millisecond

var (
	mu sync.Mutex
	v  *viper.Viper
)

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home dir: %w", err)
	}

	configDir := filepath.Join(home, ".basecfg")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	return LoadFrom(configDir)
}

// LoadFrom reads config.yaml from dir. A missing file is not an error.
func LoadFrom(dir string) (*Config, error) {
	mu.Lock()
	defer mu.Unlock()

	v = viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault("port", Default.Port)
	v.SetDefault("telegram.enabled", Default.Telegram.Enabled)
	v.SetDefault("telegram.notify_only_on_errors", Default.Telegram.NotifyOnlyOnErrors)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.secondary_token", "")
	v.SetDefault("telegram.secondary_chat_id", "")
	v.SetDefault("telegram.message", Default.Telegram.Message)
	v.SetDefault("telegram.api_url", Default.Telegram.APIURL)
	v.SetDefault("telegram.timeout", Default.Telegram.Timeout)

	v.SetEnvPrefix("BASECFG")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := errors.AsType[viper.ConfigFileNotFoundError](err); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return unmarshal(v)
}

type reload struct {
	cfg   *Config
	event fsnotify.Event
}

// Watch calls onChange with the re-read config after the config file changes
// on disk. Bursts of writes are coalesced into one reload. It is a no-op when
// no config file was found by Load.
func Watch(onChange func(*Config, fsnotify.Event)) {
	mu.Lock()
	defer mu.Unlock()

	if v == nil || v.ConfigFileUsed() == "" {
		return
	}

	watched := v
	reloads := make(chan reload, 16)

	// Runs on viper's watcher goroutine, the only one touching watched
	// after this point.
	watched.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := unmarshal(watched)
		if err != nil {
			logger.Log.Warn("failed to reload config",
				zap.String("file", e.Name),
				zap.Error(err))
			return
		}

		select {
		case reloads <- reload{cfg: cfg, event: e}:
		default:
			logger.Log.Debug("config reload queue full, dropping event",
				zap.String("file", e.Name))
		}
	})

	go func() {
		for r := range debounce[reload](reloads, reloadDelay) {
			onChange(r.cfg, r.event)
		}
	}()

	watched.WatchConfig()
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

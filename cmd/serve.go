package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"basecfg/internal/config"
	"basecfg/internal/editor"
	"basecfg/internal/logger"
	"basecfg/internal/metrics"
	"basecfg/internal/model"
	"basecfg/internal/notify"
	"basecfg/internal/server"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the configurator API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	rec := metrics.NewPrometheusRecorder(reg)

	dispatcher := newDispatcher(cfg.Telegram, rec)
	dispatcher.OnTransition(func(from, to notify.State) {
		logger.Log.Debug("dispatch state changed",
			zap.Stringer("from", from),
			zap.Stringer("to", to))
	})

	sess := editor.NewSession(model.SeedBases(), dispatcher,
		editor.WithLogger(logger.Log),
		editor.WithRecorder(rec))
	defer sess.Close()

	if err := sess.ApplyTelegram(telegramSettings(cfg.Telegram)); err != nil {
		return err
	}

	config.Watch(func(c *config.Config, e fsnotify.Event) {
		logger.Log.Info("config changed, reloading telegram settings",
			zap.String("file", e.Name))
		if err := sess.ApplyTelegram(telegramSettings(c.Telegram)); err != nil {
			logger.Log.Warn("failed to apply telegram settings", zap.Error(err))
		}
	})

	srv := server.NewServer(sess, cfg.Port, server.WithRegistry(reg))
	srv.Start()

	logger.Log.Info("basecfg started",
		zap.Int("bases", len(sess.Bases())),
		zap.Int("port", cfg.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Log.Info("shutting down",
			zap.String("signal", sig.String()))
	case <-srv.StopCh():
		logger.Log.Info("stop requested via API")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Stop(ctx)
	sess.Wait()
	return err
}

func newDispatcher(t config.TelegramConfig, rec metrics.Recorder) *notify.Dispatcher {
	client := &http.Client{Timeout: t.Timeout}
	return notify.New(client,
		notify.WithBaseURL(t.APIURL),
		notify.WithFallbackText(t.Message),
		notify.WithLogger(logger.Log),
		notify.WithRecorder(rec))
}

func telegramSettings(t config.TelegramConfig) editor.TelegramSettings {
	return editor.TelegramSettings{
		Enabled:            t.Enabled,
		NotifyOnlyOnErrors: t.NotifyOnlyOnErrors,
		BotToken:           t.BotToken,
		ChatID:             t.ChatID,
		SecondaryToken:     t.SecondaryToken,
		SecondaryChatID:    t.SecondaryChatID,
		Message:            t.Message,
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

package cmd

import (
	"fmt"

	"basecfg/internal/logger"
	"basecfg/internal/metrics"
	"basecfg/internal/notify"

	"github.com/spf13/cobra"
)

var (
	notifyToken string
	notifyChat  string
	notifyText  string
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Send a test message directly, without a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		req := notify.Request{
			Token:  cfg.Telegram.BotToken,
			ChatID: cfg.Telegram.ChatID,
			Text:   cfg.Telegram.Message,
		}
		if cmd.Flags().Changed("token") {
			req.Token = notifyToken
		}
		if cmd.Flags().Changed("chat") {
			req.ChatID = notifyChat
		}
		if cmd.Flags().Changed("text") {
			req.Text = notifyText
		}

		out := newDispatcher(cfg.Telegram, metrics.NoopRecorder{}).Send(cmd.Context(), req)
		fmt.Println(out.Status)
		if !out.Succeeded() {
			return fmt.Errorf("failed to send test message: %w", out.Err)
		}
		return nil
	},
}

func init() {
	notifyCmd.Flags().StringVar(&notifyToken, "token", "", "bot token (defaults to telegram.bot_token)")
	notifyCmd.Flags().StringVar(&notifyChat, "chat", "", "chat id (defaults to telegram.chat_id)")
	notifyCmd.Flags().StringVar(&notifyText, "text", "", "message text (defaults to telegram.message)")
	rootCmd.AddCommand(notifyCmd)
}

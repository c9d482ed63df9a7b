package editor

import (
	"errors"
	"slices"
	"strings"

	"basecfg/internal/model"
	"basecfg/internal/reactive"
)

type TelegramSettings struct {
	Enabled            bool
	NotifyOnlyOnErrors bool
	BotToken           string
	ChatID             string
	SecondaryToken     string
	SecondaryChatID    string
	Message            string
}

// ApplyTelegram copies settings into the session field by field so that
// only actual changes are announced.
func (s *Session) ApplyTelegram(t TelegramSettings) error {
	var errs []error
	set := func(field string, v any) {
		if err := s.rec.Set(field, v); err != nil {
			errs = append(errs, err)
		}
	}

	set(FieldTelegramEnabled, t.Enabled)
	set(FieldNotifyOnlyOnErrors, t.NotifyOnlyOnErrors)
	set(FieldBotToken, t.BotToken)
	set(FieldChatID, t.ChatID)
	set(FieldSecondaryToken, t.SecondaryToken)
	set(FieldSecondaryChatID, t.SecondaryChatID)
	if strings.TrimSpace(t.Message) != "" {
		set(FieldMessage, t.Message)
	}

	return errors.Join(errs...)
}

// SessionSnapshot is the session state safe to show to a client. Secrets are
// reduced to whether they are set.
type SessionSnapshot struct {
	SelectedBase       string          `json:"selected_base,omitempty"`
	AfterBackupAction  int             `json:"after_backup_action"`
	TelegramEnabled    bool            `json:"telegram_enabled"`
	NotifyOnlyOnErrors bool            `json:"notify_only_on_errors"`
	ChatID             string          `json:"chat_id"`
	SecondaryChatID    string          `json:"secondary_chat_id"`
	Message            string          `json:"message"`
	Status             string          `json:"status"`
	Sending            bool            `json:"sending"`
	SecretsSet         map[string]bool `json:"secrets_set"`
}

func (s *Session) Snapshot() SessionSnapshot {
	snap := s.rec.Snapshot()
	g := getter(snap)

	out := SessionSnapshot{
		TelegramEnabled:    reactive.Value[bool](g, FieldTelegramEnabled),
		NotifyOnlyOnErrors: reactive.Value[bool](g, FieldNotifyOnlyOnErrors),
		ChatID:             reactive.Value[string](g, FieldChatID),
		SecondaryChatID:    reactive.Value[string](g, FieldSecondaryChatID),
		Message:            reactive.Value[string](g, FieldMessage),
		Status:             reactive.Value[string](g, FieldStatus),
		Sending:            reactive.Value[bool](g, FieldSending),
		SecretsSet:         make(map[string]bool, len(SecretFields)),
	}
	if sel := reactive.Value[*model.JobConfig](g, FieldSelectedBase); sel != nil {
		out.SelectedBase = sel.Tag()
	}
	if opt := reactive.Value[*model.Option[model.AfterBackupAction]](g, FieldAfterBackupAction); opt != nil {
		out.AfterBackupAction = int(opt.Value)
	}
	for _, f := range SecretFields {
		out.SecretsSet[f] = strings.TrimSpace(reactive.Value[string](g, f)) != ""
	}

	return out
}

// IsSecret reports whether field holds a secret that must not be echoed.
func IsSecret(field string) bool {
	return slices.Contains(SecretFields, field)
}

type getter map[string]any

func (g getter) Get(name string) any {
	return g[name]
}

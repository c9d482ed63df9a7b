package editor

import (
	"context"
	"errors"

	"basecfg/internal/model"
)

var ErrNotPersisted = errors.New("persistence is not available in this build")

type GlobalSettings struct {
	AfterBackupAction  model.AfterBackupAction `json:"after_backup_action"`
	TelegramEnabled    bool                    `json:"telegram_enabled"`
	NotifyOnlyOnErrors bool                    `json:"notify_only_on_errors"`
	ChatID             string                  `json:"chat_id"`
	SecondaryChatID    string                  `json:"secondary_chat_id"`
}

// Store is the persistence collaborator. Secrets are keyed by the derived
// JobConfig keys (cloudTokenKey, designerLoginKey, designerPasswordKey).
type Store interface {
	SaveBase(ctx context.Context, base model.BaseSnapshot) error
	SaveGlobalSettings(ctx context.Context, settings GlobalSettings) error
	SaveSecrets(ctx context.Context, secrets map[string]string) error
}

// DemoStore accepts nothing.
type DemoStore struct{}

func (DemoStore) SaveBase(context.Context, model.BaseSnapshot) error {
	return ErrNotPersisted
}

func (DemoStore) SaveGlobalSettings(context.Context, GlobalSettings) error {
	return ErrNotPersisted
}

func (DemoStore) SaveSecrets(context.Context, map[string]string) error {
	return ErrNotPersisted
}

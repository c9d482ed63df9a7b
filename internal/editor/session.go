// Package editor is the single active editing session: the collection of
// bases, the current selection, notification settings and the commands a
// presentation layer can invoke.
package editor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"basecfg/internal/command"
	"basecfg/internal/metrics"
	"basecfg/internal/model"
	"basecfg/internal/notify"
	"basecfg/internal/reactive"

	"go.uber.org/zap"
)

// Session fields.
const (
	FieldSelectedBase       = "selectedBase"
	FieldAfterBackupAction  = "afterBackupAction"
	FieldTelegramEnabled    = "telegramEnabled"
	FieldNotifyOnlyOnErrors = "notifyOnlyOnErrors"
	FieldBotToken           = "botToken"
	FieldChatID             = "chatId"
	FieldSecondaryToken     = "secondaryToken"
	FieldSecondaryChatID    = "secondaryChatId"
	FieldMessage            = "message"
	FieldCloudToken         = "cloudToken"
	FieldDesignerLogin      = "designerLogin"
	FieldDesignerPassword   = "designerPassword"
	FieldStatus             = "status"
	FieldSending            = "sending"
)

// Command names.
const (
	CommandCreate             = "create"
	CommandDuplicate          = "duplicate"
	CommandDelete             = "delete"
	CommandSaveConfig         = "save-config"
	CommandSaveGlobalSettings = "save-global-settings"
	CommandSaveSecrets        = "save-secrets"
	CommandSendTelegramTest   = "send-telegram-test"
)

var (
	ErrBaseNotFound   = errors.New("base not found")
	ErrUnknownCommand = errors.New("unknown command")
)

// SecretFields are never exposed through snapshots.
var SecretFields = []string{
	FieldBotToken, FieldSecondaryToken, FieldCloudToken, FieldDesignerLogin, FieldDesignerPassword,
}

var ownedFields = []string{FieldSelectedBase, FieldStatus, FieldSending}

// Sender delivers a notification; *notify.Dispatcher implements it.
type Sender interface {
	Send(ctx context.Context, req notify.Request) notify.Outcome
}

type Session struct {
	rec      *reactive.Record
	bases    []*model.JobConfig
	sender   Sender
	store    Store
	logger   *zap.Logger
	recorder metrics.Recorder

	commands []*command.Gate
}

type Option func(*Session)

func WithStore(s Store) Option {
	return func(sess *Session) {
		if s != nil {
			sess.store = s
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(sess *Session) {
		if l != nil {
			sess.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(sess *Session) {
		if r != nil {
			sess.recorder = r
		}
	}
}

func sessionSchema() reactive.Schema {
	return reactive.Schema{
		Fields: []reactive.Field{
			{Name: FieldSelectedBase, Default: (*model.JobConfig)(nil), Validate: ofType[*model.JobConfig]},
			{Name: FieldAfterBackupAction, Default: (*model.Option[model.AfterBackupAction])(nil),
				Equal: model.SameOption[model.AfterBackupAction], Validate: ofType[*model.Option[model.AfterBackupAction]]},
			{Name: FieldTelegramEnabled, Default: true, Validate: ofType[bool]},
			{Name: FieldNotifyOnlyOnErrors, Default: false, Validate: ofType[bool]},
			{Name: FieldBotToken, Default: "", Validate: ofType[string]},
			{Name: FieldChatID, Default: "", Validate: ofType[string]},
			{Name: FieldSecondaryToken, Default: "", Validate: ofType[string]},
			{Name: FieldSecondaryChatID, Default: "", Validate: ofType[string]},
			{Name: FieldMessage, Default: notify.DefaultFallbackText, Validate: ofType[string]},
			{Name: FieldCloudToken, Default: "", Validate: ofType[string]},
			{Name: FieldDesignerLogin, Default: "", Validate: ofType[string]},
			{Name: FieldDesignerPassword, Default: "", Validate: ofType[string]},
			{Name: FieldStatus, Default: notify.StatusReady, Validate: ofType[string]},
			{Name: FieldSending, Default: false, Validate: ofType[bool]},
		},
	}
}

// NewSession builds the session over bases. The first base is selected and
// the post-backup action defaults to the last catalog entry.
func NewSession(bases []*model.JobConfig, sender Sender, opts ...Option) *Session {
	s := &Session{
		rec:      reactive.MustNew(sessionSchema()),
		bases:    slices.Clone(bases),
		sender:   sender,
		store:    DemoStore{},
		logger:   zap.NewNop(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(s.bases) > 0 {
		_ = s.rec.Set(FieldSelectedBase, s.bases[0])
	}
	last := &model.AfterBackupActions[len(model.AfterBackupActions)-1]
	_ = s.rec.Set(FieldAfterBackupAction, last)

	s.commands = s.buildCommands()
	return s
}

func (s *Session) buildCommands() []*command.Gate {
	common := []command.Option{
		command.WithLogger(s.logger),
		command.WithRecorder(s.recorder),
	}
	needsSelection := append(slices.Clone(common),
		command.WithPredicate(func() bool { return s.Selected() != nil }),
		command.WatchFields(s.rec, FieldSelectedBase))

	return []*command.Gate{
		command.New(CommandCreate, s.create, common...),
		command.New(CommandDuplicate, s.duplicate, needsSelection...),
		command.New(CommandDelete, s.delete, needsSelection...),
		command.New(CommandSaveConfig, s.saveConfig, needsSelection...),
		command.New(CommandSaveGlobalSettings, s.saveGlobalSettings, common...),
		command.New(CommandSaveSecrets, s.saveSecrets, needsSelection...),
		command.NewAsync(CommandSendTelegramTest, s.sendTelegramTest, append(slices.Clone(common),
			command.WithPredicate(s.canSendTelegram),
			command.WatchFields(s.rec, FieldBotToken, FieldChatID, FieldSending))...),
	}
}

func (s *Session) Get(field string) any {
	return s.rec.Get(field)
}

// Set assigns a session field. The selection, status and sending flag are
// owned by the session and rejected here; selection goes through Select.
func (s *Session) Set(field string, value any) error {
	if slices.Contains(ownedFields, field) {
		return fmt.Errorf("%w: %s is managed by the session", reactive.ErrReadOnlyField, field)
	}
	if field == FieldAfterBackupAction && value == nil {
		value = (*model.Option[model.AfterBackupAction])(nil)
	}
	return s.rec.Set(field, value)
}

func (s *Session) OnFieldChanged(field string, h reactive.Handler) func() {
	return s.rec.OnFieldChanged(field, h)
}

func (s *Session) OnChange(h reactive.Handler) func() {
	return s.rec.OnChange(h)
}

func (s *Session) Bases() []*model.JobConfig {
	return slices.Clone(s.bases)
}

func (s *Session) Base(tag string) (*model.JobConfig, error) {
	for _, b := range s.bases {
		if b.Tag() == tag {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrBaseNotFound, tag)
}

// SetBaseField assigns a field of the base currently tagged tag.
func (s *Session) SetBaseField(tag, field string, value any) error {
	b, err := s.Base(tag)
	if err != nil {
		return err
	}
	return b.Set(field, value)
}

func (s *Session) Selected() *model.JobConfig {
	return reactive.Value[*model.JobConfig](s.rec, FieldSelectedBase)
}

func (s *Session) Select(tag string) error {
	b, err := s.Base(tag)
	if err != nil {
		return err
	}
	return s.rec.Set(FieldSelectedBase, b)
}

func (s *Session) SelectNone() {
	_ = s.rec.Set(FieldSelectedBase, (*model.JobConfig)(nil))
}

func (s *Session) AfterBackupAction() *model.Option[model.AfterBackupAction] {
	return reactive.Value[*model.Option[model.AfterBackupAction]](s.rec, FieldAfterBackupAction)
}

func (s *Session) Status() string {
	return reactive.Value[string](s.rec, FieldStatus)
}

func (s *Session) Sending() bool {
	return reactive.Value[bool](s.rec, FieldSending)
}

func (s *Session) Commands() []*command.Gate {
	return slices.Clone(s.commands)
}

func (s *Session) Command(name string) (*command.Gate, error) {
	for _, g := range s.commands {
		if g.Name() == name {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
}

// Invoke runs the named command and reports whether it was enabled.
func (s *Session) Invoke(ctx context.Context, name string) (bool, error) {
	g, err := s.Command(name)
	if err != nil {
		return false, err
	}
	return g.Invoke(ctx), nil
}

// Wait blocks until in-flight asynchronous commands complete.
func (s *Session) Wait() {
	for _, g := range s.commands {
		g.Wait()
	}
}

func (s *Session) Close() {
	for _, g := range s.commands {
		g.Close()
	}
}

func (s *Session) setStatus(status string) {
	_ = s.rec.Set(FieldStatus, status)
}

func (s *Session) create(context.Context) error {
	s.setStatus("Demo: creating a new base is disabled. Full functionality arrives in the release.")
	return nil
}

func (s *Session) duplicate(context.Context) error {
	sel := s.Selected()
	if sel == nil {
		s.setStatus("Demo: select a base to duplicate.")
		return nil
	}
	s.setStatus(fmt.Sprintf("Demo: duplicating '%s' is not available.", sel.Title()))
	return nil
}

func (s *Session) delete(context.Context) error {
	sel := s.Selected()
	if sel == nil {
		s.setStatus("Demo: select a base to delete.")
		return nil
	}
	s.setStatus(fmt.Sprintf("Demo: deleting '%s' is disabled.", sel.Title()))
	return nil
}

func (s *Session) saveConfig(ctx context.Context) error {
	sel := s.Selected()
	if sel == nil {
		s.setStatus("Demo: no base selected to save.")
		return nil
	}

	err := s.store.SaveBase(ctx, sel.Snapshot())
	switch {
	case errors.Is(err, ErrNotPersisted):
		s.setStatus(fmt.Sprintf("Demo: changes to '%s' are not saved to disk.", sel.Title()))
		return nil
	case err != nil:
		s.setStatus(fmt.Sprintf("Failed to save '%s': %v", sel.Title(), err))
		return fmt.Errorf("failed to save base %s: %w", sel.Tag(), err)
	}

	s.setStatus(fmt.Sprintf("Saved '%s'.", sel.Title()))
	return nil
}

func (s *Session) saveGlobalSettings(ctx context.Context) error {
	label := model.AfterBackupActions[len(model.AfterBackupActions)-1].Label
	action := model.AfterBackupNothing
	if opt := s.AfterBackupAction(); opt != nil {
		label = opt.Label
		action = opt.Value
	}

	err := s.store.SaveGlobalSettings(ctx, GlobalSettings{
		AfterBackupAction:  action,
		TelegramEnabled:    reactive.Value[bool](s.rec, FieldTelegramEnabled),
		NotifyOnlyOnErrors: reactive.Value[bool](s.rec, FieldNotifyOnlyOnErrors),
		ChatID:             strings.TrimSpace(reactive.Value[string](s.rec, FieldChatID)),
		SecondaryChatID:    strings.TrimSpace(reactive.Value[string](s.rec, FieldSecondaryChatID)),
	})
	switch {
	case errors.Is(err, ErrNotPersisted):
		s.setStatus(fmt.Sprintf("Demo: saving global settings is disabled (selected: %s).", label))
		return nil
	case err != nil:
		s.setStatus(fmt.Sprintf("Failed to save global settings: %v", err))
		return fmt.Errorf("failed to save global settings: %w", err)
	}

	s.setStatus(fmt.Sprintf("Global settings saved (selected: %s).", label))
	return nil
}

// Secrets returns the secret values of the selected base keyed by its
// derived keys. Blank values and keys the base does not use are skipped.
func (s *Session) Secrets() map[string]string {
	secrets := make(map[string]string)

	sel := s.Selected()
	if sel == nil {
		return secrets
	}

	put := func(key, field string) {
		if v := strings.TrimSpace(reactive.Value[string](s.rec, field)); v != "" {
			secrets[key] = v
		}
	}
	if sel.UsesCloud() {
		put(sel.CloudTokenKey(), FieldCloudToken)
	}
	if sel.RequiresDesigner() {
		put(sel.DesignerLoginKey(), FieldDesignerLogin)
		put(sel.DesignerPasswordKey(), FieldDesignerPassword)
	}

	return secrets
}

func (s *Session) saveSecrets(ctx context.Context) error {
	sel := s.Selected()
	if sel == nil {
		s.setStatus("Select a base to update its keys and secrets.")
		return nil
	}

	secrets := s.Secrets()
	err := s.store.SaveSecrets(ctx, secrets)
	switch {
	case errors.Is(err, ErrNotPersisted):
		s.setStatus("Demo: updating keys and secrets arrives in the full version.")
		return nil
	case err != nil:
		s.setStatus(fmt.Sprintf("Failed to save secrets for '%s': %v", sel.Title(), err))
		return fmt.Errorf("failed to save secrets for %s: %w", sel.Tag(), err)
	}

	s.setStatus(fmt.Sprintf("Saved %d secret(s) for '%s'.", len(secrets), sel.Title()))
	return nil
}

func (s *Session) canSendTelegram() bool {
	return !s.Sending() &&
		strings.TrimSpace(reactive.Value[string](s.rec, FieldBotToken)) != "" &&
		strings.TrimSpace(reactive.Value[string](s.rec, FieldChatID)) != ""
}

func (s *Session) sendTelegramTest(ctx context.Context) error {
	_ = s.rec.Set(FieldSending, true)
	defer func() {
		_ = s.rec.Set(FieldSending, false)
	}()

	s.setStatus(notify.StatusSending)

	out := s.sender.Send(ctx, notify.Request{
		Token:  reactive.Value[string](s.rec, FieldBotToken),
		ChatID: reactive.Value[string](s.rec, FieldChatID),
		Text:   reactive.Value[string](s.rec, FieldMessage),
	})
	s.setStatus(out.Status)

	return out.Err
}

func ofType[T any](v any) error {
	if _, ok := v.(T); !ok {
		return fmt.Errorf("%w: want %T, got %T", model.ErrInvalidValue, *new(T), v)
	}
	return nil
}

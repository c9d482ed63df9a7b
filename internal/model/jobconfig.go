package model

import (
	"errors"
	"fmt"
	"strings"

	"basecfg/internal/reactive"
)

// Mutable JobConfig fields.
const (
	FieldTag             = "tag"
	FieldTitle           = "title"
	FieldDescription     = "description"
	FieldBackupKind      = "backupKind"
	FieldSourcePath      = "sourcePath"
	FieldDestinationPath = "destinationPath"
	FieldExecutablePath  = "executablePath"
	FieldKeepCopies      = "keepCopies"
	FieldCloudKind       = "cloudKind"
	FieldCloudKeepCopies = "cloudKeepCopies"
	FieldStopServices    = "stopServices"
	FieldDisabled        = "disabled"
)

// Derived JobConfig fields.
const (
	FieldRequiresDesigner    = "requiresDesigner"
	FieldUsesCloud           = "usesCloud"
	FieldCloudTokenKey       = "cloudTokenKey"
	FieldDesignerLoginKey    = "designerLoginKey"
	FieldDesignerPasswordKey = "designerPasswordKey"
)

const (
	cloudTokenSuffix       = "__YADiskToken"
	designerLoginSuffix    = "__DT_Login"
	designerPasswordSuffix = "__DT_Password"
)

var ErrInvalidValue = errors.New("invalid value")

// jobConfigSchema is shared by every JobConfig; the dependency table is
// declared here and nowhere else.
var jobConfigSchema = reactive.Schema{
	Fields: []reactive.Field{
		{Name: FieldTag, Default: "new-base", Validate: isString},
		{Name: FieldTitle, Default: "New base", Validate: isString},
		{Name: FieldDescription, Default: "", Validate: isString},
		{Name: FieldBackupKind, Default: (*Option[string])(nil), Equal: SameOption[string], Validate: isOption},
		{Name: FieldSourcePath, Default: "", Validate: isString},
		{Name: FieldDestinationPath, Default: "", Validate: isString},
		{Name: FieldExecutablePath, Default: "", Validate: isString},
		{Name: FieldKeepCopies, Default: 5, Validate: isCount},
		{Name: FieldCloudKind, Default: (*Option[string])(nil), Equal: SameOption[string], Validate: isOption},
		{Name: FieldCloudKeepCopies, Default: 3, Validate: isCount},
		{Name: FieldStopServices, Default: "", Validate: isString},
		{Name: FieldDisabled, Default: false, Validate: isBool},
	},
	Derived: []reactive.Derivation{
		{
			Name:      FieldRequiresDesigner,
			DependsOn: []string{FieldBackupKind},
			Compute: func(g reactive.Getter) any {
				return optionIs(g, FieldBackupKind, BackupKindDesigner)
			},
		},
		{
			Name:      FieldUsesCloud,
			DependsOn: []string{FieldCloudKind},
			Compute: func(g reactive.Getter) any {
				return optionIs(g, FieldCloudKind, CloudKindYandexDisk)
			},
		},
		{
			Name:      FieldCloudTokenKey,
			DependsOn: []string{FieldTag},
			Compute: func(g reactive.Getter) any {
				return reactive.Value[string](g, FieldTag) + cloudTokenSuffix
			},
		},
		{
			Name:      FieldDesignerLoginKey,
			DependsOn: []string{FieldTag},
			Compute: func(g reactive.Getter) any {
				return reactive.Value[string](g, FieldTag) + designerLoginSuffix
			},
		},
		{
			Name:      FieldDesignerPasswordKey,
			DependsOn: []string{FieldTag},
			Compute: func(g reactive.Getter) any {
				return reactive.Value[string](g, FieldTag) + designerPasswordSuffix
			},
		},
	},
}

func optionIs(g reactive.Getter, field, want string) bool {
	opt := reactive.Value[*Option[string]](g, field)
	if opt == nil {
		return false
	}
	return strings.EqualFold(opt.Value, want)
}

// JobConfig is one backup job definition ("base"). Every mutation goes
// through the underlying reactive record.
type JobConfig struct {
	rec *reactive.Record
}

func NewJobConfig() *JobConfig {
	return &JobConfig{rec: reactive.MustNew(jobConfigSchema)}
}

func (j *JobConfig) Get(field string) any {
	return j.rec.Get(field)
}

// Set assigns a mutable field. Unset options may be passed as nil.
func (j *JobConfig) Set(field string, value any) error {
	if value == nil && (field == FieldBackupKind || field == FieldCloudKind) {
		value = (*Option[string])(nil)
	}
	return j.rec.Set(field, value)
}

func (j *JobConfig) OnFieldChanged(field string, h reactive.Handler) func() {
	return j.rec.OnFieldChanged(field, h)
}

func (j *JobConfig) OnChange(h reactive.Handler) func() {
	return j.rec.OnChange(h)
}

func (j *JobConfig) Tag() string         { return reactive.Value[string](j.rec, FieldTag) }
func (j *JobConfig) Title() string       { return reactive.Value[string](j.rec, FieldTitle) }
func (j *JobConfig) Description() string { return reactive.Value[string](j.rec, FieldDescription) }
func (j *JobConfig) SourcePath() string  { return reactive.Value[string](j.rec, FieldSourcePath) }
func (j *JobConfig) DestinationPath() string {
	return reactive.Value[string](j.rec, FieldDestinationPath)
}
func (j *JobConfig) ExecutablePath() string {
	return reactive.Value[string](j.rec, FieldExecutablePath)
}
func (j *JobConfig) KeepCopies() int      { return reactive.Value[int](j.rec, FieldKeepCopies) }
func (j *JobConfig) CloudKeepCopies() int { return reactive.Value[int](j.rec, FieldCloudKeepCopies) }
func (j *JobConfig) StopServices() string { return reactive.Value[string](j.rec, FieldStopServices) }
func (j *JobConfig) Disabled() bool       { return reactive.Value[bool](j.rec, FieldDisabled) }

func (j *JobConfig) BackupKind() *Option[string] {
	return reactive.Value[*Option[string]](j.rec, FieldBackupKind)
}

func (j *JobConfig) CloudKind() *Option[string] {
	return reactive.Value[*Option[string]](j.rec, FieldCloudKind)
}

func (j *JobConfig) RequiresDesigner() bool {
	return reactive.Value[bool](j.rec, FieldRequiresDesigner)
}

func (j *JobConfig) UsesCloud() bool {
	return reactive.Value[bool](j.rec, FieldUsesCloud)
}

func (j *JobConfig) CloudTokenKey() string {
	return reactive.Value[string](j.rec, FieldCloudTokenKey)
}

func (j *JobConfig) DesignerLoginKey() string {
	return reactive.Value[string](j.rec, FieldDesignerLoginKey)
}

func (j *JobConfig) DesignerPasswordKey() string {
	return reactive.Value[string](j.rec, FieldDesignerPasswordKey)
}

// StopServicesList splits the newline-delimited service list, dropping
// blank lines.
func (j *JobConfig) StopServicesList() []string {
	var services []string
	for line := range strings.Lines(j.StopServices()) {
		if s := strings.TrimSpace(line); s != "" {
			services = append(services, s)
		}
	}
	return services
}

func (j *JobConfig) Snapshot() BaseSnapshot {
	snap := j.rec.Snapshot()

	return BaseSnapshot{
		Tag:                 snap[FieldTag].(string),
		Title:               snap[FieldTitle].(string),
		Description:         snap[FieldDescription].(string),
		BackupKind:          optionValue(snap[FieldBackupKind]),
		SourcePath:          snap[FieldSourcePath].(string),
		DestinationPath:     snap[FieldDestinationPath].(string),
		ExecutablePath:      snap[FieldExecutablePath].(string),
		KeepCopies:          snap[FieldKeepCopies].(int),
		CloudKind:           optionValue(snap[FieldCloudKind]),
		CloudKeepCopies:     snap[FieldCloudKeepCopies].(int),
		StopServices:        snap[FieldStopServices].(string),
		Disabled:            snap[FieldDisabled].(bool),
		RequiresDesigner:    snap[FieldRequiresDesigner].(bool),
		UsesCloud:           snap[FieldUsesCloud].(bool),
		CloudTokenKey:       snap[FieldCloudTokenKey].(string),
		DesignerLoginKey:    snap[FieldDesignerLoginKey].(string),
		DesignerPasswordKey: snap[FieldDesignerPasswordKey].(string),
	}
}

func optionValue(v any) string {
	if opt, ok := v.(*Option[string]); ok && opt != nil {
		return opt.Value
	}
	return ""
}

func isString(v any) error {
	if _, ok := v.(string); !ok {
		return fmt.Errorf("%w: want string, got %T", ErrInvalidValue, v)
	}
	return nil
}

func isBool(v any) error {
	if _, ok := v.(bool); !ok {
		return fmt.Errorf("%w: want bool, got %T", ErrInvalidValue, v)
	}
	return nil
}

func isCount(v any) error {
	n, ok := v.(int)
	if !ok {
		return fmt.Errorf("%w: want int, got %T", ErrInvalidValue, v)
	}
	if n < 0 {
		return fmt.Errorf("%w: %d is negative", ErrInvalidValue, n)
	}
	return nil
}

func isOption(v any) error {
	if _, ok := v.(*Option[string]); !ok {
		return fmt.Errorf("%w: want option, got %T", ErrInvalidValue, v)
	}
	return nil
}

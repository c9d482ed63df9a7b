package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseField converts the textual form of a mutable field into the value
// JobConfig.Set expects. Options are looked up in their catalog by value;
// an empty string means unset.
func ParseField(field, raw string) (any, error) {
	switch field {
	case FieldTag, FieldTitle, FieldDescription, FieldSourcePath,
		FieldDestinationPath, FieldExecutablePath, FieldStopServices:
		return raw, nil

	case FieldKeepCopies, FieldCloudKeepCopies:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be a number: %q", ErrInvalidValue, field, raw)
		}
		return n, nil

	case FieldDisabled:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be true or false: %q", ErrInvalidValue, field, raw)
		}
		return b, nil

	case FieldBackupKind:
		return parseOption(BackupKinds, field, raw)

	case FieldCloudKind:
		return parseOption(CloudKinds, field, raw)

	default:
		return nil, fmt.Errorf("%w: unknown or read-only field %q", ErrInvalidValue, field)
	}
}

func parseOption(catalog []Option[string], field, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return (*Option[string])(nil), nil
	}

	opt, ok := FindOptionFold(catalog, raw)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a valid %s", ErrInvalidValue, raw, field)
	}
	return opt, nil
}

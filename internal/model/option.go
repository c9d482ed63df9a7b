package model

import "strings"

// Option is an immutable (value, label) pair for a selectable enumeration.
type Option[T comparable] struct {
	Value T      `json:"value"`
	Label string `json:"label"`
}

func (o Option[T]) String() string {
	return o.Label
}

// SameOption compares two *Option[T] field values by value. A nil pointer
// and an untyped nil are both "unset".
func SameOption[T comparable](a, b any) bool {
	oa, _ := a.(*Option[T])
	ob, _ := b.(*Option[T])
	if oa == nil || ob == nil {
		return oa == nil && ob == nil
	}
	return *oa == *ob
}

// FindOption returns the catalog entry whose value matches v.
func FindOption[T comparable](catalog []Option[T], v T) (*Option[T], bool) {
	for i := range catalog {
		if catalog[i].Value == v {
			return &catalog[i], true
		}
	}
	return nil, false
}

// FindOptionFold is FindOption for string catalogs, ignoring case.
func FindOptionFold(catalog []Option[string], v string) (*Option[string], bool) {
	for i := range catalog {
		if strings.EqualFold(catalog[i].Value, v) {
			return &catalog[i], true
		}
	}
	return nil, false
}

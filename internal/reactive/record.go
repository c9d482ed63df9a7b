// Package reactive implements a schema-driven record whose derived fields are
// recomputed synchronously whenever the mutable fields they read change.
package reactive

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
)

var (
	ErrUnknownField  = errors.New("unknown field")
	ErrReadOnlyField = errors.New("field is read-only")
	ErrInvalidSchema = errors.New("invalid schema")
)

// Getter reads the current value of a field by name.
type Getter interface {
	Get(name string) any
}

// EqualFunc reports whether two field values are the same. A Set whose new
// value is equal to the current one is a no-op.
type EqualFunc func(a, b any) bool

type Field struct {
	Name     string
	Default  any
	Equal    EqualFunc
	Validate func(v any) error
}

// Derivation is a read-only field computed from mutable fields only.
type Derivation struct {
	Name      string
	DependsOn []string
	Compute   func(g Getter) any
	Equal     EqualFunc
}

type Schema struct {
	Fields  []Field
	Derived []Derivation
}

type Change struct {
	Field string
	Old   any
	New   any
}

type Handler func(Change)

type subscription struct {
	id      uint64
	field   string
	handler Handler
}

type values map[string]any

func (v values) Get(name string) any {
	return v[name]
}

type Record struct {
	// applyMu serialises Set so that notifications are delivered in the
	// order the changes were applied.
	applyMu sync.Mutex

	mu      sync.RWMutex
	fields  map[string]Field
	derived map[string]Derivation
	deps    map[string][]Derivation
	values  values

	subMu  sync.RWMutex
	subs   []subscription
	nextID atomic.Uint64
}

func New(schema Schema) (*Record, error) {
	r := &Record{
		fields:  make(map[string]Field, len(schema.Fields)),
		derived: make(map[string]Derivation, len(schema.Derived)),
		deps:    make(map[string][]Derivation),
		values:  make(values, len(schema.Fields)+len(schema.Derived)),
	}

	for _, f := range schema.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field without a name", ErrInvalidSchema)
		}
		if _, dup := r.fields[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Name)
		}
		r.fields[f.Name] = f
		r.values[f.Name] = f.Default
	}

	for _, d := range schema.Derived {
		if _, dup := r.fields[d.Name]; dup {
			return nil, fmt.Errorf("%w: derived field %q shadows a mutable field", ErrInvalidSchema, d.Name)
		}
		if _, dup := r.derived[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate derived field %q", ErrInvalidSchema, d.Name)
		}
		if d.Compute == nil || len(d.DependsOn) == 0 {
			return nil, fmt.Errorf("%w: derived field %q needs Compute and DependsOn", ErrInvalidSchema, d.Name)
		}

		for _, dep := range d.DependsOn {
			if _, ok := r.fields[dep]; !ok {
				return nil, fmt.Errorf("%w: %q depends on unknown field %q", ErrInvalidSchema, d.Name, dep)
			}
			r.deps[dep] = append(r.deps[dep], d)
		}

		r.derived[d.Name] = d
		r.values[d.Name] = d.Compute(r.values)
	}

	return r, nil
}

// MustNew is New for statically declared schemas.
func MustNew(schema Schema) *Record {
	r, err := New(schema)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Record) Get(name string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[name]
}

func (r *Record) Snapshot() map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := make(map[string]any, len(r.values))
	for k, v := range r.values {
		snap[k] = v
	}
	return snap
}

// Set stores value and recomputes every derived field that reads name. All
// change notifications are delivered before Set returns. Handlers must not
// call Set on the same record.
func (r *Record) Set(name string, value any) error {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	changes, err := r.apply(name, value)
	if err != nil {
		return err
	}

	r.deliver(changes)
	return nil
}

func (r *Record) apply(name string, value any) ([]Change, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.derived[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrReadOnlyField, name)
	}

	f, ok := r.fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}

	if f.Validate != nil {
		if err := f.Validate(value); err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", name, err)
		}
	}

	old := r.values[name]
	if equal(f.Equal, old, value) {
		return nil, nil
	}

	r.values[name] = value
	changes := []Change{{Field: name, Old: old, New: value}}

	for _, d := range r.deps[name] {
		prev := r.values[d.Name]
		next := d.Compute(r.values)
		if equal(d.Equal, prev, next) {
			continue
		}

		r.values[d.Name] = next
		changes = append(changes, Change{Field: d.Name, Old: prev, New: next})
	}

	return changes, nil
}

func (r *Record) deliver(changes []Change) {
	if len(changes) == 0 {
		return
	}

	r.subMu.RLock()
	subs := slices.Clone(r.subs)
	r.subMu.RUnlock()

	for _, c := range changes {
		for _, s := range subs {
			if s.field == "" || s.field == c.Field {
				s.handler(c)
			}
		}
	}
}

// OnFieldChanged registers h for changes of a single field and returns a
// function that removes the subscription.
func (r *Record) OnFieldChanged(name string, h Handler) func() {
	return r.subscribe(name, h)
}

// OnChange registers h for changes of any field.
func (r *Record) OnChange(h Handler) func() {
	return r.subscribe("", h)
}

func (r *Record) subscribe(field string, h Handler) func() {
	id := r.nextID.Add(1)

	r.subMu.Lock()
	r.subs = append(r.subs, subscription{id: id, field: field, handler: h})
	r.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.subMu.Lock()
			defer r.subMu.Unlock()
			r.subs = slices.DeleteFunc(r.subs, func(s subscription) bool {
				return s.id == id
			})
		})
	}
}

// Value returns the named field as T, or the zero T when the field is unset
// or holds another type.
func Value[T any](g Getter, name string) T {
	v, _ := g.Get(name).(T)
	return v
}

func equal(fn EqualFunc, a, b any) bool {
	if fn != nil {
		return fn(a, b)
	}
	return DefaultEqual(a, b)
}

// DefaultEqual compares comparable values with == and falls back to
// reflect.DeepEqual for everything else.
func DefaultEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if reflect.ValueOf(a).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

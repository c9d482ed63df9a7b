// Package command binds user-triggered actions to enablement predicates that
// are re-evaluated whenever a watched field changes.
package command

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"basecfg/internal/metrics"
	"basecfg/internal/reactive"

	"go.uber.org/zap"
)

// FieldSource is anything that reports field changes by name, usually a
// reactive.Record or a model.JobConfig.
type FieldSource interface {
	OnFieldChanged(field string, h reactive.Handler) func()
}

type Action func(ctx context.Context) error

type Predicate func() bool

type watch struct {
	source FieldSource
	fields []string
}

type subscriber struct {
	id uint64
	fn func(enabled bool)
}

type Gate struct {
	name      string
	action    Action
	async     bool
	predicate Predicate
	watches   []watch
	logger    *zap.Logger
	recorder  metrics.Recorder

	// evalMu serialises re-evaluation so enablement notifications arrive in
	// the order the transitions happened.
	evalMu  sync.Mutex
	mu      sync.Mutex
	enabled bool

	running atomic.Bool
	wg      sync.WaitGroup

	subMu  sync.RWMutex
	subs   []subscriber
	nextID atomic.Uint64

	unwatch []func()
}

type Option func(*Gate)

// WithPredicate sets the enablement predicate. Without one the gate is
// always enabled (async gates additionally require not running).
func WithPredicate(p Predicate) Option {
	return func(g *Gate) {
		g.predicate = p
	}
}

// WatchFields re-evaluates the gate whenever one of fields changes on source.
func WatchFields(source FieldSource, fields ...string) Option {
	return func(g *Gate) {
		g.watches = append(g.watches, watch{source: source, fields: fields})
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Gate) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(g *Gate) {
		if r != nil {
			g.recorder = r
		}
	}
}

// New creates a synchronous gate: Invoke runs the action on the caller's
// goroutine.
func New(name string, action Action, opts ...Option) *Gate {
	return newGate(name, action, false, opts)
}

// NewAsync creates a gate whose action runs on its own goroutine. At most one
// invocation is in flight; further calls are ignored until it finishes.
func NewAsync(name string, action Action, opts ...Option) *Gate {
	return newGate(name, action, true, opts)
}

func newGate(name string, action Action, async bool, opts []Option) *Gate {
	g := &Gate{
		name:     name,
		action:   action,
		async:    async,
		logger:   zap.NewNop(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(g)
	}

	g.enabled = g.evaluate()

	for _, w := range g.watches {
		for _, field := range w.fields {
			g.unwatch = append(g.unwatch, w.source.OnFieldChanged(field, func(reactive.Change) {
				g.Reevaluate()
			}))
		}
	}

	return g
}

func (g *Gate) Name() string {
	return g.name
}

func (g *Gate) Async() bool {
	return g.async
}

func (g *Gate) Running() bool {
	return g.running.Load()
}

func (g *Gate) evaluate() bool {
	if g.async && g.running.Load() {
		return false
	}
	return g.predicate == nil || g.predicate()
}

// IsEnabled evaluates the predicate against the current state.
func (g *Gate) IsEnabled() bool {
	return g.evaluate()
}

// Reevaluate recomputes enablement and notifies subscribers if it changed.
func (g *Gate) Reevaluate() {
	g.evalMu.Lock()
	defer g.evalMu.Unlock()

	now := g.evaluate()

	g.mu.Lock()
	changed := now != g.enabled
	g.enabled = now
	g.mu.Unlock()

	if !changed {
		return
	}

	g.subMu.RLock()
	subs := slices.Clone(g.subs)
	g.subMu.RUnlock()

	for _, s := range subs {
		s.fn(now)
	}
}

// OnEnabledChanged registers fn to be called with the new enablement each
// time it flips. The returned function removes the subscription.
func (g *Gate) OnEnabledChanged(fn func(enabled bool)) func() {
	id := g.nextID.Add(1)

	g.subMu.Lock()
	g.subs = append(g.subs, subscriber{id: id, fn: fn})
	g.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.subMu.Lock()
			defer g.subMu.Unlock()
			g.subs = slices.DeleteFunc(g.subs, func(s subscriber) bool {
				return s.id == id
			})
		})
	}
}

// Invoke runs the action if the gate is enabled and reports whether it did.
// Invoking a disabled gate is a no-op. Async actions run detached from ctx
// cancellation and cannot be interrupted once started.
func (g *Gate) Invoke(ctx context.Context) bool {
	if !g.async {
		if !g.IsEnabled() {
			g.skip("disabled")
			return false
		}
		g.run(ctx)
		return true
	}

	if g.predicate != nil && !g.predicate() {
		g.skip("disabled")
		return false
	}
	if !g.running.CompareAndSwap(false, true) {
		g.skip("already running")
		return false
	}

	g.Reevaluate()

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			g.running.Store(false)
			g.Reevaluate()
		}()

		g.run(context.WithoutCancel(ctx))
	}()

	return true
}

func (g *Gate) run(ctx context.Context) {
	start := time.Now()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("command panicked: %v", r)
			}
		}()
		return g.action(ctx)
	}()

	d := time.Since(start)
	g.recorder.ObserveCommand(g.name, d, err)

	if err != nil {
		g.logger.Warn("command failed",
			zap.String("command", g.name),
			zap.Duration("took", d),
			zap.Error(err))
		return
	}

	g.logger.Debug("command finished",
		zap.String("command", g.name),
		zap.Duration("took", d))
}

func (g *Gate) skip(reason string) {
	g.recorder.IncCommandSkipped(g.name)
	g.logger.Debug("command skipped",
		zap.String("command", g.name),
		zap.String("reason", reason))
}

// Wait blocks until every in-flight async invocation has finished.
func (g *Gate) Wait() {
	g.wg.Wait()
}

// Close stops watching fields. In-flight invocations are not interrupted.
func (g *Gate) Close() {
	g.mu.Lock()
	unwatch := g.unwatch
	g.unwatch = nil
	g.mu.Unlock()

	for _, fn := range unwatch {
		fn()
	}
}

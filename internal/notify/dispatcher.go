// Package notify sends test notifications through the Telegram Bot API and
// tracks the lifecycle of the single in-flight dispatch.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"basecfg/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL      = "https://api.telegram.org"
	DefaultFallbackText = "Test message from the backup configurator."

	maxBodyBytes = 64 << 10
)

// Doer is the outbound transport, normally a shared *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request is built fresh for every attempt and must never be logged as is.
type Request struct {
	Token  string
	ChatID string
	Text   string
}

func (r Request) String() string {
	return fmt.Sprintf("chat_id=%s token=<redacted>", r.ChatID)
}

type TransitionFunc func(from, to State)

type Dispatcher struct {
	client   Doer
	baseURL  string
	fallback string
	logger   *zap.Logger
	recorder metrics.Recorder

	// transitionMu keeps transition callbacks in state order.
	transitionMu sync.Mutex

	mu    sync.Mutex
	state State
	last  Outcome
	subs  []TransitionFunc
}

type Option func(*Dispatcher)

func WithBaseURL(u string) Option {
	return func(d *Dispatcher) {
		if u != "" {
			d.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithFallbackText(text string) Option {
	return func(d *Dispatcher) {
		if strings.TrimSpace(text) != "" {
			d.fallback = strings.TrimSpace(text)
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// New creates a dispatcher on top of client. A nil client gets a plain
// *http.Client with no timeout.
func New(client Doer, opts ...Option) *Dispatcher {
	if client == nil {
		client = &http.Client{}
	}

	d := &Dispatcher{
		client:   client,
		baseURL:  DefaultBaseURL,
		fallback: DefaultFallbackText,
		logger:   zap.NewNop(),
		recorder: metrics.NoopRecorder{},
		last:     Outcome{Phase: PhaseIdle, Status: StatusReady},
	}
	for _, opt := range opts {
		opt(d)
	}

	return d
}

// OnTransition registers fn for every state change. Callbacks run on the
// sending goroutine and must not call Send.
func (d *Dispatcher) OnTransition(fn TransitionFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subs = append(d.subs, fn)
}

func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// LastOutcome returns the outcome of the most recent Send call.
func (d *Dispatcher) LastOutcome() Outcome {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Send performs a single delivery attempt. Remote and transport failures are
// reported through the returned Outcome, never retried.
func (d *Dispatcher) Send(ctx context.Context, req Request) Outcome {
	token := strings.TrimSpace(req.Token)
	chatID := strings.TrimSpace(req.ChatID)

	if token == "" || chatID == "" {
		out := Outcome{
			Phase:  PhaseFailed,
			Status: StatusMissingCredentials,
			Err:    fmt.Errorf("%w: bot token and chat id are required", ErrInvalidArgument),
		}
		d.record(out, 0, metrics.ResultSkipped)
		return out
	}

	if !d.transition(func(s State) (State, bool) {
		return State{Phase: PhaseSending}, s.Phase == PhaseIdle
	}) {
		out := Outcome{
			Phase:  PhaseFailed,
			Status: StatusAlreadySending,
			Err:    ErrAlreadyInProgress,
		}
		d.record(out, 0, metrics.ResultSkipped)
		return out
	}
	d.recorder.SetDispatchInFlight(true)

	defer func() {
		d.transition(func(State) (State, bool) {
			return State{Phase: PhaseIdle}, true
		})
		d.recorder.SetDispatchInFlight(false)
	}()

	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = d.fallback
	}

	attemptID := uuid.NewString()
	log := d.logger.With(
		zap.String("attempt_id", attemptID),
		zap.String("chat_id", chatID))

	start := time.Now()
	out, result := d.post(ctx, token, chatID, text)
	took := time.Since(start)
	out.AttemptID = attemptID

	if out.Phase == PhaseSucceeded {
		d.transition(func(State) (State, bool) {
			return State{Phase: PhaseSucceeded}, true
		})
		log.Info("notification sent", zap.Duration("took", took))
	} else {
		reason := out.Err.Error()
		d.transition(func(State) (State, bool) {
			return State{Phase: PhaseFailed, Reason: reason}, true
		})
		log.Warn("notification failed",
			zap.Duration("took", took),
			zap.String("reason", redact(reason, token)))
	}

	d.record(out, took, result)
	return out
}

func (d *Dispatcher) post(ctx context.Context, token, chatID, text string) (Outcome, metrics.ResultLabel) {
	form := url.Values{}
	form.Set("chat_id", chatID)
	form.Set("text", text)

	// The token goes into the path as is, exactly as the Bot API documents it.
	endpoint := d.baseURL + "/bot" + token + "/sendMessage"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return transportFailure(err, token), metrics.ResultFailed
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return transportFailure(err, token), metrics.ResultFailed
	}

	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return Outcome{Phase: PhaseSucceeded, Status: StatusSent}, metrics.ResultSuccess
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	body := string(b)

	return Outcome{
		Phase:  PhaseFailed,
		Status: fmt.Sprintf(StatusRejectedFormat, resp.StatusCode, body),
		Err:    &RemoteRejectedError{StatusCode: resp.StatusCode, Body: body},
	}, metrics.ResultRejected
}

func transportFailure(err error, token string) Outcome {
	cause := redact(err.Error(), token)

	// *url.Error carries the request URL, which embeds the token.
	inner := err
	if ue, ok := errors.AsType[*url.Error](err); ok {
		inner = ue.Err
	}

	return Outcome{
		Phase:  PhaseFailed,
		Status: fmt.Sprintf(StatusTransportFormat, cause),
		Err:    &TransportError{Cause: cause, Err: inner},
	}
}

func redact(s, token string) string {
	if token == "" {
		return s
	}
	s = strings.ReplaceAll(s, token, "<redacted>")
	if escaped := url.PathEscape(token); escaped != token {
		s = strings.ReplaceAll(s, escaped, "<redacted>")
	}
	return s
}

// transition applies next to the current state under the lock and, when it
// reports ok, delivers the change to subscribers.
func (d *Dispatcher) transition(next func(State) (State, bool)) bool {
	d.transitionMu.Lock()
	defer d.transitionMu.Unlock()

	d.mu.Lock()
	from := d.state
	to, ok := next(from)
	if !ok {
		d.mu.Unlock()
		return false
	}
	d.state = to
	subs := slices.Clone(d.subs)
	d.mu.Unlock()

	for _, fn := range subs {
		fn(from, to)
	}
	return true
}

func (d *Dispatcher) record(out Outcome, took time.Duration, result metrics.ResultLabel) {
	d.mu.Lock()
	d.last = out
	d.mu.Unlock()

	d.recorder.ObserveDispatch(took, result)
}

package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

type captured struct {
	method      string
	path        string
	contentType string
	chatID      string
	text        string
}

func telegramStub(t *testing.T, status int, body string) (*httptest.Server, *[]captured) {
	t.Helper()

	var mu sync.Mutex
	var calls []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())

		mu.Lock()
		calls = append(calls, captured{
			method:      r.Method,
			path:        r.RequestURI,
			contentType: r.Header.Get("Content-Type"),
			chatID:      r.PostForm.Get("chat_id"),
			text:        r.PostForm.Get("text"),
		})
		mu.Unlock()

		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)

	return srv, &calls
}

func TestSend_Success(t *testing.T) {
	srv, calls := telegramStub(t, http.StatusOK, `{"ok":true}`)
	d := New(srv.Client(), WithBaseURL(srv.URL))

	var transitions []string
	d.OnTransition(func(from, to State) {
		transitions = append(transitions, from.Phase.String()+"->"+to.Phase.String())
	})

	out := d.Send(context.Background(), Request{Token: "ABC", ChatID: "123", Text: "hi"})

	require.NoError(t, out.Err)
	assert.True(t, out.Succeeded())
	assert.Equal(t, StatusSent, out.Status)
	assert.NotEmpty(t, out.AttemptID)
	assert.Equal(t, PhaseIdle, d.State().Phase)
	assert.Equal(t, out, d.LastOutcome())
	assert.Equal(t, []string{"idle->sending", "sending->succeeded", "succeeded->idle"}, transitions)

	require.Len(t, *calls, 1)
	c := (*calls)[0]
	assert.Equal(t, http.MethodPost, c.method)
	assert.Equal(t, "/botABC/sendMessage", c.path)
	assert.Equal(t, "application/x-www-form-urlencoded", c.contentType)
	assert.Equal(t, "123", c.chatID)
	assert.Equal(t, "hi", c.text)
}

func TestSend_TrimsAndDefaultsText(t *testing.T) {
	srv, calls := telegramStub(t, http.StatusOK, `{"ok":true}`)
	d := New(srv.Client(), WithBaseURL(srv.URL+"/"))

	out := d.Send(context.Background(), Request{Token: " ABC ", ChatID: " 123 ", Text: "   "})
	require.NoError(t, out.Err)

	require.Len(t, *calls, 1)
	assert.Equal(t, "/botABC/sendMessage", (*calls)[0].path)
	assert.Equal(t, "123", (*calls)[0].chatID)
	assert.Equal(t, DefaultFallbackText, (*calls)[0].text)
}

func TestSend_CustomFallbackText(t *testing.T) {
	srv, calls := telegramStub(t, http.StatusOK, `{"ok":true}`)
	d := New(srv.Client(), WithBaseURL(srv.URL), WithFallbackText("ping"))

	d.Send(context.Background(), Request{Token: "ABC", ChatID: "123"})
	require.Len(t, *calls, 1)
	assert.Equal(t, "ping", (*calls)[0].text)
}

func TestSend_InvalidArgument(t *testing.T) {
	var called atomic.Bool
	d := New(doerFunc(func(*http.Request) (*http.Response, error) {
		called.Store(true)
		return nil, errors.New("unexpected call")
	}))

	var transitions int
	d.OnTransition(func(State, State) { transitions++ })

	for _, req := range []Request{
		{Token: "", ChatID: "123"},
		{Token: "   ", ChatID: "123"},
		{Token: "ABC", ChatID: ""},
		{Token: "ABC", ChatID: "\t"},
	} {
		out := d.Send(context.Background(), req)
		require.ErrorIs(t, out.Err, ErrInvalidArgument)
		assert.Equal(t, StatusMissingCredentials, out.Status)
	}

	assert.False(t, called.Load())
	assert.Zero(t, transitions)
	assert.Equal(t, PhaseIdle, d.State().Phase)
}

func TestSend_RemoteRejected(t *testing.T) {
	srv, _ := telegramStub(t, http.StatusForbidden, `{"ok":false}`)
	d := New(srv.Client(), WithBaseURL(srv.URL))

	var failed State
	d.OnTransition(func(_, to State) {
		if to.Phase == PhaseFailed {
			failed = to
		}
	})

	out := d.Send(context.Background(), Request{Token: "ABC", ChatID: "123", Text: "hi"})

	rejected, ok := errors.AsType[*RemoteRejectedError](out.Err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, rejected.StatusCode)
	assert.Equal(t, `{"ok":false}`, rejected.Body)
	assert.Contains(t, out.Status, "403")
	assert.Contains(t, out.Status, `{"ok":false}`)
	assert.Equal(t, PhaseFailed, out.Phase)
	assert.Contains(t, failed.Reason, "403")
	assert.Equal(t, PhaseIdle, d.State().Phase)
}

func TestSend_TransportFailureThenRecovers(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL, err := url.Parse(dead.URL)
	require.NoError(t, err)
	dead.Close()

	srv, calls := telegramStub(t, http.StatusOK, `{"ok":true}`)
	client := &http.Client{Timeout: 2 * time.Second}

	var attempts atomic.Int32
	d := New(doerFunc(func(r *http.Request) (*http.Response, error) {
		if attempts.Add(1) == 1 {
			r.URL.Host = deadURL.Host
		}
		return client.Do(r)
	}), WithBaseURL(srv.URL))

	out := d.Send(context.Background(), Request{Token: "SECRET-TOKEN", ChatID: "123", Text: "hi"})

	transport, ok := errors.AsType[*TransportError](out.Err)
	require.True(t, ok)
	assert.NotEmpty(t, transport.Cause)
	assert.NotContains(t, transport.Cause, "SECRET-TOKEN")
	assert.NotContains(t, out.Status, "SECRET-TOKEN")
	assert.True(t, strings.HasPrefix(out.Status, "Failed to send message: "))
	assert.Equal(t, PhaseIdle, d.State().Phase)
	assert.Empty(t, *calls)

	out = d.Send(context.Background(), Request{Token: "SECRET-TOKEN", ChatID: "123", Text: "again"})
	require.NoError(t, out.Err)
	assert.Len(t, *calls, 1)
}

func TestSend_TransportFailureFromDoer(t *testing.T) {
	boom := errors.New("connection refused")
	d := New(doerFunc(func(*http.Request) (*http.Response, error) {
		return nil, boom
	}))

	out := d.Send(context.Background(), Request{Token: "ABC", ChatID: "123"})
	require.ErrorIs(t, out.Err, boom)
	assert.Contains(t, out.Status, "connection refused")

	// Dispatcher is ready for the next attempt.
	assert.Equal(t, PhaseIdle, d.State().Phase)
	out = d.Send(context.Background(), Request{Token: "ABC", ChatID: "123"})
	require.ErrorIs(t, out.Err, boom)
}

func TestSend_AlreadyInProgress(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	d := New(doerFunc(func(*http.Request) (*http.Response, error) {
		close(entered)
		<-release
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
	}))

	done := make(chan Outcome, 1)
	go func() {
		done <- d.Send(context.Background(), Request{Token: "ABC", ChatID: "123"})
	}()

	<-entered
	assert.Equal(t, PhaseSending, d.State().Phase)

	second := d.Send(context.Background(), Request{Token: "ABC", ChatID: "123"})
	require.ErrorIs(t, second.Err, ErrAlreadyInProgress)

	close(release)
	first := <-done
	require.NoError(t, first.Err)
	assert.Equal(t, PhaseIdle, d.State().Phase)
}

func TestRequest_StringRedactsToken(t *testing.T) {
	s := Request{Token: "ABC", ChatID: "123"}.String()
	assert.NotContains(t, s, "ABC")
	assert.Contains(t, s, "123")
}

func TestSend_TokenUsedVerbatimInPath(t *testing.T) {
	srv, calls := telegramStub(t, http.StatusOK, `{"ok":true}`)
	d := New(srv.Client(), WithBaseURL(srv.URL))

	out := d.Send(context.Background(), Request{Token: "12,34:AB-c_d", ChatID: "1"})
	require.NoError(t, out.Err)

	require.Len(t, *calls, 1)
	assert.Equal(t, "/bot12,34:AB-c_d/sendMessage", (*calls)[0].path)
}

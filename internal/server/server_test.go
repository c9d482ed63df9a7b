package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"basecfg/internal/editor"
	"basecfg/internal/metrics"
	"basecfg/internal/model"
	"basecfg/internal/notify"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	api      *httptest.Server
	srv      *Server
	session  *editor.Session
	telegram *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	telegram := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/sendMessage") {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	reg := prometheus.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	d := notify.New(telegram.Client(), notify.WithBaseURL(telegram.URL), notify.WithRecorder(rec))
	sess := editor.NewSession(model.SeedBases(), d, editor.WithRecorder(rec))

	srv := NewServer(sess, 0, WithRegistry(reg))
	api := httptest.NewServer(srv.Handler())

	t.Cleanup(func() {
		api.Close()
		_ = srv.Stop(context.Background())
		sess.Wait()
		sess.Close()
		telegram.Close()
	})

	return &testEnv{api: api, srv: srv, session: sess, telegram: telegram}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, e.api.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestListAndGetBases(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/bases", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["bases"], 3)
	assert.Equal(t, "main-prod", body["selected"])

	code, body = env.do(t, http.MethodGet, "/bases/analytics", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Analytics", body["title"])
	assert.Equal(t, false, body["uses_cloud"])

	code, body = env.do(t, http.MethodGet, "/bases/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["error"], "base not found")
}

func TestPatchBase(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPatch, "/bases/main-prod", map[string]any{"keep_copies": -1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPatch, "/bases/main-prod", map[string]any{"cloud_kind": "Dropbox"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPatch, "/bases/main-prod", map[string]any{"tag": "analytics"})
	assert.Equal(t, http.StatusConflict, code)

	code, body := env.do(t, http.MethodPatch, "/bases/main-prod", map[string]any{
		"title":       "Sales",
		"cloud_kind":  "none",
		"keep_copies": 0,
		"tag":         "sales",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Sales", body["title"])
	assert.Equal(t, model.CloudKindNone, body["cloud_kind"])
	assert.Equal(t, false, body["uses_cloud"])
	assert.Equal(t, float64(0), body["keep_copies"])
	assert.Equal(t, "sales__YADiskToken", body["cloud_token_key"])

	code, _ = env.do(t, http.MethodGet, "/bases/main-prod", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSetBaseField(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPut, "/bases/analytics/fields/keepCopies", map[string]string{"value": "12"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(12), body["keep_copies"])

	code, body = env.do(t, http.MethodPut, "/bases/analytics/fields/backupKind", map[string]string{"value": "dt"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["requires_designer"])

	code, _ = env.do(t, http.MethodPut, "/bases/analytics/fields/requiresDesigner", map[string]string{"value": "false"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPut, "/bases/analytics/fields/keepCopies", map[string]string{"value": "-3"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestSelection(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPost, "/selection", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(t, http.MethodPost, "/selection", map[string]string{"tag": "nope"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(t, http.MethodDelete, "/selection", nil)
	require.Equal(t, http.StatusNoContent, code)
	assert.Nil(t, env.session.Selected())
	assert.False(t, commandEnabled(t, env, editor.CommandDuplicate))

	code, body := env.do(t, http.MethodPost, "/selection", map[string]string{"tag": "analytics"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "analytics", body["selected"])
	assert.True(t, commandEnabled(t, env, editor.CommandDuplicate))
}

func commandEnabled(t *testing.T, env *testEnv, name string) bool {
	t.Helper()

	_, body := env.do(t, http.MethodGet, "/commands", nil)
	for _, raw := range body["commands"].([]any) {
		c := raw.(map[string]any)
		if c["name"] == name {
			return c["enabled"].(bool)
		}
	}
	t.Fatalf("command %s not listed", name)
	return false
}

func TestSettingsHideSecrets(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPatch, "/settings", map[string]any{"after_backup_action": 7})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := env.do(t, http.MethodPatch, "/settings", map[string]any{
		"after_backup_action": 1,
		"bot_token":           "123:SECRET",
		"chat_id":             "42",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["after_backup_action"])
	assert.Equal(t, "42", body["chat_id"])

	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "SECRET")
	assert.Equal(t, true, body["secrets_set"].(map[string]any)[editor.FieldBotToken])

	assert.True(t, commandEnabled(t, env, editor.CommandSendTelegramTest))
}

func TestInvokeCommands(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPost, "/commands/format-disk/invoke", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, body := env.do(t, http.MethodPost, "/commands/send-telegram-test/invoke", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, body["invoked"])

	code, body = env.do(t, http.MethodPost, "/commands/delete/invoke", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Demo: deleting 'Main sales base' is disabled.", body["status"])

	code, _ = env.do(t, http.MethodPatch, "/settings", map[string]any{"bot_token": "ABC", "chat_id": "1"})
	require.Equal(t, http.StatusOK, code)

	code, body = env.do(t, http.MethodPost, "/commands/send-telegram-test/invoke?wait=true", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["invoked"])
	assert.Equal(t, notify.StatusSent, body["status"])

	_, body = env.do(t, http.MethodGet, "/status", nil)
	assert.Equal(t, notify.StatusSent, body["status"])
	assert.Equal(t, false, body["sending"])

	resp, err := http.Get(env.api.URL + "/metrics")
	require.NoError(t, err)
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)
	metricsBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(metricsBody), `basecfg_dispatch_results_total{result="success"} 1`)
	assert.Contains(t, string(metricsBody), `basecfg_command_skipped_total{command="send-telegram-test"} 1`)
}

func TestEventsFeed(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.api.URL, "http") + "/events"
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	defer func(ws *websocket.Conn) {
		_ = ws.Close()
	}(ws)

	code, _ := env.do(t, http.MethodPatch, "/bases/analytics", map[string]any{"title": "BI"})
	require.Equal(t, http.StatusOK, code)

	code, _ = env.do(t, http.MethodPatch, "/settings", map[string]any{"bot_token": "ABC"})
	require.Equal(t, http.StatusOK, code)

	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var ev Event
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, EventBase, ev.Kind)
	assert.Equal(t, "analytics", ev.Base)
	assert.Equal(t, model.FieldTitle, ev.Field)
	assert.Equal(t, "BI", ev.Value)

	ev = Event{}
	require.NoError(t, ws.ReadJSON(&ev))
	assert.Equal(t, EventSession, ev.Kind)
	assert.Equal(t, editor.FieldBotToken, ev.Field)
	assert.True(t, ev.Secret)
	assert.Nil(t, ev.Value)
}

func TestStop(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/stop", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "stopping", body["status"])

	select {
	case <-env.srv.StopCh():
	case <-time.After(time.Second):
		t.Fatal("stop signal not delivered")
	}
}

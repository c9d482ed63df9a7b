package server

import (
	"net/http"
	"sync"
	"time"

	"basecfg/internal/editor"
	"basecfg/internal/logger"
	"basecfg/internal/model"
	"basecfg/internal/reactive"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	EventSession = "session"
	EventBase    = "base"
	EventCommand = "command"

	clientBuffer = 64
	writeWait    = 10 * time.Second
)

// Event is one entry of the /events feed. Secret values are never sent;
// Secret is set instead.
type Event struct {
	Kind    string    `json:"kind"`
	Base    string    `json:"base,omitempty"`
	Field   string    `json:"field,omitempty"`
	Value   any       `json:"value,omitempty"`
	Secret  bool      `json:"secret,omitempty"`
	Command string    `json:"command,omitempty"`
	Enabled *bool     `json:"enabled,omitempty"`
	At      time.Time `json:"at"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type client struct {
	send chan Event
	done chan struct{}
	once sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

// hub fans session, base and command changes out to websocket clients.
// Slow clients lose events rather than block the writer.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	unwatch []func()
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

func (h *hub) add() *client {
	c := &client{
		send: make(chan Event, clientBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.stop()
}

func (h *hub) broadcast(ev Event) {
	ev.At = time.Now()

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			logger.Log.Warn("dropping event for slow client",
				zap.String("kind", ev.Kind),
				zap.String("field", ev.Field))
		}
	}
}

func (h *hub) watch(sess *editor.Session) {
	unwatch := []func(){
		sess.OnChange(func(ch reactive.Change) {
			h.broadcast(sessionEvent(ch))
		}),
	}

	for _, b := range sess.Bases() {
		unwatch = append(unwatch, b.OnChange(func(ch reactive.Change) {
			h.broadcast(Event{
				Kind:  EventBase,
				Base:  b.Tag(),
				Field: ch.Field,
				Value: ch.New,
			})
		}))
	}

	for _, g := range sess.Commands() {
		unwatch = append(unwatch, g.OnEnabledChanged(func(enabled bool) {
			h.broadcast(Event{
				Kind:    EventCommand,
				Command: g.Name(),
				Enabled: &enabled,
			})
		}))
	}

	h.mu.Lock()
	h.unwatch = append(h.unwatch, unwatch...)
	h.mu.Unlock()
}

func sessionEvent(ch reactive.Change) Event {
	ev := Event{Kind: EventSession, Field: ch.Field}

	switch {
	case editor.IsSecret(ch.Field):
		ev.Secret = true
	case ch.Field == editor.FieldSelectedBase:
		if b, _ := ch.New.(*model.JobConfig); b != nil {
			ev.Value = b.Tag()
		}
	default:
		ev.Value = ch.New
	}
	return ev
}

func (h *hub) close() {
	h.mu.Lock()
	unwatch := h.unwatch
	h.unwatch = nil
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, fn := range unwatch {
		fn()
	}
	for _, c := range clients {
		c.stop()
	}
}

func (s *Server) handleEvents(c echo.Context) error {
	// Registered before the upgrade so no change after the handshake is missed.
	cl := s.events.add()
	defer s.events.remove(cl)

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Log.Warn("failed to upgrade the websocket", zap.Error(err))
		return nil
	}
	defer func(ws *websocket.Conn) {
		_ = ws.Close()
	}(ws)

	// Reads only detect the peer going away.
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				cl.stop()
				return
			}
		}
	}()

	for {
		select {
		case ev := <-cl.send:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteJSON(ev); err != nil {
				logger.Log.Debug("events client gone", zap.Error(err))
				return nil
			}
		case <-cl.done:
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return nil
		}
	}
}

package server

import (
	"net/http"

	"basecfg/internal/editor"

	"github.com/labstack/echo/v4"
)

type commandView struct {
	Name    string `json:"name"`
	Async   bool   `json:"async"`
	Enabled bool   `json:"enabled"`
	Running bool   `json:"running"`
}

func commandViews(sess *editor.Session) []commandView {
	gates := sess.Commands()
	views := make([]commandView, 0, len(gates))
	for _, g := range gates {
		views = append(views, commandView{
			Name:    g.Name(),
			Async:   g.Async(),
			Enabled: g.IsEnabled(),
			Running: g.Running(),
		})
	}
	return views
}

func (s *Server) handleListCommands(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"commands": commandViews(s.session),
	})
}

// handleInvoke runs a command. With ?wait=true an async command is awaited
// so the returned status reflects its outcome.
func (s *Server) handleInvoke(c echo.Context) error {
	g, err := s.session.Command(c.Param("name"))
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}

	invoked := g.Invoke(c.Request().Context())
	if invoked && g.Async() && c.QueryParam("wait") == "true" {
		g.Wait()
	}

	code := http.StatusOK
	if !invoked {
		code = http.StatusConflict
	}
	return c.JSON(code, map[string]any{
		"command": g.Name(),
		"invoked": invoked,
		"status":  s.session.Status(),
	})
}

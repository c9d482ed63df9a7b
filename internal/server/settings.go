package server

import (
	"net/http"

	"basecfg/internal/editor"
	"basecfg/internal/model"

	"github.com/labstack/echo/v4"
)

type selectRequest struct {
	Tag string `json:"tag" validate:"required"`
}

func (s *Server) handleSelect(c echo.Context) error {
	var req selectRequest
	if err := bindValid(c, &req); err != nil {
		return errorJSON(c, statusFor(err), err)
	}

	if err := s.session.Select(req.Tag); err != nil {
		return errorJSON(c, statusFor(err), err)
	}
	return c.JSON(http.StatusOK, map[string]string{"selected": req.Tag})
}

func (s *Server) handleClearSelection(c echo.Context) error {
	s.session.SelectNone()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, s.session.Snapshot())
}

// patchSettingsRequest carries session fields. Secrets may be written but
// are never echoed back.
type patchSettingsRequest struct {
	AfterBackupAction  *int    `json:"after_backup_action" validate:"omitempty,oneof=1 2 3"`
	TelegramEnabled    *bool   `json:"telegram_enabled"`
	NotifyOnlyOnErrors *bool   `json:"notify_only_on_errors"`
	BotToken           *string `json:"bot_token" validate:"omitempty,max=256"`
	ChatID             *string `json:"chat_id" validate:"omitempty,max=64"`
	SecondaryToken     *string `json:"secondary_token" validate:"omitempty,max=256"`
	SecondaryChatID    *string `json:"secondary_chat_id" validate:"omitempty,max=64"`
	Message            *string `json:"message" validate:"omitempty,max=4096"`
	CloudToken         *string `json:"cloud_token"`
	DesignerLogin      *string `json:"designer_login"`
	DesignerPassword   *string `json:"designer_password"`
}

func (r patchSettingsRequest) assignments() []fieldValue {
	var out []fieldValue
	str := func(field string, v *string) {
		if v != nil {
			out = append(out, fieldValue{field, *v})
		}
	}
	flag := func(field string, v *bool) {
		if v != nil {
			out = append(out, fieldValue{field, *v})
		}
	}

	if r.AfterBackupAction != nil {
		opt, _ := model.FindOption(model.AfterBackupActions, model.AfterBackupAction(*r.AfterBackupAction))
		out = append(out, fieldValue{editor.FieldAfterBackupAction, opt})
	}
	flag(editor.FieldTelegramEnabled, r.TelegramEnabled)
	flag(editor.FieldNotifyOnlyOnErrors, r.NotifyOnlyOnErrors)
	str(editor.FieldBotToken, r.BotToken)
	str(editor.FieldChatID, r.ChatID)
	str(editor.FieldSecondaryToken, r.SecondaryToken)
	str(editor.FieldSecondaryChatID, r.SecondaryChatID)
	str(editor.FieldMessage, r.Message)
	str(editor.FieldCloudToken, r.CloudToken)
	str(editor.FieldDesignerLogin, r.DesignerLogin)
	str(editor.FieldDesignerPassword, r.DesignerPassword)

	return out
}

func (s *Server) handlePatchSettings(c echo.Context) error {
	var req patchSettingsRequest
	if err := bindValid(c, &req); err != nil {
		return errorJSON(c, statusFor(err), err)
	}

	for _, a := range req.assignments() {
		if err := s.session.Set(a.field, a.value); err != nil {
			return errorJSON(c, statusFor(err), err)
		}
	}
	return c.JSON(http.StatusOK, s.session.Snapshot())
}

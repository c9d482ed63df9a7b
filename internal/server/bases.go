package server

import (
	"errors"
	"fmt"
	"net/http"

	"basecfg/internal/editor"
	"basecfg/internal/model"
	"basecfg/internal/reactive"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

var errTagTaken = errors.New("tag is already used by another base")

func statusFor(err error) int {
	if he, ok := errors.AsType[*echo.HTTPError](err); ok {
		return he.Code
	}
	if _, ok := errors.AsType[validator.ValidationErrors](err); ok {
		return http.StatusBadRequest
	}

	switch {
	case errors.Is(err, editor.ErrBaseNotFound), errors.Is(err, editor.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, errTagTaken):
		return http.StatusConflict
	case errors.Is(err, model.ErrInvalidValue),
		errors.Is(err, reactive.ErrUnknownField),
		errors.Is(err, reactive.ErrReadOnlyField):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleListBases(c echo.Context) error {
	bases := s.session.Bases()
	snaps := make([]model.BaseSnapshot, 0, len(bases))
	for _, b := range bases {
		snaps = append(snaps, b.Snapshot())
	}

	selected := ""
	if sel := s.session.Selected(); sel != nil {
		selected = sel.Tag()
	}

	return c.JSON(http.StatusOK, map[string]any{
		"bases":    snaps,
		"selected": selected,
	})
}

func (s *Server) handleGetBase(c echo.Context) error {
	b, err := s.session.Base(c.Param("tag"))
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}
	return c.JSON(http.StatusOK, b.Snapshot())
}

type patchBaseRequest struct {
	Tag             *string `json:"tag" validate:"omitempty,max=64"`
	Title           *string `json:"title" validate:"omitempty,max=256"`
	Description     *string `json:"description"`
	BackupKind      *string `json:"backup_kind"`
	SourcePath      *string `json:"source_path"`
	DestinationPath *string `json:"destination_path"`
	ExecutablePath  *string `json:"executable_path"`
	KeepCopies      *int    `json:"keep_copies" validate:"omitempty,gte=0"`
	CloudKind       *string `json:"cloud_kind"`
	CloudKeepCopies *int    `json:"cloud_keep_copies" validate:"omitempty,gte=0"`
	StopServices    *string `json:"stop_services"`
	Disabled        *bool   `json:"disabled"`
}

type fieldValue struct {
	field string
	value any
}

// assignments lists the fields present in the request. Options arrive as
// catalog values and are resolved here; the tag goes last so earlier
// fields are not affected by a rename.
func (r patchBaseRequest) assignments() ([]fieldValue, error) {
	var out []fieldValue
	str := func(field string, v *string) {
		if v != nil {
			out = append(out, fieldValue{field, *v})
		}
	}
	num := func(field string, v *int) {
		if v != nil {
			out = append(out, fieldValue{field, *v})
		}
	}
	opt := func(field string, v *string) error {
		if v == nil {
			return nil
		}
		parsed, err := model.ParseField(field, *v)
		if err != nil {
			return err
		}
		out = append(out, fieldValue{field, parsed})
		return nil
	}

	str(model.FieldTitle, r.Title)
	str(model.FieldDescription, r.Description)
	if err := opt(model.FieldBackupKind, r.BackupKind); err != nil {
		return nil, err
	}
	str(model.FieldSourcePath, r.SourcePath)
	str(model.FieldDestinationPath, r.DestinationPath)
	str(model.FieldExecutablePath, r.ExecutablePath)
	num(model.FieldKeepCopies, r.KeepCopies)
	if err := opt(model.FieldCloudKind, r.CloudKind); err != nil {
		return nil, err
	}
	num(model.FieldCloudKeepCopies, r.CloudKeepCopies)
	str(model.FieldStopServices, r.StopServices)
	if r.Disabled != nil {
		out = append(out, fieldValue{model.FieldDisabled, *r.Disabled})
	}
	str(model.FieldTag, r.Tag)

	return out, nil
}

func (s *Server) handlePatchBase(c echo.Context) error {
	b, err := s.session.Base(c.Param("tag"))
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}

	var req patchBaseRequest
	if err := bindValid(c, &req); err != nil {
		return errorJSON(c, statusFor(err), err)
	}

	assignments, err := req.assignments()
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}
	if req.Tag != nil {
		if err := s.checkTagFree(b, *req.Tag); err != nil {
			return errorJSON(c, statusFor(err), err)
		}
	}

	for _, a := range assignments {
		if err := b.Set(a.field, a.value); err != nil {
			return errorJSON(c, statusFor(err), err)
		}
	}

	return c.JSON(http.StatusOK, b.Snapshot())
}

type setFieldRequest struct {
	Value string `json:"value"`
}

// handleSetBaseField assigns one field from its textual form.
func (s *Server) handleSetBaseField(c echo.Context) error {
	b, err := s.session.Base(c.Param("tag"))
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}

	var req setFieldRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, statusFor(err), err)
	}

	field := c.Param("field")
	value, err := model.ParseField(field, req.Value)
	if err != nil {
		return errorJSON(c, statusFor(err), err)
	}
	if field == model.FieldTag {
		if err := s.checkTagFree(b, req.Value); err != nil {
			return errorJSON(c, statusFor(err), err)
		}
	}

	if err := b.Set(field, value); err != nil {
		return errorJSON(c, statusFor(err), err)
	}
	return c.JSON(http.StatusOK, b.Snapshot())
}

func (s *Server) checkTagFree(b *model.JobConfig, tag string) error {
	other, err := s.session.Base(tag)
	if err == nil && other != b {
		return fmt.Errorf("%w: %s", errTagTaken, tag)
	}
	return nil
}

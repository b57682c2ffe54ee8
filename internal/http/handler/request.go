package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"commonthread/internal/auth"
	"commonthread/internal/rbac"
	apperrors "commonthread/pkg/errors"
	"commonthread/pkg/validator"

	"github.com/labstack/echo/v4"
)

const (
	contentTypeJSON          = "application/json"
	maxStrictBodyBytes int64 = 1 << 20 // Keep parser bound aligned with global body limit.
)

func bindStrictJSON(c echo.Context, dst interface{}) error {
	if !strings.HasPrefix(strings.ToLower(c.Request().Header.Get(echo.HeaderContentType)), contentTypeJSON) {
		return apperrors.Validation(apperrors.CodeBadJSON, msgContentTypeJSON)
	}

	body := io.LimitReader(c.Request().Body, maxStrictBodyBytes)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return apperrors.Validation(apperrors.CodeBadJSON, msgInvalidRequestBody)
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return apperrors.Validation(apperrors.CodeBadJSON, msgInvalidRequestBody)
	}

	return nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (int64, error) {
	return parseID(name, c.Param(name))
}

func parseID(name, raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation(apperrors.CodeBadResourceID, fmt.Sprintf(msgInvalidIDFmt, name))
	}
	return id, nil
}

// authorizedID returns the id of kind the guard authorized the request
// against. A body id, when sent, must name the same resource.
func authorizedID(c echo.Context, kind rbac.ResourceKind, field string, bodyID int64) (int64, error) {
	res := auth.GetResource(c)
	if res.Kind != kind || res.ID <= 0 {
		return 0, missingField(field)
	}
	if bodyID > 0 && bodyID != res.ID {
		return 0, apperrors.Validation(apperrors.CodeBadRequest, fmt.Sprintf(msgResourceMismatchFmt, field))
	}
	return res.ID, nil
}

func missingField(name string) error {
	return apperrors.Validation(apperrors.CodeMissingField, fmt.Sprintf(msgMissingFieldFmt, name))
}

func invalidField(err error) error {
	return apperrors.Validation(apperrors.CodeBadRequest, err.Error())
}

// parseDate reads an optional YYYY-MM-DD value, falling back to today.
func parseDate(value string, now time.Time) (time.Time, error) {
	d, err := validator.Date(value)
	if err != nil {
		return time.Time{}, apperrors.Validation(apperrors.CodeBadDateFormat, err.Error())
	}
	if d.IsZero() {
		y, m, day := now.UTC().Date()
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
	}
	return d, nil
}

// parseOptionalDate returns nil when value is empty.
func parseOptionalDate(value *string) (*time.Time, error) {
	if value == nil || *value == "" {
		return nil, nil
	}
	d, err := validator.Date(*value)
	if err != nil {
		return nil, apperrors.Validation(apperrors.CodeBadDateFormat, err.Error())
	}
	return &d, nil
}

// flexibleID accepts a JSON number or a numeric string, as older clients
// send both.
type flexibleID int64

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return err
	}
	*f = flexibleID(id)
	return nil
}

func (f *flexibleID) ptr() *int64 {
	if f == nil || *f == 0 {
		return nil
	}
	v := int64(*f)
	return &v
}

func (f flexibleID) value() int64 {
	return int64(f)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(validator.DateLayout)
}

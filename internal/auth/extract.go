package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"commonthread/internal/rbac"
	apperrors "commonthread/pkg/errors"

	"github.com/labstack/echo/v4"
)

// Extractor builds the resource descriptor a route is authorized against.
type Extractor func(c echo.Context) (rbac.Resource, error)

// keysByKind lists request keys in priority order; deeper kinds win.
var keysByKind = []struct {
	kind rbac.ResourceKind
	keys []string
}{
	{rbac.KindStory, []string{paramStoryID}},
	{rbac.KindProject, []string{paramProjectID, paramLegacyProject}},
	{rbac.KindOrg, []string{paramOrgID}},
	{rbac.KindSelfUser, []string{paramUserID}},
}

// NoResource authorizes against no organization.
func NoResource() Extractor {
	return func(echo.Context) (rbac.Resource, error) {
		return rbac.None(), nil
	}
}

// RequireResource fails with MISSING_FIELD when the request names none of
// the given kinds. Identifiers come from the path, then the query string,
// then the JSON body.
func RequireResource(kinds ...rbac.ResourceKind) Extractor {
	return required(kinds, pathQueryBody)
}

// RequireBodyResource is RequireResource without the query string, for
// handlers that act on the id in their JSON body. A query id could otherwise
// authorize one resource while the body names another.
func RequireBodyResource(kinds ...rbac.ResourceKind) Extractor {
	return required(kinds, pathBody)
}

// OptionalResource falls back to no resource when none of kinds is present.
func OptionalResource(kinds ...rbac.ResourceKind) Extractor {
	return func(c echo.Context) (rbac.Resource, error) {
		res, found, err := extract(c, kinds, pathQueryBody)
		if err != nil || !found {
			return rbac.None(), err
		}
		return res, nil
	}
}

func required(kinds []rbac.ResourceKind, sources func(echo.Context) []sourceLoader) Extractor {
	return func(c echo.Context) (rbac.Resource, error) {
		res, found, err := extract(c, kinds, sources)
		if err != nil {
			return rbac.Resource{}, err
		}
		if !found {
			return rbac.Resource{}, apperrors.Validation(apperrors.CodeMissingField,
				fmt.Sprintf(msgMissingResourceFmt, strings.Join(keysFor(kinds), ", ")))
		}
		return res, nil
	}
}

// source returns the raw value for key, or "" when absent.
type source func(key string) string

type sourceLoader func() (source, error)

func pathQueryBody(c echo.Context) []sourceLoader {
	return []sourceLoader{
		func() (source, error) { return c.Param, nil },
		func() (source, error) { return c.QueryParam, nil },
		func() (source, error) { return bodySource(c) },
	}
}

func pathBody(c echo.Context) []sourceLoader {
	return []sourceLoader{
		func() (source, error) { return c.Param, nil },
		func() (source, error) { return bodySource(c) },
	}
}

// extract reads identifiers from sources in order. The first source holding
// any wanted key is the only one used.
func extract(c echo.Context, kinds []rbac.ResourceKind, sources func(echo.Context) []sourceLoader) (rbac.Resource, bool, error) {
	wanted := keysFor(kinds)

	for _, load := range sources(c) {
		get, err := load()
		if err != nil {
			return rbac.Resource{}, false, err
		}
		if get == nil || !anyPresent(get, wanted) {
			continue
		}
		return pick(get, kinds)
	}
	return rbac.Resource{}, false, nil
}

func pick(get source, kinds []rbac.ResourceKind) (rbac.Resource, bool, error) {
	for _, entry := range keysByKind {
		if !containsKind(kinds, entry.kind) {
			continue
		}
		for _, key := range entry.keys {
			raw := strings.TrimSpace(get(key))
			if raw == "" {
				continue
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				return rbac.Resource{}, false, apperrors.Validation(apperrors.CodeBadResourceID, fmt.Sprintf(msgBadResourceIDFmt, key))
			}
			return rbac.Resource{Kind: entry.kind, ID: id}, true, nil
		}
	}
	return rbac.Resource{}, false, nil
}

// bodySource decodes a JSON object body and puts the bytes back for the
// handler. Non-JSON or non-object bodies yield no source.
func bodySource(c echo.Context) (source, error) {
	req := c.Request()
	if req.Body == nil || !strings.HasPrefix(strings.ToLower(req.Header.Get(echo.HeaderContentType)), contentTypeJSON) {
		return nil, nil
	}

	buf, err := io.ReadAll(io.LimitReader(req.Body, maxBufferedBodyBytes))
	if err != nil {
		return nil, apperrors.Validation(apperrors.CodeBadJSON, err.Error())
	}
	req.Body = io.NopCloser(bytes.NewReader(buf))

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(buf, &fields); err != nil {
		return nil, nil
	}

	return func(key string) string {
		raw, ok := fields[key]
		if !ok {
			return ""
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		if string(raw) == "null" {
			return ""
		}
		return string(raw)
	}, nil
}

func anyPresent(get source, keys []string) bool {
	for _, key := range keys {
		if strings.TrimSpace(get(key)) != "" {
			return true
		}
	}
	return false
}

func keysFor(kinds []rbac.ResourceKind) []string {
	var keys []string
	for _, entry := range keysByKind {
		if containsKind(kinds, entry.kind) {
			keys = append(keys, entry.keys...)
		}
	}
	return keys
}

func containsKind(kinds []rbac.ResourceKind, k rbac.ResourceKind) bool {
	for _, kind := range kinds {
		if kind == k {
			return true
		}
	}
	return false
}

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"commonthread/internal/domain/org"
	"commonthread/internal/rbac"
	apperrors "commonthread/pkg/errors"

	"github.com/labstack/echo/v4"
)

type TokenVerifier interface {
	Verify(token string, kind Kind) (int64, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, principalID int64, res rbac.Resource, required org.Tier) (org.Tier, error)
}

// Guard authenticates the bearer token and authorizes the caller against the
// route's resource before the handler runs.
type Guard struct {
	tokens        TokenVerifier
	authorizer    Authorizer
	hideExistence bool
}

// NewGuard builds a guard. With hideExistence set, missing resources are
// reported as 403 FORBIDDEN instead of 404.
func NewGuard(tokens TokenVerifier, authorizer Authorizer, hideExistence bool) *Guard {
	return &Guard{tokens: tokens, authorizer: authorizer, hideExistence: hideExistence}
}

func (g *Guard) Require(required org.Tier, extract Extractor) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, code := bearerToken(c)
			if code != "" {
				msg := msgMissingAuthorization
				if code == apperrors.CodeMalformedToken {
					msg = msgMalformedHeader
				}
				return respond(c, http.StatusUnauthorized, code, msg)
			}

			principalID, err := g.tokens.Verify(token, KindAccess)
			if err != nil {
				switch {
				case errors.Is(err, ErrExpired):
					return respond(c, StatusAccessExpired, apperrors.CodeAccessExpired, msgAccessExpired)
				case errors.Is(err, ErrMalformed):
					return respond(c, http.StatusUnauthorized, apperrors.CodeMalformedToken, msgMalformedToken)
				default:
					return respond(c, http.StatusUnauthorized, apperrors.CodeInvalidToken, msgInvalidToken)
				}
			}

			res, err := extract(c)
			if err != nil {
				var appErr *apperrors.AppError
				if errors.As(err, &appErr) {
					return respond(c, http.StatusBadRequest, appErr.Code, appErr.Message)
				}
				return respond(c, http.StatusBadRequest, apperrors.CodeBadRequest, err.Error())
			}

			tier, err := g.authorizer.Authorize(c.Request().Context(), principalID, res, required)
			if err != nil {
				return g.denied(c, principalID, res, err)
			}

			SetPrincipal(c, principalID, tier, res)
			return next(c)
		}
	}
}

func (g *Guard) denied(c echo.Context, principalID int64, res rbac.Resource, err error) error {
	var nf *rbac.NotFoundError
	switch {
	case errors.As(err, &nf):
		if g.hideExistence {
			return respond(c, http.StatusForbidden, apperrors.CodeForbidden, msgForbidden)
		}
		return respond(c, http.StatusNotFound, nf.Code(), nf.Error())
	case errors.Is(err, rbac.ErrNotMember):
		return respond(c, http.StatusForbidden, apperrors.CodeNotMember, msgNotMember)
	case errors.Is(err, rbac.ErrDenied):
		return respond(c, http.StatusForbidden, apperrors.CodeInsufficient, msgInsufficientTier)
	default:
		c.Logger().Errorf("authorization failed for principal %d on %s: %v", principalID, res, err)
		return respond(c, http.StatusInternalServerError, apperrors.CodeDatabaseFailure, msgInternal)
	}
}

// bearerToken returns the token, or the error code when the header is
// missing or not of the form "Bearer <token>".
func bearerToken(c echo.Context) (string, string) {
	header := c.Request().Header.Get(headerAuthorization)
	if strings.TrimSpace(header) == "" {
		return "", apperrors.CodeNoToken
	}

	parts := strings.Fields(header)
	if len(parts) != authHeaderParts || strings.ToLower(parts[0]) != bearerScheme {
		return "", apperrors.CodeMalformedToken
	}
	return parts[1], ""
}

func respond(c echo.Context, status int, code, message string) error {
	return c.JSON(status, apperrors.NewResponse(code, message))
}

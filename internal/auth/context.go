package auth

import (
	"commonthread/internal/domain/org"
	"commonthread/internal/rbac"
	apperrors "commonthread/pkg/errors"

	"github.com/labstack/echo/v4"
)

func SetPrincipal(c echo.Context, principalID int64, tier org.Tier, res rbac.Resource) {
	c.Set(ContextKeyPrincipalID, principalID)
	c.Set(ContextKeyTier, tier)
	c.Set(ContextKeyResource, res)
}

func GetPrincipalID(c echo.Context) (int64, error) {
	v := c.Get(ContextKeyPrincipalID)
	if v == nil {
		return 0, apperrors.Unauthorized(msgUserNotAuthenticated)
	}

	id, ok := v.(int64)
	if !ok {
		return 0, apperrors.InternalServer(msgInvalidPrincipalCtx, nil)
	}
	return id, nil
}

// GetTier returns the tier the guard resolved, or "" outside a guarded route.
func GetTier(c echo.Context) org.Tier {
	t, _ := c.Get(ContextKeyTier).(org.Tier)
	return t
}

func GetResource(c echo.Context) rbac.Resource {
	r, _ := c.Get(ContextKeyResource).(rbac.Resource)
	return r
}

package rbac

import (
	"errors"
	"strings"

	apperrors "commonthread/pkg/errors"
)

var (
	ErrDenied      = errors.New("authorization denied")
	ErrNotMember   = errors.New("not a member of this organization")
	ErrUnknownTier = errors.New("unknown tier")
)

// NotFoundError reports that a resource on the authorization chain does not
// exist.
type NotFoundError struct {
	Kind ResourceKind
}

func (e *NotFoundError) Error() string {
	return e.Kind.String() + " not found"
}

// Is lets callers match with errors.Is(err, apperrors.ErrNotFound).
func (e *NotFoundError) Is(target error) bool {
	return target == apperrors.ErrNotFound
}

// Code is the machine-readable {KIND}_NOT_FOUND code.
func (e *NotFoundError) Code() string {
	return strings.ToUpper(e.Kind.String()) + "_NOT_FOUND"
}

const (
	errConfigTiersEmpty            = "rbac config: tiers must not be empty"
	errConfigTierNameEmpty         = "rbac config: tier name must not be empty"
	errConfigUnknownTierFmt        = "rbac config: %w"
	errConfigDuplicateTierNameFmt  = "rbac config: duplicate tier name: %s"
	errConfigDuplicateTierLevelFmt = "rbac config: duplicate tier level %d (tiers %s and %s)"
	errConfigDefaultEmpty          = "rbac config: default tier must not be empty"
	errConfigDefaultUnknownFmt     = "rbac config: default tier is not defined: %s"
	errMustNewPanicFmt             = "rbac.MustNew: %v"
	errDeniedMinTierRequiredFmt    = "%w: requires minimum tier '%s', but user has tier '%s'"
	errUnknownTierFmt              = "%w: %s"
	errResolveFmt                  = "failed to resolve %s: %w"
	errSelfUserTierFmt             = "%w: own account grants no more than the default tier, '%s' required"
)

package auth

const (
	ContextKeyPrincipalID = "principal_id"
	ContextKeyTier        = "tier"
	ContextKeyResource    = "resource"

	headerAuthorization = "Authorization"
	bearerScheme        = "bearer"
	authHeaderParts     = 2

	// StatusAccessExpired tells clients to refresh the access token.
	StatusAccessExpired = 299

	paramStoryID       = "story_id"
	paramProjectID     = "project_id"
	paramLegacyProject = "proj_id"
	paramOrgID         = "org_id"
	paramUserID        = "user_id"

	maxBufferedBodyBytes int64 = 1 << 20
	contentTypeJSON            = "application/json"
)

const (
	msgMissingAuthorization = "authorization header missing"
	msgMalformedHeader      = "authorization header must be 'Bearer <token>'"
	msgMalformedToken       = "malformed token"
	msgInvalidToken         = "invalid token"
	msgAccessExpired        = "access token expired"
	msgInsufficientTier     = "insufficient access level"
	msgNotMember            = "not a member of this organization"
	msgForbidden            = "forbidden"
	msgInternal             = "internal server error"
	msgMissingResourceFmt   = "request must include one of: %s"
	msgBadResourceIDFmt     = "invalid %s"
	msgUserNotAuthenticated = "user not authenticated"
	msgInvalidPrincipalCtx  = "invalid principal in context"

	errUnexpectedSigningMethodFmt = "unexpected signing method: %v"
	errSignTokenFmt               = "failed to sign token: %w"
	errUnknownTokenKindFmt        = "unknown token kind: %s"
)

package errors

import (
	"errors"
	"fmt"
)

// Domain errors - Sentinel errors for use with errors.Is()
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource already exists")
	ErrInternalServer     = errors.New("internal server error")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrExpired            = errors.New("resource expired")
	ErrValidation         = errors.New("validation error")
	ErrUnavailable        = errors.New("dependency unavailable")
)

// Machine-readable codes carried in error responses.
const (
	CodeNoToken        = "NO_TOKEN"
	CodeMalformedToken = "MALFORMED_TOKEN"
	CodeInvalidToken   = "INVALID_TOKEN"
	CodeAccessExpired  = "ACCESS_EXPIRED"
	CodeRefreshExpired = "REFRESH_EXPIRED"
	CodeInsufficient   = "INSUFFICIENT_TIER"
	CodeNotMember      = "NOT_MEMBER"
	CodeBadCredentials = "BAD_CREDENTIALS"
	CodeForbidden      = "FORBIDDEN"

	CodeOrgNotFound     = "ORG_NOT_FOUND"
	CodeProjectNotFound = "PROJECT_NOT_FOUND"
	CodeStoryNotFound   = "STORY_NOT_FOUND"
	CodeUserNotFound    = "USER_NOT_FOUND"
	CodeNotFound        = "NOT_FOUND"
	CodeDuplicateUser   = "DUPLICATE_USERNAME"
	CodeDuplicateOrg    = "DUPLICATE_ORG_NAME"
	CodeConflict        = "CONFLICT"

	CodeBadJSON       = "BAD_JSON"
	CodeMissingField  = "MISSING_FIELD"
	CodeBadDateFormat = "BAD_DATE_FORMAT"
	CodeBadResourceID = "BAD_RESOURCE_ID"
	CodeBadRequest    = "BAD_REQUEST"
	CodeBadMethod     = "METHOD_NOT_ALLOWED"
	CodeBodyTooLarge  = "BODY_TOO_LARGE"

	CodeMLQueueFailed = "ML_QUEUE_FAILED"
	CodeTagLimit      = "TAG_LIMIT"
	CodeRateLimited   = "RATE_LIMITED"

	CodeDatabaseFailure   = "DATABASE_FAILURE"
	CodeBrokerUnreachable = "BROKER_UNREACHABLE"
	CodeStorageFailure    = "STORAGE_UNREACHABLE"
	CodeMLBackendFailure  = "ML_BACKEND_UNREACHABLE"
	CodeInternal          = "INTERNAL_SERVER_ERROR"
)

// Custom error type with context
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithCode returns a copy of the error carrying a more specific code.
func (e *AppError) WithCode(code string) *AppError {
	cp := *e
	cp.Code = code
	return &cp
}

// Constructors
func NotFound(msg string) *AppError {
	return &AppError{Code: CodeNotFound, Message: msg, Err: ErrNotFound}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Code: CodeInvalidToken, Message: msg, Err: ErrUnauthorized}
}

func Forbidden(msg string) *AppError {
	return &AppError{Code: CodeForbidden, Message: msg, Err: ErrForbidden}
}

func BadRequest(msg string) *AppError {
	return &AppError{Code: CodeBadRequest, Message: msg, Err: ErrBadRequest}
}

func Validation(code, msg string) *AppError {
	return &AppError{Code: code, Message: msg, Err: ErrValidation}
}

func Conflict(msg string) *AppError {
	return &AppError{Code: CodeConflict, Message: msg, Err: ErrConflict}
}

func InternalServer(msg string, err error) *AppError {
	return &AppError{Code: CodeInternal, Message: msg, Err: err}
}

func Unavailable(code, msg string, err error) *AppError {
	return &AppError{Code: code, Message: msg, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
}

func InvalidCredentials() *AppError {
	return &AppError{Code: CodeBadCredentials, Message: "invalid username or password", Err: ErrInvalidCredentials}
}

func Expired(msg string) *AppError {
	return &AppError{Code: CodeAccessExpired, Message: msg, Err: ErrExpired}
}

// CodeOf extracts the machine-readable code from err, or fallback when err
// carries none.
func CodeOf(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr.Code
	}
	return fallback
}

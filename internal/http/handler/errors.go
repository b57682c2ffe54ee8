package handler

import (
	"errors"
	"net/http"

	"commonthread/internal/auth"
	"commonthread/internal/ml"
	"commonthread/internal/pipeline"
	apperrors "commonthread/pkg/errors"
)

// MapToPublicError maps an error to its HTTP status, machine-readable code and
// client message. Server-side failures never expose the underlying error.
func MapToPublicError(err error) (int, string, string) {
	var appErr *apperrors.AppError
	hasApp := errors.As(err, &appErr)

	clientError := func(status int, fallback string) (int, string, string) {
		if hasApp {
			return status, apperrors.CodeOf(err, fallback), appErr.Message
		}
		return status, fallback, http.StatusText(status)
	}

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return clientError(http.StatusNotFound, apperrors.CodeNotFound)
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		return clientError(http.StatusForbidden, apperrors.CodeBadCredentials)
	case errors.Is(err, apperrors.ErrUnauthorized):
		return clientError(http.StatusUnauthorized, apperrors.CodeInvalidToken)
	case errors.Is(err, auth.ErrExpired):
		return http.StatusUnauthorized, apperrors.CodeRefreshExpired, msgRefreshExpired
	case errors.Is(err, auth.ErrInvalid), errors.Is(err, auth.ErrMalformed):
		return http.StatusUnauthorized, apperrors.CodeInvalidToken, msgRefreshInvalid
	case errors.Is(err, apperrors.ErrForbidden):
		return clientError(http.StatusForbidden, apperrors.CodeForbidden)
	case errors.Is(err, apperrors.ErrConflict):
		return clientError(http.StatusBadRequest, apperrors.CodeConflict)
	case errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrBadRequest):
		return clientError(http.StatusBadRequest, apperrors.CodeBadRequest)
	case errors.Is(err, apperrors.ErrExpired):
		return clientError(http.StatusUnauthorized, apperrors.CodeRefreshExpired)
	case errors.Is(err, pipeline.ErrNoContent):
		return http.StatusBadRequest, apperrors.CodeBadRequest, msgNoContent
	case errors.Is(err, pipeline.ErrEnqueueFailed):
		return http.StatusInternalServerError, apperrors.CodeMLQueueFailed, msgQueueFailure
	case errors.Is(err, ml.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, apperrors.CodeMLBackendFailure, msgChatUnavailable
	case errors.Is(err, ml.ErrBadInput):
		return http.StatusBadRequest, apperrors.CodeBadRequest, http.StatusText(http.StatusBadRequest)
	case errors.Is(err, apperrors.ErrUnavailable):
		return http.StatusInternalServerError, apperrors.CodeOf(err, apperrors.CodeInternal), msgInternal
	default:
		return http.StatusInternalServerError, apperrors.CodeOf(err, apperrors.CodeDatabaseFailure), msgInternal
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

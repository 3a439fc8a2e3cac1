package service

import "errors"

// Service-level errors. Handlers map these onto HTTP status codes; anything
// not in this list is treated as an internal error.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionInvalid     = errors.New("session is invalid or expired")
	ErrUserBanned         = errors.New("account permanently banned")
	ErrPermissionDenied   = errors.New("permission denied")

	ErrReportNotFound       = errors.New("report not found")
	ErrInvalidStatus        = errors.New("invalid report status")
	ErrRegistrationBlocked  = errors.New("complaint registration blocked")
	ErrAlreadyPenalized     = errors.New("report already penalized as fake")
	ErrSearchUnavailable    = errors.New("search is unavailable")
	ErrInternalServiceError = errors.New("internal service error")
)

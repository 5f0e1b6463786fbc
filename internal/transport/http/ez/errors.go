package ez

import (
	"errors"
	"time"

	"pickfast/internal/domain"
	resp "pickfast/internal/transport/http/response"
)

// AErr carries an envelope code and message out of a handler.
type AErr struct {
	Code       int
	Msg        string
	Reason     string
	RetryAfter time.Duration // sent as Retry-After when set
	Err        error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// FromDomain maps service errors onto envelope codes. Unknown errors become an
// opaque 500 so storage details do not leak.
func FromDomain(err error) *AErr {
	var ae *AErr
	if errors.As(err, &ae) {
		return ae
	}
	var cd *domain.CooldownError
	if errors.As(err, &cd) {
		return &AErr{Code: resp.CodeTooManyRequests, Msg: cd.Error(), RetryAfter: cd.Remaining, Err: err}
	}
	if reason, ok := domain.DeniedReason(err); ok {
		return &AErr{Code: resp.CodeForbidden, Msg: err.Error(), Reason: string(reason), Err: err}
	}
	switch {
	case errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrStoreNotFound),
		errors.Is(err, domain.ErrProductNotFound):
		return &AErr{Code: resp.CodeNotFound, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrEmailTaken):
		return &AErr{Code: resp.CodeConflict, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidVerificationCode),
		errors.Is(err, domain.ErrAlreadyVerified):
		return &AErr{Code: resp.CodeBadRequest, Msg: err.Error(), Err: err}
	case errors.Is(err, domain.ErrInvalidCredentials):
		return &AErr{Code: resp.CodeUnauthorized, Msg: err.Error(), Err: err}
	}
	return &AErr{Code: resp.CodeServerError, Msg: "internal error", Err: err}
}

// Package apierror defines the error taxonomy shared across the ingestion
// HTTP surface, mapping each case to the HTTP status it carries at the
// boundary.
package apierror

import "net/http"

// Kind is one of the taxonomy cases from the error handling design.
type Kind string

const (
	KindBadRequest         Kind = "bad_request"
	KindValidation         Kind = "validation_error"
	KindUnauthorized       Kind = "unauthorized"
	KindForbidden          Kind = "forbidden"
	KindLoginLocked        Kind = "login_locked"
	KindRateLimited        Kind = "rate_limited"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindServiceBusy        Kind = "service_busy"
	KindInternal           Kind = "internal"
)

var statusByKind = map[Kind]int{
	KindBadRequest:          http.StatusBadRequest,
	KindValidation:          http.StatusUnprocessableEntity,
	KindUnauthorized:        http.StatusUnauthorized,
	KindForbidden:           http.StatusForbidden,
	KindLoginLocked:         http.StatusTooManyRequests,
	KindRateLimited:         http.StatusTooManyRequests,
	KindUpstreamUnavailable: http.StatusServiceUnavailable,
	KindServiceBusy:         http.StatusServiceUnavailable,
	KindInternal:            http.StatusInternalServerError,
}

// Error is a taxonomy error carrying a human-readable cause.
type Error struct {
	Kind  Kind
	Cause string
}

func (e *Error) Error() string { return e.Cause }

// Status returns the HTTP status this error's Kind maps to.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func New(kind Kind, cause string) *Error {
	return &Error{Kind: kind, Cause: cause}
}

func BadRequest(cause string) *Error   { return New(KindBadRequest, cause) }
func Validation(cause string) *Error   { return New(KindValidation, cause) }
func Unauthorized(cause string) *Error { return New(KindUnauthorized, cause) }
func Forbidden(cause string) *Error    { return New(KindForbidden, cause) }
func LoginLocked(cause string) *Error  { return New(KindLoginLocked, cause) }
func RateLimited(cause string) *Error  { return New(KindRateLimited, cause) }
func ServiceBusy(cause string) *Error  { return New(KindServiceBusy, cause) }
func Internal(cause string) *Error     { return New(KindInternal, cause) }

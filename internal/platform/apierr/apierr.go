package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to API clients.
const (
	CodeUnauthenticated      = "unauthenticated"
	CodeForbidden            = "forbidden"
	CodeUnverified           = "unverified"
	CodeNoCreditsRemaining   = "no_credits_remaining"
	CodeMissingRequiredField = "missing_required_field"
	CodeNotFound             = "not_found"
	CodeUpstreamModelFailure = "upstream_model_failure"
	CodeNoServicesConfigured = "no_services_configured"
	CodeOutOfOrderStage      = "out_of_order_stage"
	CodeStageAlreadyComplete = "stage_already_completed"
	CodeInvalidRequest       = "invalid_request"
	CodeInternal             = "internal_error"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Unauthenticated(err error) *Error {
	return New(http.StatusUnauthorized, CodeUnauthenticated, err)
}

func Forbidden(err error) *Error {
	return New(http.StatusForbidden, CodeForbidden, err)
}

func Unverified() *Error {
	return New(http.StatusForbidden, CodeUnverified, errors.New("account is not verified"))
}

func NoCreditsRemaining() *Error {
	return New(http.StatusPaymentRequired, CodeNoCreditsRemaining, errors.New("no analysis runs remaining"))
}

func MissingRequiredField(field string) *Error {
	return New(http.StatusBadRequest, CodeMissingRequiredField, fmt.Errorf("missing required field: %s", field))
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf("%s not found", what))
}

func OutOfOrderStage(persona string, pending string) *Error {
	return New(http.StatusConflict, CodeOutOfOrderStage,
		fmt.Errorf("cannot start stage %q before stage %q is completed", persona, pending))
}

func StageAlreadyCompleted(persona string) *Error {
	return New(http.StatusConflict, CodeStageAlreadyComplete,
		fmt.Errorf("stage %q is already completed", persona))
}

func NoServicesConfigured() *Error {
	return New(http.StatusServiceUnavailable, CodeNoServicesConfigured, errors.New("no personas configured for analysis"))
}

// From normalizes any error into an *Error; non-apierr errors become 500s.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, CodeInternal, err)
}

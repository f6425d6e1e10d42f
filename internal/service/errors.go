package service

import (
	"errors"
	"fmt"

	"github.com/agencykit/instaflow/internal/meta"
)

// ErrKind is the closed set of pipeline failure kinds. Callers switch on the
// kind instead of matching error strings.
type ErrKind string

const (
	ErrKindInvalidState       ErrKind = "invalid_state"
	ErrKindNoInstagramAccount ErrKind = "no_instagram_account"
	ErrKindTokenExpired       ErrKind = "token_expired"
	ErrKindTokenRefreshFailed ErrKind = "token_refresh_failed"
	ErrKindAccountNotFound    ErrKind = "account_not_found"
	ErrKindContainerCreation  ErrKind = "container_creation_failed"
	ErrKindContainerNotReady  ErrKind = "container_not_ready"
	ErrKindMediaPublishFailed ErrKind = "media_publish_failed"
	ErrKindValidation         ErrKind = "validation_error"
	ErrKindMetaAPI            ErrKind = "meta_api_error"
	ErrKindOAuthFailed        ErrKind = "oauth_failed"
)

// PipelineError carries a kind, a human-readable message and, when the
// failure originated upstream, the provider's diagnostic payload.
type PipelineError struct {
	Kind      ErrKind
	Message   string
	Code      int
	Subcode   int
	FbtraceID string
	Err       error
}

func (e *PipelineError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func newError(kind ErrKind, message string) *PipelineError {
	return &PipelineError{Kind: kind, Message: message}
}

// wrapError attaches a kind to an underlying error. A *meta.APIError keeps
// its provider diagnostics; a *PipelineError passes through unchanged.
func wrapError(kind ErrKind, err error) *PipelineError {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe
	}

	wrapped := &PipelineError{Kind: kind, Message: err.Error(), Err: err}
	var apiErr *meta.APIError
	if errors.As(err, &apiErr) {
		wrapped.Code = apiErr.Code
		wrapped.Subcode = apiErr.ErrorSubcode
		wrapped.FbtraceID = apiErr.FbtraceID
	}
	return wrapped
}

// KindOf returns the pipeline kind of err. Unknown errors, including raw
// provider payloads, report as ErrKindMetaAPI or ErrKindOAuthFailed only
// after wrapping, so this returns "" for them.
func KindOf(err error) ErrKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

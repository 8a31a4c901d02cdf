package subscription

import "fmt"

// Code is a stable machine-readable lifecycle error code.
type Code string

const (
	CodeMissingCredentials    Code = "MISSING_CREDENTIALS"
	CodeNetworkError          Code = "NETWORK_ERROR"
	CodeWebhookCreationFailed Code = "WEBHOOK_CREATION_FAILED"
	CodeWebhookNotFound       Code = "WEBHOOK_NOT_FOUND"
	CodeWebhookDeletionFailed Code = "WEBHOOK_DELETION_FAILED"
	CodeWebhookRefreshFailed  Code = "WEBHOOK_REFRESH_FAILED"
)

// Error is a lifecycle operation failure. Network errors are safe to retry
// with backoff; provider-rejected requests (4xx/5xx) are not and carry the
// provider response for diagnosis.
type Error struct {
	Code             Code
	Message          string
	ProviderStatus   int    // 0 when the request never reached the provider
	ProviderResponse string // raw body, empty for transport failures
	Err              error
}

func (e *Error) Error() string {
	if e.ProviderStatus != 0 {
		return fmt.Sprintf("%s: %s (provider status %d)", e.Code, e.Message, e.ProviderStatus)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the operation.
func (e *Error) Retryable() bool {
	return e.Code == CodeNetworkError
}

func newError(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func newProviderError(code Code, message string, status int, body string) *Error {
	return &Error{Code: code, Message: message, ProviderStatus: status, ProviderResponse: body}
}

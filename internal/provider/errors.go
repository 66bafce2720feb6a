// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jeranaias/amadeus-tui/internal/extract"
	"github.com/jeranaias/amadeus-tui/internal/util"
)

// Error variables for provider failures. Every failure surfaced by this
// package is a *ProviderError wrapping one of these.
var (
	// ErrMissingCredential indicates the API key, token or project is not set.
	ErrMissingCredential = errors.New("credential not configured")

	// ErrUnknownProvider indicates the provider index is not registered.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrAuthFailed indicates the credential was rejected (401 or 403).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrForbidden is the 403 flavour of ErrAuthFailed.
	ErrForbidden = fmt.Errorf("%w: access forbidden", ErrAuthFailed)

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrServerFault indicates a 5xx response.
	ErrServerFault = errors.New("server error")

	// ErrBadRequest covers every other non-2xx status.
	ErrBadRequest = errors.New("request rejected")

	// ErrTimeout indicates the request did not complete in time.
	ErrTimeout = errors.New("request timed out")

	// ErrNetworkUnreachable indicates a dial or DNS failure.
	ErrNetworkUnreachable = errors.New("network unreachable")

	// ErrDecodeFailure indicates the reply had no assistant content.
	ErrDecodeFailure = errors.New("could not decode response")
)

// maxErrorBody bounds the raw body kept on an error.
const maxErrorBody = 512

// ProviderError describes a failed exchange with a provider.
type ProviderError struct {
	Provider Kind
	Status   int    // HTTP status, 0 for transport failures
	Message  string // provider-supplied error message, if any
	RawBody  string // truncated response body
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("%s error (HTTP %d): %s", e.Provider, e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("%s error (HTTP %d): %v", e.Provider, e.Status, e.Err)
	default:
		return fmt.Sprintf("%s error: %v", e.Provider, e.Err)
	}
}

// Unwrap returns the underlying sentinel chain.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status, 0 when none was received.
func (e *ProviderError) StatusCode() int {
	return e.Status
}

// Temporary reports whether another region or a later attempt may succeed.
func (e *ProviderError) Temporary() bool {
	return errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrServerFault) ||
		errors.Is(e.Err, ErrTimeout) ||
		errors.Is(e.Err, ErrNetworkUnreachable)
}

// StatusError maps an HTTP status to its sentinel.
func StatusError(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrAuthFailed
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrModelNotFound
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return ErrServerFault
	default:
		return ErrBadRequest
	}
}

// NewStatusError builds the error for a non-2xx response.
func NewStatusError(kind Kind, status int, body []byte) *ProviderError {
	text := string(body)
	msg, _ := extract.Path(text, "error.message")
	return &ProviderError{
		Provider: kind,
		Status:   status,
		Message:  msg,
		RawBody:  util.TruncateRunes(text, maxErrorBody),
		Err:      StatusError(status),
	}
}

func decodeError(kind Kind, body []byte) *ProviderError {
	return &ProviderError{
		Provider: kind,
		Status:   http.StatusOK,
		RawBody:  util.TruncateRunes(string(body), maxErrorBody),
		Err:      ErrDecodeFailure,
	}
}

package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/spotstat/internal/shared"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
)

// UpstreamAuthError reports a rejected or failed call to the provider's token endpoint.
//
// It matches [shared.ErrUpstreamAuth] with [errors.Is].
type UpstreamAuthError struct {
	Op         string // "exchange" or "refresh"
	StatusCode int    // 0 for transport failures
	Err        error
}

func (e *UpstreamAuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s failed with status %d: %v", shared.ErrUpstreamAuth, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s failed: %v", shared.ErrUpstreamAuth, e.Op, e.Err)
}

func (e *UpstreamAuthError) Unwrap() error { return e.Err }

func (e *UpstreamAuthError) Is(target error) bool {
	return target == shared.ErrUpstreamAuth
}

// newUpstreamAuthError classifies an error returned by [oauth2.Config].
func newUpstreamAuthError(op string, err error) *UpstreamAuthError {
	authErr := &UpstreamAuthError{Op: op, Err: err}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		authErr.StatusCode = retrieveErr.Response.StatusCode
	}
	return authErr
}

// RequestError reports a failed call to a provider resource endpoint.
//
// A 401 additionally matches [shared.ErrTokenExpired].
type RequestError struct {
	Method     string
	URL        string
	StatusCode int    // 0 for transport failures
	Message    string // upstream error message, when one could be extracted
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s %s returned %d: %s", shared.ErrAPIRequest, e.Method, e.URL, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s %s: %v", shared.ErrAPIRequest, e.Method, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

func (e *RequestError) Is(target error) bool {
	switch target {
	case shared.ErrAPIRequest:
		return true
	case shared.ErrTokenExpired:
		return e.StatusCode == http.StatusUnauthorized
	}
	return false
}

// Unauthorized reports whether the provider rejected the access token.
func (e *RequestError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// upstreamMessage pulls a human readable message out of a provider error body.
//
// Spotify uses {"error":{"status":401,"message":"..."}} for the Web API and
// {"error":"invalid_grant","error_description":"..."} for the accounts service.
func upstreamMessage(statusCode int, body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "error_description", "error", "message"} {
			if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.Str != "" {
				return v.Str
			}
		}
	}
	if text := http.StatusText(statusCode); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", statusCode)
}

package api

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"
	json "github.com/json-iterator/go"
)

// APIError represents an error response from any of the backend services.
// GoTrue, PostgREST and Storage each shape their error bodies differently;
// ParseError folds them into this one type.
type APIError struct {
	Code       string
	Message    string
	StatusCode int
	Details    map[string]interface{}
}

func (e *APIError) Error() string {
	if e.Details != nil {
		return fmt.Sprintf("[%d] %s: %s (details: %v)", e.StatusCode, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%d] %s: %s", e.StatusCode, e.Code, e.Message)
}

// HTTPStatus exposes the status code to the CLI error categoriser.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// ParseError parses an error response from the backend
func ParseError(resp *resty.Response) error {
	statusCode := resp.StatusCode()

	var body map[string]interface{}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && len(body) > 0 {
		apiErr := &APIError{StatusCode: statusCode}

		// PostgREST: {code, message, details, hint}
		// GoTrue: {error, error_description} or {code, error_code, msg}
		// Storage: {statusCode, error, message}
		apiErr.Code = firstString(body, "error_code", "error", "code")
		apiErr.Message = firstString(body, "message", "msg", "error_description")
		if apiErr.Message == "" {
			apiErr.Message = apiErr.Code
		}
		if apiErr.Code == "" {
			apiErr.Code = "unknown_error"
		}

		details := map[string]interface{}{}
		for _, k := range []string{"details", "hint"} {
			if v, ok := body[k]; ok && v != nil {
				details[k] = v
			}
		}
		if len(details) > 0 {
			apiErr.Details = details
		}
		if apiErr.Message != "" {
			return apiErr
		}
	}

	// Fallback to generic error
	msg := string(resp.Body())
	if msg == "" {
		msg = resp.Status()
	}
	return &APIError{
		Code:       "unknown_error",
		Message:    msg,
		StatusCode: statusCode,
	}
}

func firstString(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthorized checks if error is due to missing/invalid authentication
func IsUnauthorized(err error) bool {
	return statusOf(err) == 401
}

// IsForbidden checks if error is due to insufficient permissions
func IsForbidden(err error) bool {
	return statusOf(err) == 403
}

// IsNotFound checks if error is due to resource not found
func IsNotFound(err error) bool {
	return statusOf(err) == 404
}

// IsServerError checks if error is due to server error (5xx)
func IsServerError(err error) bool {
	return statusOf(err) >= 500
}

// CheckResponse checks if response is successful and returns error if not
func CheckResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}

	if !resp.IsSuccess() {
		return ParseError(resp)
	}

	return nil
}

// ParseResponseBody parses response body into target interface
func ParseResponseBody(body []byte, target interface{}) error {
	return json.Unmarshal(body, target)
}

func notFound(msg string) error {
	return &APIError{Code: "not_found", Message: msg, StatusCode: 404}
}

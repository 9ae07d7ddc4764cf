package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	gl "gitlab.com/gitlab-org/api/client-go"
)

// ErrInvalidToken is returned before any request when the token is empty
var ErrInvalidToken = errors.New("invalid GitLab API token")

type ErrorKind int

const (
	KindAPI ErrorKind = iota
	KindUnauthorized
	KindServer
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "api"
	}
}

// APIError is a failed GitLab call, already phrased for the user
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Notice returns the title and description shown to the user
func (e *APIError) Notice() (string, string) {
	switch e.Kind {
	case KindUnauthorized:
		return "Authentication Error", "Invalid or expired GitLab API token. Please check your credentials."
	case KindServer:
		return "Server Error", "GitLab server encountered an error. Please try again later."
	case KindNetwork:
		return "Connection Error", "Failed to connect to GitLab. Please check your network connection."
	default:
		return "API Error", e.Message
	}
}

// classify turns a client error into an *APIError. Any call that got a
// response is classified by its status; only calls without one are network
// errors. Context cancellation is passed through untouched.
func classify(resp *gl.Response, body []byte, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	status := 0
	var errResp *gl.ErrorResponse
	hasBody := errors.As(err, &errResp)
	if resp != nil && resp.Response != nil {
		status = resp.StatusCode
	} else if hasBody && errResp.Response != nil {
		status = errResp.Response.StatusCode
	}
	if status == 0 {
		return &APIError{
			Kind:    KindNetwork,
			Message: "Network error: Failed to connect to GitLab API",
			Err:     err,
		}
	}

	switch status {
	case http.StatusUnauthorized:
		return &APIError{
			Kind:       KindUnauthorized,
			StatusCode: status,
			Message:    "Unauthorized: Invalid or expired GitLab API token",
			Err:        err,
		}
	case http.StatusInternalServerError:
		return &APIError{
			Kind:       KindServer,
			StatusCode: status,
			Message:    "Internal Server Error: GitLab server issue",
			Err:        err,
		}
	}

	// client-go drops the body of a 404, so fall back to the captured copy
	var message string
	switch {
	case hasBody:
		message = responseMessage(errResp.Body)
	case len(body) > 0:
		message = responseMessage(body)
	default:
		message = err.Error()
	}
	return &APIError{
		Kind:       KindAPI,
		StatusCode: status,
		Message:    fmt.Sprintf("GitLab API error: %s", message),
		Err:        err,
	}
}

// responseMessage prefers the "message" field of the JSON body
func responseMessage(data []byte) string {
	var body struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if len(data) > 0 && json.Unmarshal(data, &body) == nil {
		var text string
		if len(body.Message) > 0 && json.Unmarshal(body.Message, &text) == nil && text != "" {
			return text
		}
		if len(body.Message) > 0 && string(body.Message) != "null" {
			return string(body.Message)
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return "Unknown error"
}

// statusOf extracts the HTTP status for metrics, 0 when no response arrived
func statusOf(resp *gl.Response, err error) int {
	if resp != nil && resp.Response != nil {
		return resp.StatusCode
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

type errorBodyKey struct{}

// errorBody holds the body of a failed response for one call
type errorBody struct {
	data []byte
}

func (b *errorBody) bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

func captureErrorBody(ctx context.Context) (context.Context, *errorBody) {
	body := &errorBody{}
	return context.WithValue(ctx, errorBodyKey{}, body), body
}

// captureTransport keeps a copy of error response bodies for the call that
// asked for it through captureErrorBody
type captureTransport struct {
	base http.RoundTripper
}

func (t *captureTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil || resp.StatusCode < http.StatusBadRequest {
		return resp, err
	}
	body, ok := req.Context().Value(errorBodyKey{}).(*errorBody)
	if !ok {
		return resp, nil
	}

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
	if readErr != nil {
		return nil, readErr
	}
	body.data = data
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return resp, nil
}

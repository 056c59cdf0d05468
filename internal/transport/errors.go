package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// APIError is returned for every response with a status of 400 or above.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Message string // the service's "message" field, if any
	Body    []byte
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	e := &APIError{Method: method, Path: path, Status: status, Body: body}
	if gjson.ValidBytes(body) {
		e.Message = strings.TrimSpace(gjson.GetBytes(body, "message").String())
	}
	return e
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, msg)
}

// Is maps well-known statuses onto the sentinel errors in pkg/types.
func (e *APIError) Is(target error) bool {
	switch target {
	case types.ErrTokenExpired:
		return e.Status == types.StatusTokenExpired
	case types.ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// ServerMessage returns the message the service attached to err, or "" when
// err is not an APIError or carries no message.
func ServerMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

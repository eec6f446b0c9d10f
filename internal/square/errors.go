package square

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the Square client.
var (
	ErrUnauthorized = errors.New("square: unauthorized")
	ErrDecode       = errors.New("square: malformed response")
)

// APIError is a non-2xx response from Square.
type APIError struct {
	StatusCode int
	Body       string
	Errors     []APIErrorDetail
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		parts := make([]string, 0, len(e.Errors))
		for _, d := range e.Errors {
			parts = append(parts, fmt.Sprintf("%s/%s: %s", d.Category, d.Code, d.Detail))
		}
		return fmt.Sprintf("square API error (status %d): %s", e.StatusCode, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("square API error (status %d): %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 and 403 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && (e.StatusCode == 401 || e.StatusCode == 403)
}

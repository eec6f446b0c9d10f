package listmonk

import (
	"errors"
	"fmt"
)

// Sentinel errors for the listmonk client.
var (
	ErrUnauthorized = errors.New("listmonk: unauthorized")
	ErrEncode       = errors.New("listmonk: failed to encode import csv")
)

// APIError is a non-2xx response: listmonk rejected the import.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("listmonk API error (status %d): %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 and 403 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && (e.StatusCode == 401 || e.StatusCode == 403)
}

// Package httputil provides the JSON response helpers used by the status API
// handlers so every endpoint formats bodies and errors the same way.
package httputil

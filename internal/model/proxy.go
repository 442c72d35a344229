// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net/http"
)

// ProxyRequest represents a client request to be forwarded to the Midjourney proxy.
type ProxyRequest struct {
	Ctx      context.Context
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     io.ReadCloser
}

// ProxyResponse represents the downstream response to be streamed back.
type ProxyResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       io.ReadCloser
}

// AuthResult is the outcome of the inbound access check. It is written to
// the client verbatim when Error is set.
type AuthResult struct {
	Error bool   `json:"error"`
	Msg   string `json:"msg,omitempty"`
}

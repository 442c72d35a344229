// Package service implements the core proxy forwarding logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"midjourney-proxy-go/internal/client"
	"midjourney-proxy-go/internal/config"
	"midjourney-proxy-go/internal/model"
)

const (
	// RoutePrefix is the inbound path prefix stripped before forwarding.
	RoutePrefix = "/api/midjourney/mj"

	// ProxyURLHeader lets a client pick the Midjourney proxy per request.
	ProxyURLHeader = "midjourney-proxy-url"

	userAgent = "midjourney-proxy-go/1.0"
)

// ErrMissingBaseURL is returned when neither the request header nor the config provides a target.
var ErrMissingBaseURL = errors.New("please set MIDJOURNEY_PROXY_URL in .env or set midjourney-proxy-url in config")

// ErrUnauthorized is matched by every *AuthError.
var ErrUnauthorized = errors.New("unauthorized")

// AuthError carries the rejected access check result back to the handler.
type AuthError struct {
	Result model.AuthResult
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("unauthorized: %s", e.Result.Msg)
}

func (e *AuthError) Unwrap() error { return ErrUnauthorized }

// Authorizer decides whether an inbound request may be forwarded.
type Authorizer interface {
	Check(header http.Header) model.AuthResult
}

// ProxyService handles the forwarding logic for proxy requests.
type ProxyService struct {
	client            *client.MidjourneyClient
	auth              Authorizer
	logger            *slog.Logger
	defaultBaseURL    string
	authToken         string
	timeout           time.Duration
	legacyPathRewrite bool
}

// NewProxyService creates a ProxyService. The config values it needs are
// copied once; the service never reads configuration again.
func NewProxyService(c *client.MidjourneyClient, auth Authorizer, cfg *config.Config, logger *slog.Logger) *ProxyService {
	return &ProxyService{
		client:            c,
		auth:              auth,
		logger:            logger.With("component", "proxy_service"),
		defaultBaseURL:    cfg.Midjourney.ProxyURL,
		authToken:         cfg.Midjourney.AuthToken,
		timeout:           cfg.Upstream.Timeout(),
		legacyPathRewrite: cfg.Proxy.LegacyPathRewrite,
	}
}

// Forward sends a ProxyRequest to the Midjourney proxy and returns the response.
// The caller must close the response body; closing it also releases the
// request timeout.
//
// A 200 response keeps the downstream headers. Any other status is relayed
// with its body only.
func (s *ProxyService) Forward(pr *model.ProxyRequest) (*model.ProxyResponse, error) {
	baseURL := s.resolveBaseURL(pr.Header)
	if baseURL == "" {
		return nil, ErrMissingBaseURL
	}

	if result := s.auth.Check(pr.Header); result.Error {
		return nil, &AuthError{Result: result}
	}

	upstreamURL := buildUpstreamURL(baseURL, s.rewritePath(pr.Path, pr.RawQuery))

	s.logger.Debug("forwarding request",
		"method", pr.Method,
		"path", pr.Path,
		"target", upstreamURL,
	)

	ctx, cancel := context.WithTimeout(pr.Ctx, s.timeout)

	resp, err := s.client.DoStream(ctx, pr.Method, upstreamURL, s.upstreamHeaders(), pr.Body)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("forward to upstream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Header = make(http.Header)
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// resolveBaseURL prefers an http(s) URL from the request header over the configured default.
func (s *ProxyService) resolveBaseURL(header http.Header) string {
	if custom := header.Get(ProxyURLHeader); strings.HasPrefix(custom, "http://") || strings.HasPrefix(custom, "https://") {
		return custom
	}
	return s.defaultBaseURL
}

// rewritePath returns the path and query to append to the base URL, without
// a leading slash. By default only the leading RoutePrefix segments are
// removed; in legacy mode every occurrence of RoutePrefix in path+query is.
func (s *ProxyService) rewritePath(path, rawQuery string) string {
	var rest string
	if s.legacyPathRewrite {
		full := path
		if rawQuery != "" {
			full += "?" + rawQuery
		}
		return strings.TrimPrefix(strings.ReplaceAll(full, RoutePrefix, ""), "/")
	}

	switch {
	case path == RoutePrefix:
	case strings.HasPrefix(path, RoutePrefix+"/"):
		rest = path[len(RoutePrefix):]
	default:
		rest = path
	}
	rest = strings.TrimPrefix(rest, "/")
	if rawQuery != "" {
		rest += "?" + rawQuery
	}
	return rest
}

// buildUpstreamURL joins with exactly one "/", so a base ending in "/" yields "//".
func buildUpstreamURL(baseURL, forwardedPath string) string {
	return baseURL + "/" + forwardedPath
}

// upstreamHeaders builds the fixed outbound header set. Inbound headers,
// including Authorization, are never forwarded.
func (s *ProxyService) upstreamHeaders() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	h.Set("Authorization", "Bearer "+s.authToken)
	h.Set("Cache-Control", "no-store")
	h.Set("User-Agent", userAgent)
	return h
}

// cancelOnClose releases the request timeout once the relayed body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"

	"github.com/labstack/echo/v4"

	"midjourney-proxy-go/internal/model"
	"midjourney-proxy-go/internal/service"
)

// userinfoPattern matches credentials embedded in URLs quoted by transport errors.
var userinfoPattern = regexp.MustCompile(`(https?://)[^/@\s"]+@`)

// errorResponse is the JSON body for locally synthesized failures.
type errorResponse struct {
	Error bool   `json:"error"`
	Msg   string `json:"msg"`
}

// ProxyHandler forwards Midjourney API requests to the configured proxy.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle proxies the request to the Midjourney proxy and streams the response back.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	h.logger.Debug("midjourney route", "params", c.Param("*"))

	pr := &model.ProxyRequest{
		Ctx:      req.Context(),
		Method:   req.Method,
		Path:     req.URL.EscapedPath(),
		RawQuery: req.URL.RawQuery,
		Header:   req.Header,
		Body:     req.Body,
	}

	resp, err := h.service.Forward(pr)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	// Non-200 responses arrive with an empty header set.
	for key, vals := range resp.Header {
		for _, v := range vals {
			c.Response().Header().Add(key, v)
		}
	}

	c.Response().WriteHeader(resp.StatusCode)

	// The status line is already sent, so a mid-stream failure can only
	// truncate the body.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"path", req.URL.Path,
		)
	}

	return nil
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	if errors.Is(err, service.ErrMissingBaseURL) {
		h.logger.Warn("no midjourney proxy url configured", "path", c.Request().URL.Path)
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Error: true,
			Msg:   service.ErrMissingBaseURL.Error(),
		})
	}

	var authErr *service.AuthError
	if errors.As(err, &authErr) {
		h.logger.Info("access denied", "msg", authErr.Result.Msg, "remote_ip", c.RealIP())
		return c.JSON(http.StatusUnauthorized, authErr.Result)
	}

	h.logger.Error("proxy error",
		"err", sanitizeError(err),
		"path", c.Request().URL.Path,
	)

	if errors.Is(err, context.DeadlineExceeded) {
		return c.JSON(http.StatusGatewayTimeout, errorResponse{Error: true, Msg: "upstream request timed out"})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: true, Msg: "client disconnected"})
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.JSON(http.StatusGatewayTimeout, errorResponse{Error: true, Msg: "upstream request timed out"})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: true, Msg: "upstream host unreachable"})
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return c.JSON(http.StatusBadGateway, errorResponse{Error: true, Msg: "upstream connection failed"})
	}

	return c.JSON(http.StatusBadGateway, errorResponse{Error: true, Msg: "upstream request failed"})
}

// sanitizeError redacts URL userinfo, which a midjourney-proxy-url header may carry.
func sanitizeError(err error) string {
	return userinfoPattern.ReplaceAllString(err.Error(), "${1}[REDACTED]@")
}

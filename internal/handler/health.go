package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"midjourney-proxy-go/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status returns proxy status information. The default proxy URL itself is
// not exposed since it may carry credentials.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":              "ok",
		"version":             string(h.version),
		"upstream_configured": strconv.FormatBool(h.cfg.Midjourney.ProxyURL != ""),
		"access_control":      strconv.FormatBool(len(h.cfg.Auth.AccessCodes) > 0),
	})
}

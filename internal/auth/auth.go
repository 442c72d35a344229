// Package auth implements the inbound access-code check.
package auth

import (
	"crypto/md5" //nolint:gosec // access codes are compared as MD5 digests, not used for integrity
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"

	"midjourney-proxy-go/internal/config"
	"midjourney-proxy-go/internal/model"
)

// AccessCodePrefix marks a bearer value as an access code rather than a user API key.
const AccessCodePrefix = "nk-"

const bearerScheme = "Bearer"

// Checker decides whether an inbound request may use the proxy.
type Checker struct {
	codes          [][]byte // hex MD5 digests of the configured access codes
	hideUserAPIKey bool
	logger         *slog.Logger
}

// NewChecker creates a Checker from the configured access codes.
func NewChecker(cfg *config.Config, logger *slog.Logger) *Checker {
	codes := make([][]byte, 0, len(cfg.Auth.AccessCodes))
	for _, code := range cfg.Auth.AccessCodes {
		codes = append(codes, []byte(hashCode(code)))
	}
	return &Checker{
		codes:          codes,
		hideUserAPIKey: cfg.Auth.HideUserAPIKey,
		logger:         logger.With("component", "auth"),
	}
}

// Check inspects the Authorization header of an inbound request.
func (c *Checker) Check(header http.Header) model.AuthResult {
	accessCode, apiKey := parseBearer(header.Get("Authorization"))

	if len(c.codes) == 0 {
		return model.AuthResult{}
	}

	if apiKey != "" && !c.hideUserAPIKey {
		c.logger.Debug("user api key supplied, skipping access code check")
		return model.AuthResult{}
	}

	if accessCode == "" {
		return model.AuthResult{Error: true, Msg: "empty access code"}
	}
	if !c.matches(hashCode(accessCode)) {
		return model.AuthResult{Error: true, Msg: "wrong access code"}
	}
	return model.AuthResult{}
}

func (c *Checker) matches(digest string) bool {
	found := 0
	for _, code := range c.codes {
		found |= subtle.ConstantTimeCompare(code, []byte(digest))
	}
	return found == 1
}

// parseBearer splits an Authorization header into an access code or an API key.
func parseBearer(header string) (accessCode, apiKey string) {
	token := strings.TrimSpace(header)
	if len(token) >= len(bearerScheme) && strings.EqualFold(token[:len(bearerScheme)], bearerScheme) {
		token = strings.TrimSpace(token[len(bearerScheme):])
	}
	if token == "" {
		return "", ""
	}
	if strings.HasPrefix(token, AccessCodePrefix) {
		return strings.TrimPrefix(token, AccessCodePrefix), ""
	}
	return "", token
}

func hashCode(code string) string {
	sum := md5.Sum([]byte(strings.TrimSpace(code))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

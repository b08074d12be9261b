// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller principal for each request. The gateway sits
// behind an authenticating edge (API gateway or reverse proxy) that forwards
// verified identity as trusted headers; this middleware only normalizes them
// into a domain.Principal. It performs no authentication itself.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tripwise/insights-gateway/internal/domain"
)

const (
	// principalKey is the Gin context key holding the resolved domain.Principal.
	principalKey = "principal"
	// identityKey holds the principal's stable identity string for access logs.
	identityKey = "identity"

	headerUserID    = "X-User-ID"
	headerUserEmail = "X-User-Email"
	headerUserTier  = "X-User-Tier"
)

// Identity resolves the caller of each request and stores it in the Gin
// context for the rate limiter, ledger, and access log.
//
// Resolution:
//   - X-User-ID / X-User-Email carry the authenticated identity when present
//     (set by the trusted edge, never by end clients directly).
//   - X-User-Tier: "premium" marks entitled callers; anything else is plain
//     authenticated.
//   - The client IP is taken from the first X-Forwarded-For element when the
//     header is present, falling back to Gin's remote address handling. The
//     first element is the original client as appended by the outermost proxy.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := domain.Principal{
			UserID:  strings.TrimSpace(c.GetHeader(headerUserID)),
			Email:   strings.TrimSpace(c.GetHeader(headerUserEmail)),
			IP:      clientIP(c),
			Premium: strings.EqualFold(strings.TrimSpace(c.GetHeader(headerUserTier)), "premium"),
		}
		c.Set(principalKey, p)
		c.Set(identityKey, p.Identity())
		c.Next()
	}
}

// PrincipalFrom returns the principal resolved by Identity(). When the
// middleware did not run it falls back to an IP-only principal so callers
// never observe an empty identity.
func PrincipalFrom(c *gin.Context) domain.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(domain.Principal); ok {
			return p
		}
	}
	return domain.Principal{IP: clientIP(c)}
}

// clientIP extracts the originating client address. X-Forwarded-For wins when
// present; its first comma-separated element is the original client.
func clientIP(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		first := xff
		if i := strings.IndexByte(xff, ','); i >= 0 {
			first = xff[:i]
		}
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.ClientIP()
}

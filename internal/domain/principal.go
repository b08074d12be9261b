package domain

import "strings"

// Caller tiers, in ascending order of entitlement. Tier selection happens in
// the HTTP layer from the resolved principal.
const (
	TierUnauthenticated = "unauthenticated"
	TierAuthenticated   = "authenticated"
	TierPremium         = "premium"
)

// Principal is the resolved caller of one request. At most one of UserID or
// Email is expected for authenticated callers; IP is always present.
type Principal struct {
	UserID  string
	Email   string
	IP      string
	Premium bool
}

// Authenticated reports whether the caller presented a user identity.
func (p Principal) Authenticated() bool {
	return strings.TrimSpace(p.UserID) != "" || strings.TrimSpace(p.Email) != ""
}

// Tier returns the rate-limit tier for the caller.
func (p Principal) Tier() string {
	switch {
	case p.Premium && p.Authenticated():
		return TierPremium
	case p.Authenticated():
		return TierAuthenticated
	default:
		return TierUnauthenticated
	}
}

// Identity returns the stable rate-limit and ledger key for the caller.
// Precedence: user id, then email, then client IP.
func (p Principal) Identity() string {
	if id := strings.TrimSpace(p.UserID); id != "" {
		return "user:" + id
	}
	if email := strings.TrimSpace(p.Email); email != "" {
		return "email:" + email
	}
	return "ip:" + p.IP
}

// internal/discovery/ratelimit/identity.go
package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"

	"resource-discovery/internal/common/auth"
)

// Tier selects which ceiling of an endpoint applies to an identity.
type Tier string

const (
	TierAnonymous     Tier = "anonymous"
	TierAuthenticated Tier = "authenticated"
)

// Identity is the key under which usage is counted.
type Identity struct {
	Key    string `json:"key"`
	UserID string `json:"userId,omitempty"`
	Tier   Tier   `json:"tier"`
}

const unknownIdentity = "unknown"

// IdentityFromUser builds an authenticated identity.
func IdentityFromUser(userID string) Identity {
	return Identity{Key: "user:" + userID, UserID: userID, Tier: TierAuthenticated}
}

// IdentityFromAddress builds an anonymous identity from a network address.
func IdentityFromAddress(addr string) Identity {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return Identity{Key: unknownIdentity, Tier: TierAnonymous}
	}
	return Identity{Key: "ip:" + addr, Tier: TierAnonymous}
}

// Authenticated reports whether the identity belongs to a verified user.
func (i Identity) Authenticated() bool {
	return i.Tier == TierAuthenticated
}

// ResolveIdentity prefers a verified bearer token over the caller's address.
// A token that fails verification is treated as absent. trustedHops is the
// number of reverse proxies in front of the service; see ClientAddress.
func ResolveIdentity(ctx context.Context, r *http.Request, verifier auth.TokenVerifier, trustedHops int) Identity {
	if verifier != nil {
		if token := BearerToken(r); token != "" {
			if userID, err := verifier.Verify(ctx, token); err == nil && userID != "" {
				return IdentityFromUser(userID)
			}
		}
	}
	return IdentityFromAddress(ClientAddress(r, trustedHops))
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

// ClientAddress returns the X-Forwarded-For entry written by the outermost
// trusted proxy, the trustedHops-th from the right. Entries left of it are
// client supplied and ignored. With no trusted proxies, or a header shorter
// than the proxy chain, the RemoteAddr host is used.
func ClientAddress(r *http.Request, trustedHops int) string {
	if trustedHops > 0 {
		var hops []string
		for _, v := range r.Header.Values("X-Forwarded-For") {
			hops = append(hops, strings.Split(v, ",")...)
		}
		if len(hops) >= trustedHops {
			if addr := strings.TrimSpace(hops[len(hops)-trustedHops]); addr != "" {
				return addr
			}
		}
	}
	if r.RemoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

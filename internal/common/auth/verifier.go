// internal/common/auth/verifier.go
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	httpclient "resource-discovery/internal/common/http"
	"resource-discovery/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidToken        = errors.New("INVALID_TOKEN")
	ErrVerifierUnavailable = errors.New("AUTH_PROVIDER_UNAVAILABLE")
)

const cacheKeyPrefix = "ai:auth:"

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// UserInfoVerifier resolves tokens against an OpenID Connect style userinfo
// endpoint. Responses carrying either "sub" or "id" are accepted.
type UserInfoVerifier struct {
	userInfoURL string
	client      *httpclient.Client
	cache       redis.Cmdable
	cacheTTL    time.Duration
	logger      logger.Logger
}

type userInfo struct {
	Sub string `json:"sub"`
	ID  string `json:"id"`
}

func NewUserInfoVerifier(userInfoURL string, client *httpclient.Client, cache redis.Cmdable, cacheTTL time.Duration, log logger.Logger) *UserInfoVerifier {
	return &UserInfoVerifier{
		userInfoURL: userInfoURL,
		client:      client,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      log.With(map[string]interface{}{"component": "auth"}),
	}
}

func (v *UserInfoVerifier) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	key := cacheKeyPrefix + hashToken(token)
	if v.cache != nil {
		if userID, err := v.cache.Get(ctx, key).Result(); err == nil && userID != "" {
			return userID, nil
		} else if err != nil && err != redis.Nil {
			v.logger.Warn("token cache read failed", map[string]interface{}{"error": err.Error()})
		}
	}

	userID, err := v.fetch(ctx, token)
	if err != nil {
		return "", err
	}

	if v.cache != nil && v.cacheTTL > 0 {
		if err := v.cache.Set(ctx, key, userID, v.cacheTTL).Err(); err != nil {
			v.logger.Warn("token cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return userID, nil
}

func (v *UserInfoVerifier) fetch(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.DoWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrVerifierUnavailable, resp.StatusCode, string(body))
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("%w: decode userinfo: %v", ErrVerifierUnavailable, err)
	}

	if info.Sub != "" {
		return info.Sub, nil
	}
	if info.ID != "" {
		return info.ID, nil
	}
	return "", ErrInvalidToken
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

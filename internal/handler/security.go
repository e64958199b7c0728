package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/xenking/checkout-core/internal/apperr"
	"github.com/xenking/checkout-core/internal/domain/auth"
)

type principalKey struct{}

// principalFrom extracts the authenticated principal stored by Authenticate.
func principalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok
}

// SecurityHandler authenticates API requests via HMAC-SHA256 hashed API keys
// and resolves them to principals.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given API key
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// Authenticate wraps next with API key authentication. The resolved
// principal is stored in the request context for handlers to pass explicitly
// into domain operations.
func (s *SecurityHandler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Authorization")
		if after, ok := strings.CutPrefix(key, "Bearer "); ok {
			key = after
		}
		if key == "" {
			key = r.Header.Get("api_key")
		}
		if key == "" {
			respondJSON(w, http.StatusUnauthorized, errorResponse{
				Code: 401, Kind: string(apperr.KindForbidden), Message: "missing API key",
			})
			return
		}

		info, err := s.verify(r.Context(), key)
		if err != nil {
			respondJSON(w, http.StatusUnauthorized, errorResponse{
				Code: 401, Kind: string(apperr.KindForbidden), Message: "unauthorized",
			})
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, info.Principal())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verify computes the HMAC-SHA256 of the provided key, looks it up, and
// performs a constant-time comparison to prevent timing side-channels.
func (s *SecurityHandler) verify(ctx context.Context, key string) (*auth.APIKeyInfo, error) {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(key))
	hash := mac.Sum(nil)

	info, err := s.apikeys.FindByHash(ctx, hex.EncodeToString(hash))
	if err != nil {
		return nil, err
	}

	storedBytes, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(hash, storedBytes) != 1 {
		return nil, apperr.New(apperr.KindForbidden, "unauthorized")
	}
	return info, nil
}

package rest

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// KeyInfo describes an access key without verifying its signature.
type KeyInfo struct {
	Opaque    bool
	Role      string
	Project   string
	ExpiresAt time.Time
}

// Expired reports whether the key carries an expiry before now.
func (k KeyInfo) Expired(now time.Time) bool {
	return !k.ExpiresAt.IsZero() && now.After(k.ExpiresAt)
}

// InspectKey reads the claims of a legacy JWT access key. Publishable keys
// (sb_ prefix) are opaque and returned as such.
func InspectKey(key string) (KeyInfo, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return KeyInfo{}, fmt.Errorf("access key is empty")
	}
	if strings.HasPrefix(key, "sb_") {
		return KeyInfo{Opaque: true}, nil
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return KeyInfo{}, fmt.Errorf("access key is not a valid token: %w", err)
	}
	info := KeyInfo{}
	if role, ok := claims["role"].(string); ok {
		info.Role = role
	}
	if ref, ok := claims["ref"].(string); ok {
		info.Project = ref
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return KeyInfo{}, fmt.Errorf("access key has invalid expiry: %w", err)
	}
	if exp != nil {
		info.ExpiresAt = exp.Time
	}
	if info.Role == "service_role" {
		return info, fmt.Errorf("refusing service_role key; use the anon key")
	}
	return info, nil
}

package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// secretKeyBytes is the entropy of a generated device signing secret (256-bit).
const secretKeyBytes = 32

// DeviceClaims extends JWT registered claims with the device binding.
// Subject carries the user ID; DeviceID carries the device fingerprint the
// token was minted for.
type DeviceClaims struct {
	jwt.RegisteredClaims
	DeviceID string `json:"device_id,omitempty"`
}

// GenerateDeviceSecret creates a cryptographically random signing secret
// for a new device.
func GenerateDeviceSecret() (string, error) {
	b := make([]byte, secretKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating device secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// IssueDeviceToken mints a token for a user session on a specific device,
// signed with that device's secret.
func IssueDeviceToken(user *User, device *Device, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := DeviceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		DeviceID: device.Fingerprint,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(device.SecretKey))
	if err != nil {
		return "", fmt.Errorf("signing device token: %w", err)
	}
	return signed, nil
}

// ParseUnverified decodes a token without checking its signature, returning
// the claims needed to locate the signing device. Nothing in the result is
// trusted until the token passes VerifyWithSecret.
func ParseUnverified(tokenString string) (*DeviceClaims, error) {
	claims := &DeviceClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidFormat)
	}
	return claims, nil
}

// VerifyWithSecret validates a token's signature and expiry against the
// given signing secret. Expired tokens return ErrTokenExpired; every other
// validation failure (including a signature minted under a different
// device's secret) returns ErrInvalidSignature.
func VerifyWithSecret(tokenString, secret string) (*DeviceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &DeviceClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}

	claims, ok := token.Claims.(*DeviceClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidSignature
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidSignature)
	}

	return claims, nil
}

// IssueSharedToken mints a token signed with the installation-wide shared
// secret rather than a per-device one.
//
// Deprecated: shared-secret tokens exist only so sessions issued before the
// per-device migration keep working. New tokens always come from
// IssueDeviceToken.
func IssueSharedToken(user *User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := DeviceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing shared token: %w", err)
	}
	return signed, nil
}

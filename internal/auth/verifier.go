package auth

import (
	"context"
	"fmt"
)

// Verifier validates presented tokens against the device store.
//
// Verification is two-phase: an unverified decode extracts the device
// fingerprint and user ID, those locate the active device row, and only
// then is the signature checked against that device's stored secret. The
// failure mode distinguishes a missing device (no such session) from a bad
// signature (token replayed against another device's identity).
type Verifier struct {
	devices DeviceRepository

	// legacySecret, when non-empty, verifies tokens minted before the
	// per-device migration. Those tokens carry no device claim.
	legacySecret string
}

// NewVerifier creates a token verifier backed by the given device store.
// legacySecret may be empty, which disables shared-secret fallback.
func NewVerifier(devices DeviceRepository, legacySecret string) *Verifier {
	return &Verifier{devices: devices, legacySecret: legacySecret}
}

// Verify validates a token and returns its claims plus the device that
// signed it. The device is nil for legacy shared-secret tokens.
//
// On success the signing device's last_used_at is updated. Errors map to
// the sentinel taxonomy: ErrInvalidFormat for malformed tokens,
// ErrDeviceNotFound when no active device matches the claims,
// ErrTokenExpired and ErrInvalidSignature from the signature check.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*DeviceClaims, *Device, error) {
	unverified, err := ParseUnverified(tokenString)
	if err != nil {
		return nil, nil, err
	}

	if unverified.DeviceID == "" {
		return v.verifyLegacy(tokenString)
	}

	device, err := v.devices.GetActiveByFingerprintAndUser(ctx, unverified.DeviceID, unverified.Subject)
	if err != nil {
		return nil, nil, err
	}

	claims, err := VerifyWithSecret(tokenString, device.SecretKey)
	if err != nil {
		return nil, nil, err
	}

	if err := v.devices.Touch(ctx, device.ID); err != nil {
		return nil, nil, fmt.Errorf("recording device use: %w", err)
	}

	return claims, device, nil
}

// verifyLegacy checks a pre-migration token against the shared secret.
func (v *Verifier) verifyLegacy(tokenString string) (*DeviceClaims, *Device, error) {
	if v.legacySecret == "" {
		return nil, nil, fmt.Errorf("%w: token carries no device claim", ErrInvalidSignature)
	}

	claims, err := VerifyWithSecret(tokenString, v.legacySecret)
	if err != nil {
		return nil, nil, err
	}

	return claims, nil, nil
}

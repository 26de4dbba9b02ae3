package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Registry creates and resolves device rows for client sessions.
type Registry struct {
	devices DeviceRepository

	defaultName string
	defaultType string
}

// NewRegistry creates a device registry. defaultName and defaultType are
// applied when a client omits its device metadata; empty values fall back
// to the package defaults.
func NewRegistry(devices DeviceRepository, defaultName, defaultType string) *Registry {
	if defaultName == "" {
		defaultName = DefaultDeviceName
	}
	if defaultType == "" {
		defaultType = DefaultDeviceType
	}
	return &Registry{devices: devices, defaultName: defaultName, defaultType: defaultType}
}

// Mint creates a brand-new device for a user with a server-generated
// fingerprint. Register, login, and auto-login all start a new session
// this way rather than rebinding an existing device.
func (g *Registry) Mint(ctx context.Context, userID, name, deviceType string) (*Device, error) {
	device := &Device{
		Fingerprint: uuid.NewString(),
		Name:        g.orDefaultName(name),
		Type:        g.orDefaultType(deviceType),
		UserID:      userID,
		IsActive:    true,
	}
	if err := g.devices.Create(ctx, device); err != nil {
		return nil, err
	}
	return device, nil
}

// ResolveOrCreate returns the user's active device for a client-supplied
// fingerprint, creating it if absent. An empty fingerprint mints a fresh
// device instead.
//
// Creation can lose a race with a concurrent request for the same
// fingerprint; the unique constraint surfaces that as ErrDeviceExists and
// the winner's row is re-read. If the fingerprint is held by a different
// user's active device the collision cannot be adopted, so a fresh
// fingerprint is minted.
func (g *Registry) ResolveOrCreate(ctx context.Context, fingerprint, userID, name, deviceType string) (*Device, error) {
	if fingerprint == "" {
		return g.Mint(ctx, userID, name, deviceType)
	}

	device, err := g.devices.GetActiveByFingerprintAndUser(ctx, fingerprint, userID)
	if err == nil {
		if err := g.devices.Touch(ctx, device.ID); err != nil {
			return nil, err
		}
		return device, nil
	}
	if !errors.Is(err, ErrDeviceNotFound) {
		return nil, err
	}

	device = &Device{
		Fingerprint: fingerprint,
		Name:        g.orDefaultName(name),
		Type:        g.orDefaultType(deviceType),
		UserID:      userID,
		IsActive:    true,
	}
	err = g.devices.Create(ctx, device)
	if err == nil {
		return device, nil
	}
	if !errors.Is(err, ErrDeviceExists) {
		return nil, err
	}

	// Lost the insert race: adopt the winner's row if it belongs to us.
	device, lookupErr := g.devices.GetActiveByFingerprintAndUser(ctx, fingerprint, userID)
	if lookupErr == nil {
		return device, nil
	}
	if !errors.Is(lookupErr, ErrDeviceNotFound) {
		return nil, lookupErr
	}

	// Fingerprint is held by another user's device.
	return g.Mint(ctx, userID, name, deviceType)
}

func (g *Registry) orDefaultName(name string) string {
	if name == "" {
		return g.defaultName
	}
	return name
}

func (g *Registry) orDefaultType(deviceType string) string {
	if deviceType == "" {
		return g.defaultType
	}
	return deviceType
}

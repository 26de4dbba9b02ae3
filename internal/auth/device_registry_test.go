package auth

import (
	"context"
	"testing"
)

// TestRegistryMint verifies fresh device creation.
func TestRegistryMint(t *testing.T) {
	db := testDB(t)
	devices := NewDeviceRepository(db)
	registry := NewRegistry(devices, "", "")

	user := seedTestUser(t, db, "alice", "alice@example.com")

	t.Run("applies defaults", func(t *testing.T) {
		device, err := registry.Mint(context.Background(), user.ID, "", "")
		if err != nil {
			t.Fatalf("Mint() error = %v", err)
		}

		if device.Name != DefaultDeviceName {
			t.Errorf("Name = %q, want %q", device.Name, DefaultDeviceName)
		}
		if device.Type != DefaultDeviceType {
			t.Errorf("Type = %q, want %q", device.Type, DefaultDeviceType)
		}
		if device.Fingerprint == "" {
			t.Error("fingerprint not generated")
		}
		if device.SecretKey == "" {
			t.Error("signing secret not generated")
		}
		if !device.IsActive {
			t.Error("minted device should be active")
		}
	})

	t.Run("keeps client metadata", func(t *testing.T) {
		device, err := registry.Mint(context.Background(), user.ID, "Field Laptop", "desktop")
		if err != nil {
			t.Fatalf("Mint() error = %v", err)
		}

		if device.Name != "Field Laptop" {
			t.Errorf("Name = %q, want Field Laptop", device.Name)
		}
		if device.Type != "desktop" {
			t.Errorf("Type = %q, want desktop", device.Type)
		}
	})

	t.Run("each mint gets its own secret", func(t *testing.T) {
		d1, err := registry.Mint(context.Background(), user.ID, "", "")
		if err != nil {
			t.Fatalf("Mint() error = %v", err)
		}
		d2, err := registry.Mint(context.Background(), user.ID, "", "")
		if err != nil {
			t.Fatalf("Mint() error = %v", err)
		}

		if d1.Fingerprint == d2.Fingerprint {
			t.Error("two minted devices share a fingerprint")
		}
		if d1.SecretKey == d2.SecretKey {
			t.Error("two minted devices share a signing secret")
		}
	})
}

// TestRegistryResolveOrCreate verifies fingerprint-based resolution.
func TestRegistryResolveOrCreate(t *testing.T) {
	db := testDB(t)
	devices := NewDeviceRepository(db)
	registry := NewRegistry(devices, "", "")

	user := seedTestUser(t, db, "alice", "alice@example.com")

	t.Run("creates on first contact", func(t *testing.T) {
		device, err := registry.ResolveOrCreate(context.Background(), "fp-browser-1", user.ID, "", "")
		if err != nil {
			t.Fatalf("ResolveOrCreate() error = %v", err)
		}
		if device.Fingerprint != "fp-browser-1" {
			t.Errorf("Fingerprint = %q, want fp-browser-1", device.Fingerprint)
		}
	})

	t.Run("returns existing on repeat contact", func(t *testing.T) {
		first, err := registry.ResolveOrCreate(context.Background(), "fp-browser-2", user.ID, "", "")
		if err != nil {
			t.Fatalf("ResolveOrCreate() error = %v", err)
		}
		second, err := registry.ResolveOrCreate(context.Background(), "fp-browser-2", user.ID, "", "")
		if err != nil {
			t.Fatalf("second ResolveOrCreate() error = %v", err)
		}

		if second.ID != first.ID {
			t.Errorf("resolved device %q, want existing %q", second.ID, first.ID)
		}
		if second.SecretKey != first.SecretKey {
			t.Error("repeat contact rotated the signing secret")
		}
	})

	t.Run("empty fingerprint mints", func(t *testing.T) {
		device, err := registry.ResolveOrCreate(context.Background(), "", user.ID, "", "")
		if err != nil {
			t.Fatalf("ResolveOrCreate() error = %v", err)
		}
		if device.Fingerprint == "" {
			t.Error("fingerprint not generated for empty input")
		}
	})

	t.Run("fingerprint held by another user mints fresh", func(t *testing.T) {
		bob := seedTestUser(t, db, "bob", "bob@example.com")
		seedTestDevice(t, db, user.ID, "fp-shared-kiosk")

		device, err := registry.ResolveOrCreate(context.Background(), "fp-shared-kiosk", bob.ID, "", "")
		if err != nil {
			t.Fatalf("ResolveOrCreate() error = %v", err)
		}
		if device.UserID != bob.ID {
			t.Errorf("UserID = %q, want %q", device.UserID, bob.ID)
		}
		if device.Fingerprint == "fp-shared-kiosk" {
			t.Error("device adopted a fingerprint owned by another user")
		}
	})
}

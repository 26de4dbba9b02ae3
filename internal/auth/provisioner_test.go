package auth

import (
	"context"
	"errors"
	"testing"
)

// TestProvisionerRegister verifies explicit account creation.
func TestProvisionerRegister(t *testing.T) {
	db := testDB(t)
	provisioner := NewProvisioner(NewUserRepository(db))

	t.Run("creates account", func(t *testing.T) {
		user, err := provisioner.Register(context.Background(), "alice", "alice@example.com")
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		if user.ID == "" {
			t.Error("user ID not generated")
		}
		if user.Tier != TierEssential {
			t.Errorf("Tier = %q, want %q", user.Tier, TierEssential)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		if _, err := provisioner.Register(context.Background(), "bob", "dupe@example.com"); err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		_, err := provisioner.Register(context.Background(), "bobby", "dupe@example.com")
		if !errors.Is(err, ErrEmailExists) {
			t.Errorf("error = %v, want ErrEmailExists", err)
		}
	})

	t.Run("empty fields fall back to defaults", func(t *testing.T) {
		user, err := provisioner.Register(context.Background(), "", "")
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		if user.Username != DefaultUsername {
			t.Errorf("Username = %q, want %q", user.Username, DefaultUsername)
		}
		if user.Email != DefaultEmail {
			t.Errorf("Email = %q, want %q", user.Email, DefaultEmail)
		}
	})
}

// TestProvisionerLogin verifies login with transparent registration.
func TestProvisionerLogin(t *testing.T) {
	db := testDB(t)
	provisioner := NewProvisioner(NewUserRepository(db))

	t.Run("existing account", func(t *testing.T) {
		registered, err := provisioner.Register(context.Background(), "alice", "alice@example.com")
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}

		user, err := provisioner.Login(context.Background(), "alice", "alice@example.com")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if user.ID != registered.ID {
			t.Errorf("Login() resolved %q, want %q", user.ID, registered.ID)
		}
	})

	t.Run("unknown email auto-registers", func(t *testing.T) {
		user, err := provisioner.Login(context.Background(), "carol", "carol@example.com")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if user.ID == "" {
			t.Error("user ID not generated")
		}

		again, err := provisioner.Login(context.Background(), "carol", "carol@example.com")
		if err != nil {
			t.Fatalf("second Login() error = %v", err)
		}
		if again.ID != user.ID {
			t.Error("second login created a new account")
		}
	})
}

// TestProvisionerEnsureDefaultUser verifies first-contact provisioning.
func TestProvisionerEnsureDefaultUser(t *testing.T) {
	t.Run("empty store creates default identity", func(t *testing.T) {
		db := testDB(t)
		provisioner := NewProvisioner(NewUserRepository(db))

		user, err := provisioner.EnsureDefaultUser(context.Background())
		if err != nil {
			t.Fatalf("EnsureDefaultUser() error = %v", err)
		}

		if user.Username != DefaultUsername {
			t.Errorf("Username = %q, want %q", user.Username, DefaultUsername)
		}
		if user.Email != DefaultEmail {
			t.Errorf("Email = %q, want %q", user.Email, DefaultEmail)
		}
		if user.Tier != TierEssential {
			t.Errorf("Tier = %q, want %q", user.Tier, TierEssential)
		}

		again, err := provisioner.EnsureDefaultUser(context.Background())
		if err != nil {
			t.Fatalf("second EnsureDefaultUser() error = %v", err)
		}
		if again.ID != user.ID {
			t.Error("second call created a new account")
		}
	})

	t.Run("existing account wins over default", func(t *testing.T) {
		db := testDB(t)
		provisioner := NewProvisioner(NewUserRepository(db))

		existing := seedTestUser(t, db, "alice", "alice@example.com")

		user, err := provisioner.EnsureDefaultUser(context.Background())
		if err != nil {
			t.Fatalf("EnsureDefaultUser() error = %v", err)
		}
		if user.ID != existing.ID {
			t.Errorf("resolved %q, want existing %q", user.ID, existing.ID)
		}
	})
}

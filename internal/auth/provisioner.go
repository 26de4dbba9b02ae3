package auth

import (
	"context"
	"errors"
)

// Provisioner creates and resolves user accounts.
//
// Registration is explicit and rejects duplicate emails; login resolves by
// email and transparently registers unknown addresses, so a first login
// and an explicit registration converge on the same account state.
type Provisioner struct {
	users UserRepository
}

// NewProvisioner creates a user provisioner backed by the given store.
func NewProvisioner(users UserRepository) *Provisioner {
	return &Provisioner{users: users}
}

// Register creates a new account. Empty username or email fall back to the
// default identity. Returns ErrEmailExists if the email is already taken.
func (p *Provisioner) Register(ctx context.Context, username, email string) (*User, error) {
	user := &User{
		Username: orDefault(username, DefaultUsername),
		Email:    orDefault(email, DefaultEmail),
		Tier:     TierEssential,
	}
	if err := p.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login resolves an account by email, registering it if absent. Unlike
// Register, a pre-existing account is not an error.
func (p *Provisioner) Login(ctx context.Context, username, email string) (*User, error) {
	email = orDefault(email, DefaultEmail)

	user, err := p.users.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user, err = p.Register(ctx, username, email)
	if err == nil {
		return user, nil
	}
	if errors.Is(err, ErrEmailExists) {
		// Lost a race with a concurrent login for the same email.
		return p.users.GetByEmail(ctx, email)
	}
	return nil, err
}

// EnsureDefaultUser returns the installation's first account, creating the
// default identity when the store is empty. Auto-connect and auto-login
// sessions attach here when no account exists yet.
func (p *Provisioner) EnsureDefaultUser(ctx context.Context) (*User, error) {
	user, err := p.users.First(ctx)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	user, err = p.Register(ctx, DefaultUsername, DefaultEmail)
	if err == nil {
		return user, nil
	}
	if errors.Is(err, ErrEmailExists) {
		return p.users.GetByEmail(ctx, DefaultEmail)
	}
	return nil, err
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

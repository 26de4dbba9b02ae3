package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redquill/redquill-core/internal/audit"
	"github.com/redquill/redquill-core/internal/auth"
)

// registerRequest is the request body for POST /api/auth/register and
// POST /api/auth/login.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// autoConnectRequest is the request body for POST /api/auth/auto-connect.
type autoConnectRequest struct {
	DeviceFingerprint string `json:"device_fingerprint"`
	DeviceName        string `json:"device_name"`
	DeviceType        string `json:"device_type"`
}

// profileResponse is the user shape returned by all auth endpoints. It never
// carries device identifiers; the device binding lives in the token.
type profileResponse struct {
	ID                     string  `json:"id"`
	Username               string  `json:"username"`
	Email                  string  `json:"email"`
	Tier                   string  `json:"tier"`
	SubscriptionValidUntil *string `json:"subscription_valid_until"`
	CreatedAt              string  `json:"created_at"`
}

// tokenResponse is the response body for the session-minting endpoints.
type tokenResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	User        profileResponse `json:"user"`
}

// profileFrom converts a user into the wire profile.
func profileFrom(u *auth.User) profileResponse {
	p := profileResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Tier:      u.Tier,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
	if u.SubscriptionValidUntil != nil {
		s := u.SubscriptionValidUntil.UTC().Format(time.RFC3339)
		p.SubscriptionValidUntil = &s
	}
	return p
}

// mintSession signs a token for the user/device pair and builds the wire
// response.
func (s *Server) mintSession(w http.ResponseWriter, user *auth.User, device *auth.Device) {
	token, err := auth.IssueDeviceToken(user, device, s.cfg.GetTokenTTL())
	if err != nil {
		s.logger.Error("signing session token", "error", err, "user_id", user.ID)
		writeInternalError(w, "failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        profileFrom(user),
	})
}

// handleRegister creates a new account and mints its first device session.
// A duplicate email is rejected; login is the endpoint that tolerates
// existing accounts.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var user *auth.User
	var device *auth.Device
	err := s.db.WithTx(r.Context(), func(tx *sql.Tx) error {
		provisioner := auth.NewProvisioner(auth.NewUserRepository(tx))
		registry := s.txRegistry(tx)

		var err error
		user, err = provisioner.Register(r.Context(), req.Username, req.Email)
		if err != nil {
			return err
		}
		device, err = registry.Mint(r.Context(), user.ID, "", "")
		return err
	})
	if err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeConflict(w, "Email already registered")
			return
		}
		s.logger.Error("registration failed", "error", err)
		writeInternalError(w, "registration failed")
		return
	}

	s.auditLog(audit.ActionRegister, audit.EntityUser, user.ID, user.ID, map[string]any{
		"email": user.Email,
	})
	s.auditLog(audit.ActionDeviceCreate, audit.EntityDevice, device.ID, user.ID, nil)

	s.mintSession(w, user, device)
}

// handleLogin resolves an account by email, registering it transparently
// when absent, and mints a fresh device session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var user *auth.User
	var device *auth.Device
	err := s.db.WithTx(r.Context(), func(tx *sql.Tx) error {
		provisioner := auth.NewProvisioner(auth.NewUserRepository(tx))
		registry := s.txRegistry(tx)

		var err error
		user, err = provisioner.Login(r.Context(), req.Username, req.Email)
		if err != nil {
			return err
		}
		device, err = registry.Mint(r.Context(), user.ID, "", "")
		return err
	})
	if err != nil {
		s.logger.Error("login failed", "error", err)
		writeInternalError(w, "login failed")
		return
	}

	s.auditLog(audit.ActionLogin, audit.EntityUser, user.ID, user.ID, map[string]any{
		"device_id": device.Fingerprint,
	})

	s.mintSession(w, user, device)
}

// handleAutoConnect binds a browser fingerprint to a session without a
// login step. The fingerprint attaches to the installation's first account,
// provisioning the default identity on an empty store. A returning
// fingerprint resolves to its existing device, so the client keeps its
// session history.
func (s *Server) handleAutoConnect(w http.ResponseWriter, r *http.Request) {
	var req autoConnectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DeviceFingerprint == "" {
		writeBadRequest(w, "device_fingerprint is required")
		return
	}

	var user *auth.User
	var device *auth.Device
	err := s.db.WithTx(r.Context(), func(tx *sql.Tx) error {
		provisioner := auth.NewProvisioner(auth.NewUserRepository(tx))
		registry := s.txRegistry(tx)

		var err error
		user, err = provisioner.EnsureDefaultUser(r.Context())
		if err != nil {
			return err
		}
		device, err = registry.ResolveOrCreate(r.Context(), req.DeviceFingerprint, user.ID, req.DeviceName, req.DeviceType)
		return err
	})
	if err != nil {
		s.logger.Error("auto-connect failed", "error", err)
		writeInternalError(w, "auto-connect failed")
		return
	}

	s.auditLog(audit.ActionAutoConnect, audit.EntityDevice, device.ID, user.ID, map[string]any{
		"device_id": device.Fingerprint,
	})

	s.mintSession(w, user, device)
}

// handleAutoLogin mints a session with no client input at all: the first
// account (or the default identity) plus a brand-new device.
func (s *Server) handleAutoLogin(w http.ResponseWriter, r *http.Request) {
	var user *auth.User
	var device *auth.Device
	err := s.db.WithTx(r.Context(), func(tx *sql.Tx) error {
		provisioner := auth.NewProvisioner(auth.NewUserRepository(tx))
		registry := s.txRegistry(tx)

		var err error
		user, err = provisioner.EnsureDefaultUser(r.Context())
		if err != nil {
			return err
		}
		device, err = registry.Mint(r.Context(), user.ID, "", "")
		return err
	})
	if err != nil {
		s.logger.Error("auto-login failed", "error", err)
		writeInternalError(w, "auto-login failed")
		return
	}

	s.auditLog(audit.ActionAutoLogin, audit.EntityUser, user.ID, user.ID, nil)

	s.mintSession(w, user, device)
}

// handleMe returns the authenticated user's profile.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeUnauthorized(w, "authorization token required")
		return
	}

	writeJSON(w, http.StatusOK, profileFrom(identity.User))
}

// txRegistry builds a device registry bound to a transaction, carrying the
// configured device-metadata defaults.
func (s *Server) txRegistry(tx *sql.Tx) *auth.Registry {
	return auth.NewRegistry(auth.NewDeviceRepository(tx),
		s.cfg.Auth.DefaultDeviceName, s.cfg.Auth.DefaultDeviceType)
}

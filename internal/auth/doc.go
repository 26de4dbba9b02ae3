// Package auth implements device-scoped token authentication.
//
// Every client session is bound to a device row carrying its own signing
// secret. Tokens are HMAC-signed with that per-device secret, so a stolen
// token is only valid for the device that minted it and revoking a device
// invalidates its tokens without touching any other session.
//
// Verification runs in two phases. The first decode is unverified and only
// extracts the device and user identifiers used to look up the device row.
// Nothing from that decode is trusted. The second decode verifies the
// signature against the device's stored secret and enforces expiry. A token
// presented with another device's identifier fails signature verification,
// not lookup.
//
// The package also provisions accounts: explicit registration, login with
// transparent auto-registration, and fingerprint-based device resolution
// for returning browsers.
package auth

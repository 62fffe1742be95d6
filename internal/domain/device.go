package domain

import (
	"crypto/subtle"
	"time"
)

// License types accepted for device seats.
const (
	LicenseMonthly = "monthly"
	LicenseYearly  = "yearly"
)

// Device represents a physical display registered with the server.
// The device identifier is the store key; it is externally supplied
// (e.g. burned into a kiosk) or generated at first registration.
type Device struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	ActivePlaylist string `json:"active_playlist"`
	// AuthToken is an opaque rotatable secret. Unique across all devices.
	// The moment a replacement is persisted the old value is dead; there
	// is no grace overlap.
	AuthToken string    `json:"auth_token"`
	Active    bool      `json:"active"`
	LastSeen  time.Time `json:"last_seen"`

	// License bookkeeping.
	LicenseType      string     `json:"license_type,omitempty"`
	LicenseRenewedAt *time.Time `json:"license_renewed_at,omitempty"`
	LicenseExpiresAt *time.Time `json:"license_expires_at,omitempty"`
}

// NewDevice creates a freshly registered device. New devices start
// without a seat (active=false) and must be claimed.
func NewDevice(id, name, activePlaylist, authToken string) *Device {
	return &Device{
		ID:             id,
		Name:           name,
		ActivePlaylist: activePlaylist,
		AuthToken:      authToken,
		Active:         false,
		LastSeen:       time.Now(),
	}
}

// TokenMatches reports whether the presented token matches the stored one.
// This is the single comparison point for device tokens; it uses a
// constant-time compare so timing never leaks prefix information.
func (d *Device) TokenMatches(presented string) bool {
	return subtle.ConstantTimeCompare([]byte(d.AuthToken), []byte(presented)) == 1
}

// DisplayName returns the human label, falling back to the device ID
// when no name was set.
func (d *Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Touch updates the liveness timestamp.
func (d *Device) Touch(now time.Time) {
	d.LastSeen = now
}

// StaleFor reports whether the gap between now and the last heartbeat
// exceeds the given threshold.
func (d *Device) StaleFor(now time.Time, threshold time.Duration) bool {
	return now.Sub(d.LastSeen) > threshold
}

// DaysLeft returns whole days until the device's seat would expire,
// floored at zero. Shown on the device management listing.
func (d *Device) DaysLeft(now time.Time, expiration time.Duration) int {
	days := int(d.LastSeen.Add(expiration).Sub(now).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// ApplyLicense stamps the device with a license term starting now.
func (d *Device) ApplyLicense(licenseType string, now time.Time, term time.Duration) {
	expires := now.Add(term)
	d.LicenseType = licenseType
	d.LicenseRenewedAt = &now
	d.LicenseExpiresAt = &expires
}

// HasLicense reports whether license fields have been filled in.
func (d *Device) HasLicense() bool {
	return d.LicenseType != "" && d.LicenseRenewedAt != nil && d.LicenseExpiresAt != nil
}

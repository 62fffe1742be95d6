// Package license holds the seat-counting policy and license term
// arithmetic for device activations. The policy functions are pure:
// they look only at the device set handed to them, which makes the
// activation decision easy to reason about and easy to test.
package license

import (
	"time"

	"github.com/loopi-signage/loopi-server/internal/domain"
)

// License term lengths.
const (
	MonthlyTerm = 30 * 24 * time.Hour
	YearlyTerm  = 365 * 24 * time.Hour
)

// LimitProvider supplies the number of concurrently active devices an
// account is entitled to.
type LimitProvider interface {
	DeviceLimit() int
}

// ActiveDeviceCount counts devices currently holding a seat.
func ActiveDeviceCount(devices map[string]*domain.Device) int {
	count := 0
	for _, d := range devices {
		if d.Active {
			count++
		}
	}
	return count
}

// CanActivate reports whether the given device may take (or keep) a
// seat. A device that is already active may always re-claim without
// consuming another seat; otherwise a seat must be free under the
// limit. A false result is a normal denial, not an error.
func CanActivate(devices map[string]*domain.Device, deviceID string, limit int) bool {
	if d, ok := devices[deviceID]; ok && d.Active {
		return true
	}
	return ActiveDeviceCount(devices) < limit
}

// TermDuration returns the length of a license term. Unknown types
// fall back to the monthly term.
func TermDuration(licenseType string) time.Duration {
	if licenseType == domain.LicenseYearly {
		return YearlyTerm
	}
	return MonthlyTerm
}

// Renew stamps a device with a fresh license term starting now.
func Renew(d *domain.Device, licenseType string, now time.Time) {
	d.ApplyLicense(licenseType, now, TermDuration(licenseType))
}

// ExpiresAt computes the expiry instant for a term renewed at the
// given time.
func ExpiresAt(licenseType string, renewedAt time.Time) time.Time {
	return renewedAt.Add(TermDuration(licenseType))
}

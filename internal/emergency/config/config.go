// Package config holds the engine defaults for emergency access.
package config

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"lifeline/internal/emergency/models"
)

// Config tunes token lifetimes, thresholds, and history paging.
type Config struct {
	// QRTokenTTL is the lifetime of a freshly issued QR token.
	QRTokenTTL time.Duration
	// OTPTTL is the lifetime of a guardian one-time code.
	OTPTTL time.Duration
	// OTPDigits is the length of generated one-time codes.
	OTPDigits int
	// BcryptCost is used for national ID and OTP hashes.
	BcryptCost int
	// Security seeds new profiles.
	Security models.SecurityPolicy
	// QuotaTimezone is the day boundary used when a profile has no timezone.
	QuotaTimezone string
	// GrantTTL is the lifetime of the signed grant returned on approval.
	GrantTTL time.Duration

	DefaultHistoryLimit int
	MaxHistoryLimit     int
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		QRTokenTTL:          24 * time.Hour,
		OTPTTL:              10 * time.Minute,
		OTPDigits:           6,
		BcryptCost:          bcrypt.DefaultCost,
		Security:            models.DefaultSecurityPolicy(),
		QuotaTimezone:       "UTC",
		GrantTTL:            15 * time.Minute,
		DefaultHistoryLimit: 50,
		MaxHistoryLimit:     200,
	}
}

// QuotaLocation resolves QuotaTimezone, falling back to UTC.
func (c *Config) QuotaLocation() *time.Location {
	if c == nil || c.QuotaTimezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.QuotaTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ClampHistoryLimit applies the default and maximum page size.
func (c *Config) ClampHistoryLimit(limit int) int {
	if limit <= 0 {
		return c.DefaultHistoryLimit
	}
	if limit > c.MaxHistoryLimit {
		return c.MaxHistoryLimit
	}
	return limit
}

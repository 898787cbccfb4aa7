// Package privacy holds helpers that keep personal data out of logs and events.
package privacy

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"strings"
)

// AnonymizeIP truncates an address so it can be logged: the last octet of an
// IPv4 address and the last 80 bits of an IPv6 address are zeroed.
// Unparseable input is returned as "invalid".
func AnonymizeIP(ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return ""
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "invalid"
	}
	if v4 := parsed.To4(); v4 != nil {
		return v4.Mask(net.CIDRMask(24, 32)).String()
	}
	return parsed.Mask(net.CIDRMask(48, 128)).String()
}

// MaskToken keeps a short prefix of a secret for correlation in logs.
func MaskToken(token string) string {
	const keep = 6
	if len(token) <= keep {
		return strings.Repeat("*", len(token))
	}
	return token[:keep] + "..."
}

// HashIdentifier returns a hex SHA-256 of an identifier so events can be
// correlated without carrying the raw value.
func HashIdentifier(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// Package device labels the terminal a request came from.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// ParseUserAgent returns a short display label such as "Chrome on Windows 10".
func ParseUserAgent(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknownDevice
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "Bot"
	}

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	host := ua.OS()
	switch platform := ua.Platform(); platform {
	case "iPhone", "iPad", "iPod":
		host = platform
	}
	if host == "" {
		host = "Unknown OS"
	}
	return strings.TrimSpace(browser + " on " + host)
}

// IsMobile reports whether the user agent is a handheld device.
func IsMobile(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	return useragent.New(userAgent).Mobile()
}

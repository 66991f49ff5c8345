package oauth

import (
	"strings"
)

// Profile describes one OAuth vendor's device-flow endpoints. Both built-in
// vendors share the same state machine and differ only in URLs, form fields
// and tenant handling.
type Profile struct {
	// Name labels the profile in logs and errors.
	Name string
	// VendorKey is the shared auth store key cousin connectors read, e.g.
	// "google" for Drive, Gmail and Calendar.
	VendorKey string
	// DeviceAuthURL receives the device_authorize POST.
	DeviceAuthURL string
	// TokenURL receives polling and refresh POSTs.
	TokenURL string
}

// GoogleProfile returns the Google-shaped device flow profile.
func GoogleProfile() Profile {
	return Profile{
		Name:          "google",
		VendorKey:     "google",
		DeviceAuthURL: "https://oauth2.googleapis.com/device/code",
		TokenURL:      "https://oauth2.googleapis.com/token",
	}
}

// MicrosoftProfile returns the Microsoft-shaped device flow profile for the
// given tenant. An empty tenant falls back to "common".
func MicrosoftProfile(tenant string) Profile {
	if strings.TrimSpace(tenant) == "" {
		tenant = "common"
	}
	base := "https://login.microsoftonline.com/" + tenant + "/oauth2/v2.0"
	return Profile{
		Name:          "microsoft",
		VendorKey:     "microsoft",
		DeviceAuthURL: base + "/devicecode",
		TokenURL:      base + "/token",
	}
}

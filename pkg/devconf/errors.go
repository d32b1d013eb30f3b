package devconf

import "errors"

// Common errors
var (
	ErrCredentialLength = errors.New("SSID or password length exceeded the maximum allowed")
	ErrIdentityLength   = errors.New("hardware ID or secret length exceeded the maximum allowed")
	ErrInvalidMagic     = errors.New("magic number mismatch")
)

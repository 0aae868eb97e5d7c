// engforum/config/config.go
package config

const (
	AppVersion = "0.9.1"

	// Form Limits
	MinUsernameLen = 3
	MaxUsernameLen = 30
	MinPasswordLen = 6
	MaxMajorLen    = 100
	MaxTitleLen    = 100
	MaxContentLen  = 8000
	MaxReasonLen   = 500

	// Mail Defaults
	DefaultSMTPPort = 587
	DefaultFromName = "International Engineering Forum"

	// Rate Limiting Defaults
	DefaultRateLimitEvery  = "10s"
	DefaultRateLimitBurst  = 5
	DefaultRateLimitPrune  = "1h"
	DefaultRateLimitExpire = "24h"
)

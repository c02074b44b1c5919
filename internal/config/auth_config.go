package config

import "time"

type AuthConfig interface {
	GetTokenSecret() string
	GetTokenExpiry() time.Duration
	GetSessionTTL() time.Duration
}

type Auth struct{}

var _ AuthConfig = Auth{}

// GetTokenSecret returns the HMAC secret for bearer tokens. The default is
// for local development only.
func (Auth) GetTokenSecret() string {
	return GetEnv("TOKEN_SECRET", "dev-secret-do-not-use-in-production")
}

func (Auth) GetTokenExpiry() time.Duration {
	return durationEnv("TOKEN_EXPIRY", 7*24*time.Hour)
}

func (Auth) GetSessionTTL() time.Duration {
	return durationEnv("SESSION_TTL", 24*time.Hour)
}

func durationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := GetEnv(envVar, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

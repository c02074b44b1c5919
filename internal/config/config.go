package config

type Config interface {
	EnvConfig
	AuthConfig
	OAuthConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
	GetRedisAddr() string
	GetDatabaseURL() string
}

type mainConfig struct {
	EnvVars
	Auth
	OAuth
	Cors
}

func New() Config {
	return mainConfig{}
}

package config

type OAuthConfig interface {
	GetOAuthIssuer() string
	GetOAuthClientID() string
	GetOAuthClientSecret() string
	GetOAuthRedirectURL() string
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetOAuthIssuer() string {
	return GetEnv("OAUTH_ISSUER", "https://accounts.google.com")
}

func (OAuth) GetOAuthClientID() string {
	return GetEnv("OAUTH_CLIENT_ID", "")
}

func (OAuth) GetOAuthClientSecret() string {
	return GetEnv("OAUTH_CLIENT_SECRET", "")
}

// GetOAuthRedirectURL returns the callback URL registered with the
// provider. Defaults to the service base URL plus the callback route.
func (o OAuth) GetOAuthRedirectURL() string {
	if url := GetEnv("OAUTH_REDIRECT_URL", ""); url != "" {
		return url
	}
	return EnvVars{}.GetBaseURL() + "/auth/oauth/callback"
}

package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// OAuth flow
	RouteOAuthStart    = "/auth/oauth/start"
	RouteOAuthCallback = "/auth/oauth/callback"
	RouteBridge        = "/auth/bridge"

	// Credential endpoints
	RouteIdentity = "/auth/identity"
	RouteLogin    = "/auth/login"
	RouteLogout   = "/auth/logout"
	RouteUsername = "/auth/username"

	// Landing pages (served by the web frontend, targets of our redirects)
	RouteLoginPage = "/login"
	RouteApp       = "/app"

	RouteHealthz = "/healthz"
)

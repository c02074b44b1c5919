package server

func (s *Server) initRoutes() {
	// OAuth flow
	s.RegisterRouteHandler("GET "+RouteOAuthStart, ChainMiddleware(s.OAuthStartHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteOAuthCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteBridge, ChainMiddleware(s.BridgeHandler(), s.APIMiddleware()...))

	// Credential endpoints
	s.RegisterRouteHandler("GET "+RouteIdentity, ChainMiddleware(s.IdentityHandler(), s.APIMiddleware(s.RequireIdentity())...))
	s.RegisterRouteHandler("POST "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.RequireIdentity())...))
	s.RegisterRouteHandler("POST "+RouteUsername, ChainMiddleware(s.UsernameHandler(), s.APIMiddleware(s.RequireIdentity())...))

	s.RegisterRouteFunc("GET "+RouteHealthz, s.HealthzHandler())
}

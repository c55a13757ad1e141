package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteIndex, s.IndexHandler())

	// Link session API
	s.RegisterRouteHandler("GET "+RouteSessionQR, ChainMiddleware(s.QRSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSessionPair, ChainMiddleware(s.PairSessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSessionResult, ChainMiddleware(s.SessionResultHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteSessionCreds, ChainMiddleware(s.CredsHandler(), s.APIMiddleware()...))
}

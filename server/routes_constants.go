package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Link session API
	RouteSessionQR     = "/api/session/qr"
	RouteSessionPair   = "/api/session/pair"
	RouteSessionResult = "/api/session/result/{id}"
	RouteSessionCreds  = "/api/session/creds/{code}"

	// UI
	RouteIndex = "/"
)

package api

// HTTP endpoints served by the auth router
const (
	Login       = "/login"
	Health      = "/health"
	AdminPrefix = "/admin"
	AdminUnlock = "/unlock/{username}"
	AdminList   = "/accounts"
	AdminPolicy = "/policy"
	AdminStatus = "/status/{username}"
)

// HealthService is the gRPC health service name tracking the lockout backend
const HealthService = "authguard.lockout"

package handlers

// Fixed messages for responses that are not tied to a resource.
const (
	MsgRouteNotFound      = "route not found"
	MsgMethodNotAllowed   = "method not allowed"
	MsgServiceUnavailable = "service unavailable"

	// constraintPrefix precedes the store's constraint code in 400 responses.
	constraintPrefix = "Prisma error code: "
)

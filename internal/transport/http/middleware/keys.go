package middleware

// HeaderRequestID carries the request id in and out of both engines.
const HeaderRequestID = "X-Request-ID"

// Context keys shared by the middleware and the actions.
const (
	KeyRequestID = "requestId"
	KeyUserID    = "userId"
	KeyRole      = "role"
)

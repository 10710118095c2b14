package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// HTTP Headers
	HeaderContentType   = "Content-Type"
	HeaderXRequestID    = "X-Request-ID"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderUserAgent     = "User-Agent"
	HeaderAdminToken    = "X-Admin-Token"

	ContentTypeJSON = "application/json"

	APIVersionPrefix = "/api/v1"

	// Context keys
	ContextKeyRequestID = "request_id"

	// Database table names
	TablePaymentLedger  = "payment_ledger"
	TablePaymentIntents = "payment_intents"
	TableParticipants   = "participants"

	// Error messages
	ErrMsgInternalServerError = "Internal server error occurred"
	ErrMsgResourceNotFound    = "Resource not found"
	ErrMsgUnauthorized        = "Unauthorized access"
	ErrMsgValidationFailed    = "Validation failed"
	ErrMsgConflict            = "Resource already exists"
	ErrMsgTooManyRequests     = "Too many requests"
)

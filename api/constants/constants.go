package constants

// Common error messages
const (
	ErrInvalidJSON        = "invalid json or missing fields"
	ErrMissingUserID      = "Missing or invalid user_id in body"
	ErrInvalidRequestBody = "Invalid request body"
	ErrMethodNotAllowed   = "Method Not Allowed"
	ErrRouteNotFound      = "Route not found"
	ErrInternal           = "Something went wrong. Please try again"
)

// Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "Content-Type"
)

// Upload limits
const (
	MaxUploadBytes = 32 << 20
	UploadField    = "file"
)

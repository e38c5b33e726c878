// internal/api/error_codes.go
package api

// API error code constants.
const (
	// Generic
	ErrorBadRequest    = "BAD_REQUEST"
	ErrorNotFound      = "NOT_FOUND"
	ErrorInternalError = "INTERNAL_ERROR"
	ErrorConflict      = "CONFLICT"
	ErrorUnauthorized  = "SIGN_IN_REQUIRED"

	// Tutor session errors
	ErrorSessionNotFound   = "SESSION_NOT_FOUND"
	ErrorGenerationFailed  = "GENERATION_FAILED"
	ErrorSessionBusy       = "SESSION_BUSY"
	ErrorPersonaInvalid    = "PERSONA_INVALID"
	ErrorPersistenceFailed = "PERSISTENCE_FAILED"

	// Content errors
	ErrorContentUnavailable = "CONTENT_UNAVAILABLE"

	// LLM provider errors
	ErrorLLMServiceUnavailable = "LLM_SERVICE_UNAVAILABLE"
	ErrorLLMConfigInvalid      = "LLM_CONFIG_INVALID"

	// Export errors
	ErrorExportFailed        = "EXPORT_FAILED"
	ErrorExportFormatInvalid = "EXPORT_FORMAT_INVALID"
)

package utils

// Error codes returned in API responses.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeTimeout      = "TIMEOUT"
)

// AppError is the error payload shape for API responses.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

// NewAppError creates an error payload. The optional third argument carries
// field-level detail for validation failures.
func NewAppError(code, message string, details ...string) *AppError {
	appErr := &AppError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		appErr.Details = details[0]
	}
	return appErr
}

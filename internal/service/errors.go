package service

// Error codes returned by service operations.
const (
	ErrCodeValidation    = "VALIDATION"
	ErrCodeNotConfigured = "NOT_CONFIGURED"
	ErrCodeInternal      = "INTERNAL"
)

// ServiceError represents a business logic error with a code for HTTP mapping.
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

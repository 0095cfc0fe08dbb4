package errors

const (
	HttpInternalError          = "internal_error"
	HttpInvalidJsonError       = "invalid_json"
	HttpInvalidRequestError    = "invalid_request"
	HttpDuplicateActivityError = "duplicate_activity"
)

// ErrorResponse is the error response body of every JSON endpoint.
type ErrorResponse struct {
	ErrorType string      `json:"error_type"`
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
}

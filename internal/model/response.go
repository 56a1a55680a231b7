package model

// ListResponse is the standard envelope for paginated admin list endpoints.
type ListResponse struct {
	Resource interface{}   `json:"resource"`
	Meta     *ResponseMeta `json:"meta,omitempty"`
}

// ResponseMeta contains pagination information for list responses.
type ResponseMeta struct {
	Count int    `json:"count"`
	Total *int64 `json:"total,omitempty"`
	Page  int    `json:"page,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// ErrorResponse is the body of every error the service itself produces.
// Responses relayed verbatim from Chatwoot are not wrapped.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Error kinds used in ErrorResponse.Error.
const (
	ErrKindBadRequest   = "bad_request"
	ErrKindUnauthorized = "unauthorized"
	ErrKindForbidden    = "forbidden"
	ErrKindNotFound     = "not_found"
	ErrKindConflict     = "conflict"
	ErrKindTooLarge     = "payload_too_large"
	ErrKindRateLimited  = "rate_limited"
	ErrKindInternal     = "internal_error"
)

// ErrorKind maps an HTTP status code to its error kind.
func ErrorKind(status int) string {
	switch status {
	case 400:
		return ErrKindBadRequest
	case 401:
		return ErrKindUnauthorized
	case 403:
		return ErrKindForbidden
	case 404:
		return ErrKindNotFound
	case 409:
		return ErrKindConflict
	case 413:
		return ErrKindTooLarge
	case 429:
		return ErrKindRateLimited
	default:
		return ErrKindInternal
	}
}

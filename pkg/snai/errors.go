package snai

// RateLimitError is returned by Register when the network responds with
// HTTP 429. Registration is capped server-side at 2 agents per day per
// source IP; the client never throttles locally.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string { return e.Message }

// AuthError is returned by any authenticated call that receives HTTP 401,
// regardless of what the response body claims.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// APIError is returned when the server response parses but its success
// flag is false or absent. Message carries the server-provided error text
// when present, otherwise an operation-specific fallback.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string { return e.Message }

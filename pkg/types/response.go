package types

// APIResponse is the envelope every endpoint returns: statusCode, a human
// message, and an optional data payload.
type APIResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data,omitempty"`
}

// APIErrorResponse mirrors APIResponse for failures, carrying the stable
// machine-readable code in the error field.
type APIErrorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error"`
	Details    any    `json:"details,omitempty"`
}

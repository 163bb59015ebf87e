package dto

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty" validate:"omitempty"`
}

// HealthResponse reports liveness and build information
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
	Service   string `json:"service"`
}

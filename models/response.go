package models

// ErrorResponse is the failure payload of every API endpoint.
type ErrorResponse struct {
	Error string `json:"error" example:"no such table: findings"`
}

// MessageResponse is the success payload of mutating endpoints.
type MessageResponse struct {
	Message string `json:"message" example:"Severity updated successfully"`
	DB      string `json:"db,omitempty" example:"q1-audit.db"` // Set by /upload to the new database handle.
}

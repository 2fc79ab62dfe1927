package utils

import (
	"github.com/google/uuid"
)

// RequestIDField is the gin context key and log field holding the request ID.
const RequestIDField = "request_id"

// NewRequestID returns a random identifier for a single request.
func NewRequestID() string {
	return uuid.NewString()
}

package dto

import "time"

// StructuredResponse provides a base structured API response
type StructuredResponse struct {
	Success   bool         `json:"success" example:"true"`
	Message   string       `json:"message" example:"Operation completed successfully"`
	Data      interface{}  `json:"data"`
	Error     *ErrorDetail `json:"error,omitempty"`
	Timestamp time.Time    `json:"timestamp" example:"2025-04-23T12:01:05.123Z"`
}

// NewStructuredResponse creates a standard structured API response
func NewStructuredResponse(data interface{}, message string) StructuredResponse {
	return StructuredResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	}
}

// IDResponse carries the identifier of a created or touched row
type IDResponse struct {
	ID int64 `json:"id" example:"12"`
}

// CountResponse carries a single count
type CountResponse struct {
	Count int64 `json:"count" example:"3"`
}

// AffectedResponse reports how many rows a bulk update touched
type AffectedResponse struct {
	Affected int64 `json:"affected" example:"5"`
}

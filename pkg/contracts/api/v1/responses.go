package api

import (
	"time"

	"solarcli/pkg/contracts/domain"
)

// Response is the envelope of every successful JSON response
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
	Count  *int        `json:"count,omitempty"`
}

// NewResponse wraps data in a success envelope
func NewResponse(data interface{}) *Response {
	return &Response{Status: "success", Data: data}
}

// NewListResponse wraps a list and its length
func NewListResponse(data interface{}, count int) *Response {
	return &Response{Status: "success", Data: data, Count: &count}
}

// RefreshResponse reports a reload of the cleaned datasets
type RefreshResponse struct {
	Countries []domain.Country `json:"countries"`
	LoadedAt  time.Time        `json:"loaded_at"`
}

// OperationAccepted is returned when a run starts in the background
type OperationAccepted struct {
	ID        string `json:"id"`
	StatusURL string `json:"status_url"`
}

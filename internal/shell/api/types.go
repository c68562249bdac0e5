package api

import "github.com/artpar/deploybot/internal/shell/store"

// =============================================================================
// Response Types
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the readiness check response.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// WebhookResponse acknowledges a webhook delivery.
type WebhookResponse struct {
	Status   string `json:"status"`
	Delivery string `json:"delivery"`
	Event    string `json:"event,omitempty"`
}

// Webhook acknowledgement statuses.
const (
	WebhookAccepted  = "accepted"
	WebhookIgnored   = "ignored"
	WebhookDuplicate = "duplicate"
)

// ListDeliveriesResponse is the response for listing deliveries.
type ListDeliveriesResponse struct {
	Deliveries []store.Delivery `json:"deliveries"`
	Count      int              `json:"count"`
}

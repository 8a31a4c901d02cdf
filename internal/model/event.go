package model

import "encoding/json"

// EventType is a logical event name dispatched to consumers.
type EventType string

const (
	EventTransaction EventType = "transaction"
)

// OperationFilter restricts which operations a consumer receives.
type OperationFilter string

const (
	FilterAll     OperationFilter = "all"
	FilterCreated OperationFilter = "created"
	FilterUpdated OperationFilter = "updated"
)

// EventPayload is the finbank webhook body. The provider only guarantees
// the envelope; MergePatch carries just the fields that changed, so every
// sub-field must be treated as optional.
type EventPayload struct {
	ID            string          `json:"id"`
	ResourceType  string          `json:"resourceType"`
	OperationType string          `json:"operationType"` // created, updated, open to provider extension
	ResourceID    string          `json:"resourceId"`
	MergePatch    json.RawMessage `json:"mergePatch"`
}

// TransactionPatch is the diff object for transaction events.
// Absent keys unmarshal to zero values and are normalized to
// empty string / nil amount downstream.
type TransactionPatch struct {
	AccountID        string   `json:"accountId"`
	Amount           *float64 `json:"amount"`
	Status           string   `json:"status"`
	BookedAt         string   `json:"bookedAt"`
	ValueDate        string   `json:"valueDate"`
	CounterpartyName string   `json:"counterpartyName"`
	Description      string   `json:"description"`
	Note             string   `json:"note"`
	Category         string   `json:"category"`
	Type             string   `json:"type"`
}

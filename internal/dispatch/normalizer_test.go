package dispatch_test

import (
	"encoding/json"
	"testing"

	"bank-webhook-gateway/internal/dispatch"
	"bank-webhook-gateway/internal/model"
)

func TestNormalizeTransaction(t *testing.T) {
	payload := model.EventPayload{
		ID:            "evt_1",
		ResourceType:  "transaction",
		OperationType: "created",
		ResourceID:    "txn_99",
		MergePatch: json.RawMessage(`{
			"accountId": "acc_1",
			"amount": -150.00,
			"status": "pending",
			"counterpartyName": "ACME GmbH",
			"description": "Invoice 42"
		}`),
	}

	t.Run("flattens envelope and diff fields", func(t *testing.T) {
		result := dispatch.NormalizeTransaction(payload, model.FilterAll)
		if result.Ignored() {
			t.Fatalf("unexpected ignore: %s", result.IgnoredReason)
		}
		want := map[string]any{
			"event_id":          "evt_1",
			"transaction_id":    "txn_99",
			"operation_type":    "created",
			"account_id":        "acc_1",
			"amount":            -150.00,
			"status":            "pending",
			"counterparty_name": "ACME GmbH",
			"description":       "Invoice 42",
		}
		for key, value := range want {
			if result.Fields[key] != value {
				t.Errorf("%s: got %v, want %v", key, result.Fields[key], value)
			}
		}
	})

	t.Run("absent keys default to empty and nil amount", func(t *testing.T) {
		sparse := model.EventPayload{
			ID:            "evt_2",
			OperationType: "updated",
			ResourceID:    "txn_100",
			MergePatch:    json.RawMessage(`{"status":"booked"}`),
		}
		result := dispatch.NormalizeTransaction(sparse, model.FilterAll)
		if result.Ignored() {
			t.Fatalf("unexpected ignore: %s", result.IgnoredReason)
		}
		if result.Fields["amount"] != nil {
			t.Errorf("absent amount must be nil, got %v", result.Fields["amount"])
		}
		if result.Fields["counterparty_name"] != "" {
			t.Errorf("absent counterparty must be empty, got %v", result.Fields["counterparty_name"])
		}
		if result.Fields["status"] != "booked" {
			t.Errorf("unexpected status: %v", result.Fields["status"])
		}
	})

	t.Run("missing diff still yields envelope fields", func(t *testing.T) {
		bare := model.EventPayload{ID: "evt_3", OperationType: "created", ResourceID: "txn_101"}
		result := dispatch.NormalizeTransaction(bare, model.FilterAll)
		if result.Ignored() {
			t.Fatalf("unexpected ignore: %s", result.IgnoredReason)
		}
		if result.Fields["transaction_id"] != "txn_101" {
			t.Errorf("unexpected transaction id: %v", result.Fields["transaction_id"])
		}
	})

	t.Run("filter mismatch is ignored, not an error", func(t *testing.T) {
		updated := payload
		updated.OperationType = "updated"
		result := dispatch.NormalizeTransaction(updated, model.FilterCreated)
		if !result.Ignored() {
			t.Fatal("expected ignored outcome")
		}
		if result.Fields != nil {
			t.Errorf("ignored events must emit no fields, got %v", result.Fields)
		}
	})

	t.Run("filter match is case-insensitive", func(t *testing.T) {
		shouting := payload
		shouting.OperationType = "CREATED"
		result := dispatch.NormalizeTransaction(shouting, model.FilterCreated)
		if result.Ignored() {
			t.Fatalf("unexpected ignore: %s", result.IgnoredReason)
		}
	})
}

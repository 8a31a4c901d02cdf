package dispatch

import (
	"encoding/json"
	"fmt"
	"strings"

	"bank-webhook-gateway/internal/model"
)

// NormalizeResult is the outcome of flattening one payload. Ignored is a
// valid, authenticated event the caller chose not to receive — distinct
// from a rejected delivery.
type NormalizeResult struct {
	Fields        map[string]any
	IgnoredReason string
}

func (r NormalizeResult) Ignored() bool {
	return r.IgnoredReason != ""
}

// NormalizeTransaction flattens a transaction event envelope plus its
// mergePatch diff into a flat field map. The provider sends only changed
// fields, so absent keys become empty string / nil amount instead of errors.
func NormalizeTransaction(payload model.EventPayload, filter model.OperationFilter) NormalizeResult {
	if filter != model.FilterAll && !strings.EqualFold(payload.OperationType, string(filter)) {
		return NormalizeResult{
			IgnoredReason: fmt.Sprintf("operation %q filtered out by %q", payload.OperationType, filter),
		}
	}

	var patch model.TransactionPatch
	if len(payload.MergePatch) > 0 {
		// A malformed diff still yields the envelope fields.
		_ = json.Unmarshal(payload.MergePatch, &patch)
	}

	var amount any
	if patch.Amount != nil {
		amount = *patch.Amount
	}

	return NormalizeResult{
		Fields: map[string]any{
			"event_id":          payload.ID,
			"transaction_id":    payload.ResourceID,
			"operation_type":    payload.OperationType,
			"account_id":        patch.AccountID,
			"amount":            amount,
			"status":            patch.Status,
			"booked_at":         patch.BookedAt,
			"value_date":        patch.ValueDate,
			"counterparty_name": patch.CounterpartyName,
			"description":       patch.Description,
			"note":              patch.Note,
			"category":          patch.Category,
			"type":              patch.Type,
		},
	}
}

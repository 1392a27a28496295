package application

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/localborga/milling-orders/internal/domains/orders/domain"
)

type normalizedDraft struct {
	ItemName     string  `json:"itemName"`
	MillingStyle *string `json:"millingStyle"`
	WeightKg     *string `json:"weightKg"`
	TotalPrice   *string `json:"totalPrice"`
}

// FingerprintDraft builds a deterministic hash of an order draft (excluding the idempotency key).
func FingerprintDraft(draft domain.Draft) (string, error) {
	draft = draft.Normalize()
	normalized := normalizedDraft{
		ItemName:     draft.ItemName,
		MillingStyle: draft.MillingStyle,
	}
	if draft.WeightKg != nil {
		w := draft.WeightKg.String()
		normalized.WeightKg = &w
	}
	if draft.TotalPrice != nil {
		p := draft.TotalPrice.StringFixed(2)
		normalized.TotalPrice = &p
	}
	payload, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

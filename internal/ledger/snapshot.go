package ledger

import (
	"encoding/json"
	"fmt"

	"storefront/internal/domain"
)

// snapshotVersion is bumped when the envelope layout changes.
const snapshotVersion = 0

type envelope struct {
	State   snapshotState `json:"state"`
	Version int           `json:"version"`
}

type snapshotState struct {
	Items []domain.LineItem `json:"items"`
}

// Encode serializes line items into the persisted envelope.
func Encode(items []domain.LineItem) ([]byte, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	return json.Marshal(envelope{State: snapshotState{Items: items}, Version: snapshotVersion})
}

// Decode parses a persisted envelope. Lines with non-positive quantities are
// dropped and repeated products are merged, so a restored cart always holds
// the ledger invariants.
func Decode(payload []byte) ([]domain.LineItem, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	if env.Version != snapshotVersion {
		return nil, fmt.Errorf("decode cart snapshot: unsupported version %d", env.Version)
	}

	items := make([]domain.LineItem, 0, len(env.State.Items))
	seen := make(map[int64]int, len(env.State.Items))
	for _, item := range env.State.Items {
		if item.Quantity <= 0 {
			continue
		}
		if i, ok := seen[item.Product.ID]; ok {
			items[i].Quantity += item.Quantity
			continue
		}
		seen[item.Product.ID] = len(items)
		items = append(items, item)
	}
	return items, nil
}

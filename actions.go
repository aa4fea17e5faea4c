package dynamorepo

import (
	"context"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/RafaeldaSilvaa/dynamo-repository/storage"
)

// BuildActions turns an attribute-to-value mapping into set actions, one per
// entry. The order is deterministic (sorted by attribute name). An empty
// mapping yields an empty sequence.
func BuildActions(updates map[string]any) []storage.SetAction {
	names := maps.Keys(updates)
	slices.Sort(names)
	actions := make([]storage.SetAction, 0, len(names))
	for _, name := range names {
		actions = append(actions, storage.SetAction{Name: name, Value: updates[name]})
	}
	return actions
}

// UpdateActions applies partial-update set actions to the item under the
// key, for callers who want finer-grained control than the full-instance
// Update merge. No actions is a no-op.
func (r *Repository[T]) UpdateActions(ctx context.Context, key Key, actions ...storage.SetAction) error {
	if len(actions) == 0 {
		return nil
	}
	if err := r.client.UpdateItem(ctx, storage.UpdateRequest{
		Table:   r.def,
		Key:     r.primaryKey(key),
		Actions: actions,
	}); err != nil {
		return fmt.Errorf("update actions: %w", err)
	}
	return nil
}

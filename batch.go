package dynamorepo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/RafaeldaSilvaa/dynamo-repository/storage"
	"github.com/RafaeldaSilvaa/dynamo-repository/table"
)

// BatchGet retrieves many items in one logical call. Keys with no stored
// item are omitted from the result, so the output may be shorter than the
// input; result order is not guaranteed to match input order. Empty input
// yields an empty result. Reads are strongly consistent unless overridden.
func (r *Repository[T]) BatchGet(ctx context.Context, keys []Key, opts ...ReadOption) ([]T, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	o := applyReadOpts(true, opts)
	pks := make([]table.PrimaryKey, 0, len(keys))
	for _, k := range keys {
		pks = append(pks, r.primaryKey(k))
	}
	items, err := r.client.BatchGetItems(ctx, storage.BatchGetRequest{
		Table:          r.def,
		Keys:           pks,
		ConsistentRead: o.consistentRead,
	})
	if err != nil {
		return nil, fmt.Errorf("batch get: %w", err)
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		var e T
		if err := attributevalue.UnmarshalMap(item, &e); err != nil {
			return nil, fmt.Errorf("unmarshal item: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

package dynamorepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/RafaeldaSilvaa/dynamo-repository/condition"
	"github.com/RafaeldaSilvaa/dynamo-repository/storage"
	"github.com/RafaeldaSilvaa/dynamo-repository/table"
)

// UpdateOption configures Update and Upsert.
type UpdateOption func(*updateOpts)

type updateOpts struct {
	consistentRead bool
	versionAttr    string
	versionSeen    any
}

// WithConsistentRead makes the read side of the read-merge-write strongly
// consistent.
func WithConsistentRead() UpdateOption {
	return func(o *updateOpts) {
		o.consistentRead = true
	}
}

// WithVersionCheck makes the write conditional on the named attribute still
// holding the value the caller last saw. When the stored value has advanced
// the operation fails with ErrConflict instead of silently overwriting.
// Without it, Update is last-writer-wins at attribute granularity.
func WithVersionCheck(attr string, seen any) UpdateOption {
	return func(o *updateOpts) {
		o.versionAttr = attr
		o.versionSeen = seen
	}
}

// Update merges the instance's attributes into the currently stored item and
// writes the result back. The protocol is read-modify-write, not an atomic
// conditional update: fetch the stored item, overwrite every non-key
// attribute present on the instance, put the merged item. Key attributes are
// never altered, whatever the instance carries in them. Fails with
// ErrItemNotFound when no item is stored under the instance's key.
func (r *Repository[T]) Update(ctx context.Context, e *T, opts ...UpdateOption) (*T, error) {
	var o updateOpts
	for _, opt := range opts {
		opt(&o)
	}
	item, pk, err := r.marshalWithKey(e)
	if err != nil {
		return nil, err
	}
	stored, err := r.client.GetItem(ctx, storage.GetRequest{
		Table:          r.def,
		Key:            pk,
		ConsistentRead: o.consistentRead,
	})
	if err != nil {
		return nil, fmt.Errorf("update: read current item: %w", err)
	}
	if stored == nil {
		return nil, fmt.Errorf("update key %v: %w", pk.Values.PartitionKey, ErrItemNotFound)
	}

	merged := make(storage.Item, len(stored)+len(item))
	for k, v := range stored {
		merged[k] = v
	}
	for k, v := range item {
		if k == r.meta.HashKey || (r.meta.RangeKey != "" && k == r.meta.RangeKey) {
			continue
		}
		merged[k] = v
	}

	put := storage.PutRequest{Table: r.def, Item: merged}
	if o.versionAttr != "" {
		put.Condition = condition.Equals(o.versionAttr, o.versionSeen)
	}
	if err := r.client.PutItem(ctx, put); err != nil {
		if errors.Is(err, storage.ErrConditionFailed) {
			return nil, fmt.Errorf("update attribute %q: %w", o.versionAttr, ErrConflict)
		}
		return nil, fmt.Errorf("update: write merged item: %w", err)
	}
	r.log.Debug("updated item")
	return e, nil
}

// Upsert looks the key up and delegates to Update when an item exists, or to
// Insert when it does not. The existence check and the follow-up write are
// separate round trips with no transactional guarantee; a concurrent delete
// in between can make the Update leg fail with ErrItemNotFound.
func (r *Repository[T]) Upsert(ctx context.Context, e *T, opts ...UpdateOption) (*T, error) {
	var o updateOpts
	for _, opt := range opts {
		opt(&o)
	}
	_, pk, err := r.marshalWithKey(e)
	if err != nil {
		return nil, err
	}
	stored, err := r.client.GetItem(ctx, storage.GetRequest{
		Table:          r.def,
		Key:            pk,
		ConsistentRead: o.consistentRead,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert: read current item: %w", err)
	}
	if stored == nil {
		return r.Insert(ctx, e)
	}
	return r.Update(ctx, e, opts...)
}

// marshalWithKey marshals the instance and extracts its primary key from the
// marshaled form.
func (r *Repository[T]) marshalWithKey(e *T) (storage.Item, table.PrimaryKey, error) {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return nil, table.PrimaryKey{}, fmt.Errorf("marshal entity: %w", err)
	}
	pk, err := r.keyDef.ExtractPrimaryKey(item)
	if err != nil {
		return nil, table.PrimaryKey{}, fmt.Errorf("extract key from entity: %w", err)
	}
	return item, pk, nil
}

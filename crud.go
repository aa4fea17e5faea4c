package dynamorepo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"

	"github.com/RafaeldaSilvaa/dynamo-repository/storage"
)

// Get looks up one item by key. An empty hash key short-circuits to
// (nil, nil) without contacting storage, and a missing item is also
// (nil, nil), never an error.
func (r *Repository[T]) Get(ctx context.Context, key Key, opts ...ReadOption) (*T, error) {
	if emptyKeyValue(key.Hash) {
		return nil, nil
	}
	o := applyReadOpts(false, opts)
	item, err := r.client.GetItem(ctx, storage.GetRequest{
		Table:          r.def,
		Key:            r.primaryKey(key),
		ConsistentRead: o.consistentRead,
	})
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	if item == nil {
		return nil, nil
	}
	var out T
	if err := attributevalue.UnmarshalMap(item, &out); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &out, nil
}

// Exists reports whether an item is stored under the key.
func (r *Repository[T]) Exists(ctx context.Context, key Key, opts ...ReadOption) (bool, error) {
	item, err := r.Get(ctx, key, opts...)
	if err != nil {
		return false, err
	}
	return item != nil, nil
}

// Insert writes the instance unconditionally, overwriting any stored item
// with the same key. Attributes not declared in the table definition pass
// through as given. Returns the same instance for chaining.
func (r *Repository[T]) Insert(ctx context.Context, e *T) (*T, error) {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return nil, fmt.Errorf("marshal entity: %w", err)
	}
	if err := r.client.PutItem(ctx, storage.PutRequest{Table: r.def, Item: item}); err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}
	r.log.Debug("inserted item")
	return e, nil
}

// Delete removes the item under the key. Deleting a missing item is not an
// error.
func (r *Repository[T]) Delete(ctx context.Context, key Key) error {
	if err := r.client.DeleteItem(ctx, storage.DeleteRequest{
		Table: r.def,
		Key:   r.primaryKey(key),
	}); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	r.log.Debug("deleted item", zap.Any("hashKey", key.Hash))
	return nil
}

// emptyKeyValue treats a nil or empty-string hash key as "no key given".
func emptyKeyValue(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

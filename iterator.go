package dynamorepo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/RafaeldaSilvaa/dynamo-repository/storage"
)

// Iterator is a forward-only lazy sequence of entities. Items are fetched a
// page at a time from storage as the iterator is consumed; discarding the
// iterator simply stops further fetches. Not safe for concurrent use.
type Iterator[T any] struct {
	pager storage.Pager
	buf   []storage.Item
	done  bool
}

func newIterator[T any](pager storage.Pager) *Iterator[T] {
	return &Iterator[T]{pager: pager}
}

// Next returns the next entity, fetching a new page when the current one is
// drained. Exhaustion is signaled by (nil, nil).
func (it *Iterator[T]) Next(ctx context.Context) (*T, error) {
	for len(it.buf) == 0 && !it.done {
		page, err := it.pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		it.buf = page.Items
		it.done = page.Done
	}
	if len(it.buf) == 0 {
		return nil, nil
	}
	item := it.buf[0]
	it.buf = it.buf[1:]
	var out T
	if err := attributevalue.UnmarshalMap(item, &out); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &out, nil
}

// All drains the iterator into a slice.
func (it *Iterator[T]) All(ctx context.Context) ([]T, error) {
	var all []T
	for {
		e, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if e == nil {
			return all, nil
		}
		all = append(all, *e)
	}
}

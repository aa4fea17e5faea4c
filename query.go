package dynamorepo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/RafaeldaSilvaa/dynamo-repository/condition"
	"github.com/RafaeldaSilvaa/dynamo-repository/storage"
)

// Query describes a partition query. HashKeyValue nil means "no hash key
// given", which is only valid together with ScanFallback and a range
// condition.
type Query struct {
	HashKeyValue any
	// RangeCondition constrains the sort key. Its path must be the sort-key
	// attribute of the query target.
	RangeCondition condition.Condition
	Filter         condition.Condition
	// Limit caps total items yielded across all pages; zero = unbounded.
	Limit      int32
	Descending bool
	// ScanFallback opts into a full scan when HashKeyValue is absent,
	// filtering on the AND of RangeCondition and Filter. Deliberately
	// expensive; off by default.
	ScanFallback   bool
	ConsistentRead bool
}

// Scan describes a full-table (or full-index) scan. No ordering guarantee.
type Scan struct {
	Filter         condition.Condition
	Limit          int32
	ConsistentRead bool
}

// Query runs a partition query against the base table. Dispatch, in order:
// a hash key value runs a partition query; otherwise ScanFallback with a
// range condition runs a filtered full scan; otherwise the call fails with
// ErrInvalidQuery before any storage round trip.
func (r *Repository[T]) Query(ctx context.Context, q Query) (*Iterator[T], error) {
	return r.dispatch(ctx, "", q)
}

// QueryIndex runs the same dispatch against a named secondary index. An
// unknown index name surfaces as an error from the storage layer.
func (r *Repository[T]) QueryIndex(ctx context.Context, indexName string, q Query) (*Iterator[T], error) {
	return r.dispatch(ctx, indexName, q)
}

func (r *Repository[T]) dispatch(ctx context.Context, indexName string, q Query) (*Iterator[T], error) {
	switch {
	case q.HashKeyValue != nil:
		pager, err := r.client.Query(ctx, storage.QueryRequest{
			Table:          r.def,
			IndexName:      indexName,
			HashKeyValue:   q.HashKeyValue,
			RangeCondition: q.RangeCondition,
			Filter:         q.Filter,
			Limit:          q.Limit,
			Descending:     q.Descending,
			ConsistentRead: q.ConsistentRead,
		})
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		return newIterator[T](pager), nil

	case q.ScanFallback && q.RangeCondition.IsSet():
		r.log.Debug("query falling back to full scan", zap.String("index", indexName))
		pager, err := r.client.Scan(ctx, storage.ScanRequest{
			Table:          r.def,
			IndexName:      indexName,
			Filter:         condition.And(q.RangeCondition, q.Filter),
			Limit:          q.Limit,
			ConsistentRead: q.ConsistentRead,
		})
		if err != nil {
			return nil, fmt.Errorf("query scan fallback: %w", err)
		}
		return newIterator[T](pager), nil

	default:
		return nil, ErrInvalidQuery
	}
}

// Scan walks the whole table, optionally filtered.
func (r *Repository[T]) Scan(ctx context.Context, s Scan) (*Iterator[T], error) {
	return r.scanPages(ctx, s, 0)
}

// ScanPaginated is Scan with a caller-bounded per-round-trip page size. The
// result is still one flat lazy sequence; pagination only controls how much
// is fetched per storage call.
func (r *Repository[T]) ScanPaginated(ctx context.Context, s Scan, pageSize int32) (*Iterator[T], error) {
	return r.scanPages(ctx, s, pageSize)
}

func (r *Repository[T]) scanPages(ctx context.Context, s Scan, pageSize int32) (*Iterator[T], error) {
	pager, err := r.client.Scan(ctx, storage.ScanRequest{
		Table:          r.def,
		Filter:         s.Filter,
		Limit:          s.Limit,
		PageSize:       pageSize,
		ConsistentRead: s.ConsistentRead,
	})
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return newIterator[T](pager), nil
}

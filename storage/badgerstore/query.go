package badgerstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/RafaeldaSilvaa/dynamo-repository/condition"
	"github.com/RafaeldaSilvaa/dynamo-repository/storage"
)

// Query iterates one partition in sort-key order as a lazy pager. Range and
// filter conditions are evaluated against the deserialized items, so both
// narrow the result set without changing the iteration bounds.
func (s *Store) Query(ctx context.Context, req storage.QueryRequest) (storage.Pager, error) {
	schema, err := s.getTable(req.Table.TableName)
	if err != nil {
		return nil, err
	}
	enc := schema.main
	if req.IndexName != "" {
		idxEnc, ok := schema.indexes[req.IndexName]
		if !ok {
			return nil, fmt.Errorf("table %q has no index %q", req.Table.TableName, req.IndexName)
		}
		enc = idxEnc
	}
	if enc.keyDef.PartitionKey.Name == "" {
		return nil, fmt.Errorf("no partition key defined for query target")
	}
	prefix, err := enc.partitionPrefix(req.HashKeyValue)
	if err != nil {
		return nil, fmt.Errorf("encode partition key prefix: %w", err)
	}
	return &pager{
		store:    s,
		prefix:   prefix,
		match:    condition.And(req.RangeCondition, req.Filter),
		pageSize: pageSize(req.PageSize),
		limit:    req.Limit,
		reverse:  req.Descending,
	}, nil
}

// Scan walks a whole table or index, optionally filtered.
func (s *Store) Scan(ctx context.Context, req storage.ScanRequest) (storage.Pager, error) {
	schema, err := s.getTable(req.Table.TableName)
	if err != nil {
		return nil, err
	}
	enc := schema.main
	if req.IndexName != "" {
		idxEnc, ok := schema.indexes[req.IndexName]
		if !ok {
			return nil, fmt.Errorf("table %q has no index %q", req.Table.TableName, req.IndexName)
		}
		enc = idxEnc
	}
	return &pager{
		store:    s,
		prefix:   enc.prefix(),
		match:    req.Filter,
		pageSize: pageSize(req.PageSize),
		limit:    req.Limit,
	}, nil
}

// pager walks the keys under one prefix, a page of matching items at a time.
// The cursor is the raw store key last visited, matching or not, so resumed
// pages never rescan filtered-out entries.
type pager struct {
	store    *Store
	prefix   []byte
	match    condition.Condition
	pageSize int32
	limit    int32
	reverse  bool

	seen   int32
	cursor []byte
	done   bool
}

var _ storage.Pager = (*pager)(nil)

func (p *pager) NextPage(ctx context.Context) (storage.Page, error) {
	if p.done {
		return storage.Page{Done: true}, nil
	}
	var items []storage.Item
	exhausted := true
	err := p.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = p.reverse
		opts.Prefix = p.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		p.seek(it)
		for ; it.Valid() && bytes.HasPrefix(it.Item().Key(), p.prefix); it.Next() {
			p.cursor = it.Item().KeyCopy(nil)
			var item storage.Item
			if err := it.Item().Value(func(val []byte) error {
				var err error
				item, err = deserializeItem(val)
				return err
			}); err != nil {
				return err
			}
			if p.match.IsSet() {
				ok, err := p.match.Matches(item)
				if err != nil {
					return fmt.Errorf("evaluate condition: %w", err)
				}
				if !ok {
					continue
				}
			}
			items = append(items, item)
			p.seen++
			if p.limit > 0 && p.seen >= p.limit {
				return nil
			}
			if int32(len(items)) >= p.pageSize {
				it.Next()
				exhausted = !it.Valid() || !bytes.HasPrefix(it.Item().Key(), p.prefix)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return storage.Page{}, fmt.Errorf("iterate failed: %w", err)
	}
	p.done = exhausted || (p.limit > 0 && p.seen >= p.limit)
	return storage.Page{Items: items, Done: p.done}, nil
}

// seek positions the iterator at the first key of this page. The byte after
// any prefix is a type marker below 0xff, so prefix+0xff sorts after every
// key in range and is a safe reverse starting point.
func (p *pager) seek(it *badger.Iterator) {
	switch {
	case p.cursor != nil:
		it.Seek(p.cursor)
		if it.Valid() && bytes.Equal(it.Item().Key(), p.cursor) {
			it.Next()
		}
	case p.reverse:
		it.Seek(append(bytes.Clone(p.prefix), 0xff))
	default:
		it.Seek(p.prefix)
	}
}

func pageSize(requested int32) int32 {
	if requested > 0 {
		return requested
	}
	return storage.DefaultPageSize
}

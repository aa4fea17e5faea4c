// Package badgerstore implements the storage contract on an embedded
// BadgerDB. It keeps the semantics the AWS backend has: conditional writes,
// sparse secondary indexes maintained on every write, ordered queries and
// paged scans. Transactions give the same read-check-write atomicity the
// service offers per item.
//
// The store is meant for tests and local development, not as a DynamoDB
// replacement.
package badgerstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/dgraph-io/badger/v4"

	"github.com/RafaeldaSilvaa/dynamo-repository/storage"
	"github.com/RafaeldaSilvaa/dynamo-repository/table"
)

type Store struct {
	db     *badger.DB
	tables map[string]*tableSchema
}

var _ storage.Client = (*Store)(nil)

type tableSchema struct {
	definition table.Definition
	main       keyEncoder
	indexes    map[string]keyEncoder
}

// Options configures the underlying BadgerDB.
type Options struct {
	// Path to the database directory. If empty, uses in-memory mode.
	Path string
	// InMemory forces in-memory mode even if Path is set.
	InMemory bool
	// Logger for BadgerDB. If nil, logging is disabled.
	Logger badger.Logger
}

// New opens the store and registers the given table definitions. Tables not
// registered here cannot be read or written.
func New(opts Options, defs ...table.Definition) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" || opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	badgerOpts = badgerOpts.WithLogger(opts.Logger)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}

	tables := make(map[string]*tableSchema, len(defs))
	for _, def := range defs {
		schema := &tableSchema{
			definition: def,
			main: keyEncoder{
				tableName: def.TableName,
				keyDef:    def.PrimaryKeyDefinition(),
			},
			indexes: make(map[string]keyEncoder),
		}
		for _, idx := range append(def.GlobalIndexes, def.LocalIndexes...) {
			schema.indexes[idx.Name] = keyEncoder{
				tableName: def.TableName,
				indexName: idx.Name,
				keyDef:    idx.PrimaryKeyDefinition(),
			}
		}
		tables[def.TableName] = schema
	}
	return &Store{db: db, tables: tables}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getTable(name string) (*tableSchema, error) {
	schema, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("table not found: %s", name)
	}
	return schema, nil
}

func (s *Store) GetItem(ctx context.Context, req storage.GetRequest) (storage.Item, error) {
	schema, err := s.getTable(req.Table.TableName)
	if err != nil {
		return nil, err
	}
	key, err := schema.main.encode(req.Key.Values)
	if err != nil {
		return nil, fmt.Errorf("encode key: %w", err)
	}
	var item storage.Item
	err = s.db.View(func(txn *badger.Txn) error {
		entry, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return entry.Value(func(val []byte) error {
			item, err = deserializeItem(val)
			return err
		})
	})
	if err != nil {
		return nil, fmt.Errorf("get item failed: %w", err)
	}
	return item, nil
}

func (s *Store) PutItem(ctx context.Context, req storage.PutRequest) error {
	schema, err := s.getTable(req.Table.TableName)
	if err != nil {
		return err
	}
	pk, err := schema.main.keyDef.ExtractPrimaryKey(req.Item)
	if err != nil {
		return fmt.Errorf("extract primary key: %w", err)
	}
	key, err := schema.main.encode(pk.Values)
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	itemBytes, err := serializeItem(req.Item)
	if err != nil {
		return fmt.Errorf("serialize item: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		oldItem, err := readItem(txn, key)
		if err != nil {
			return err
		}
		if req.Condition.IsSet() {
			ok, err := req.Condition.Matches(oldItem)
			if err != nil {
				return fmt.Errorf("evaluate condition: %w", err)
			}
			if !ok {
				return storage.ErrConditionFailed
			}
		}
		if err := txn.Set(key, itemBytes); err != nil {
			return err
		}
		return s.updateIndexEntries(txn, schema, req.Item, oldItem, itemBytes)
	})
}

func (s *Store) UpdateItem(ctx context.Context, req storage.UpdateRequest) error {
	if len(req.Actions) == 0 {
		return fmt.Errorf("update needs at least one set action")
	}
	schema, err := s.getTable(req.Table.TableName)
	if err != nil {
		return err
	}
	key, err := schema.main.encode(req.Key.Values)
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		oldItem, err := readItem(txn, key)
		if err != nil {
			return err
		}
		if req.Condition.IsSet() {
			ok, err := req.Condition.Matches(oldItem)
			if err != nil {
				return fmt.Errorf("evaluate condition: %w", err)
			}
			if !ok {
				return storage.ErrConditionFailed
			}
		}
		// UpdateItem creates the item when absent, so start from the
		// key attributes in that case.
		newItem := make(storage.Item, len(oldItem)+len(req.Actions))
		if oldItem != nil {
			for k, v := range oldItem {
				newItem[k] = v
			}
		} else {
			keyAttrs, err := req.Key.DDB()
			if err != nil {
				return fmt.Errorf("marshal key: %w", err)
			}
			for k, v := range keyAttrs {
				newItem[k] = v
			}
		}
		for _, a := range req.Actions {
			av, err := attributevalue.Marshal(a.Value)
			if err != nil {
				return fmt.Errorf("marshal value for %q: %w", a.Name, err)
			}
			newItem[a.Name] = av
		}
		itemBytes, err := serializeItem(newItem)
		if err != nil {
			return fmt.Errorf("serialize item: %w", err)
		}
		if err := txn.Set(key, itemBytes); err != nil {
			return err
		}
		return s.updateIndexEntries(txn, schema, newItem, oldItem, itemBytes)
	})
}

func (s *Store) DeleteItem(ctx context.Context, req storage.DeleteRequest) error {
	schema, err := s.getTable(req.Table.TableName)
	if err != nil {
		return err
	}
	key, err := schema.main.encode(req.Key.Values)
	if err != nil {
		return fmt.Errorf("encode key: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		oldItem, err := readItem(txn, key)
		if err != nil {
			return err
		}
		if oldItem == nil {
			// Deleting a missing item succeeds.
			return nil
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return s.deleteIndexEntries(txn, schema, oldItem)
	})
}

func (s *Store) BatchGetItems(ctx context.Context, req storage.BatchGetRequest) ([]storage.Item, error) {
	schema, err := s.getTable(req.Table.TableName)
	if err != nil {
		return nil, err
	}
	var items []storage.Item
	err = s.db.View(func(txn *badger.Txn) error {
		for _, k := range req.Keys {
			key, err := schema.main.encode(k.Values)
			if err != nil {
				return fmt.Errorf("encode key: %w", err)
			}
			entry, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if err := entry.Value(func(val []byte) error {
				item, err := deserializeItem(val)
				if err != nil {
					return err
				}
				items = append(items, item)
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch get items failed: %w", err)
	}
	return items, nil
}

func readItem(txn *badger.Txn, key []byte) (storage.Item, error) {
	entry, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var item storage.Item
	if err := entry.Value(func(val []byte) error {
		item, err = deserializeItem(val)
		return err
	}); err != nil {
		return nil, err
	}
	return item, nil
}

// updateIndexEntries keeps the secondary-index entries of one item in sync
// after a write. Items lacking an index's key attributes simply have no entry
// there; the index is sparse.
func (s *Store) updateIndexEntries(txn *badger.Txn, schema *tableSchema, newItem, oldItem storage.Item, itemBytes []byte) error {
	for name, enc := range schema.indexes {
		if enc.keyDef.PartitionKey.Name == "" {
			continue
		}
		oldKey := indexEntryKey(enc, schema.main, oldItem)
		newKey := indexEntryKey(enc, schema.main, newItem)
		if oldKey != nil && !bytes.Equal(oldKey, newKey) {
			if err := txn.Delete(oldKey); err != nil {
				return fmt.Errorf("index %s: %w", name, err)
			}
		}
		if newKey != nil {
			if err := txn.Set(newKey, itemBytes); err != nil {
				return fmt.Errorf("index %s: %w", name, err)
			}
		}
	}
	return nil
}

func (s *Store) deleteIndexEntries(txn *badger.Txn, schema *tableSchema, oldItem storage.Item) error {
	for name, enc := range schema.indexes {
		if enc.keyDef.PartitionKey.Name == "" {
			continue
		}
		if key := indexEntryKey(enc, schema.main, oldItem); key != nil {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("index %s: %w", name, err)
			}
		}
	}
	return nil
}

// indexEntryKey returns the index key for an item, or nil when the item has
// no complete set of index key attributes. Index keys are not unique across
// items, so the item's table key values are appended: items sharing an index
// key keep separate entries and never overwrite each other.
func indexEntryKey(enc, main keyEncoder, item storage.Item) []byte {
	if item == nil {
		return nil
	}
	pk, err := enc.keyDef.ExtractPrimaryKey(item)
	if err != nil {
		return nil
	}
	key, err := enc.encode(pk.Values)
	if err != nil {
		return nil
	}
	mainPK, err := main.keyDef.ExtractPrimaryKey(item)
	if err != nil {
		return nil
	}
	suffix, err := main.keyValues(mainPK.Values)
	if err != nil {
		return nil
	}
	key = append(key, keySeparator)
	return append(key, suffix...)
}

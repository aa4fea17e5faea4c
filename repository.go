// Package dynamorepo provides a generic repository over DynamoDB-style
// storage: CRUD, query/scan dispatch, read-merge-write updates, upserts and
// batch retrieval, all derived from an entity type's own table declaration.
//
// The repository is stateless. Every call is an independent round trip to
// the storage client, safe to invoke concurrently from any number of
// goroutines.
package dynamorepo

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/RafaeldaSilvaa/dynamo-repository/storage"
	"github.com/RafaeldaSilvaa/dynamo-repository/table"
)

// Entity is the capability contract an application record type implements:
// it declares its own table layout, so key attribute names never have to be
// passed around as strings.
type Entity interface {
	Table() table.Definition
}

// Key addresses a single item. Range stays nil for entity types without a
// range key.
type Key struct {
	Hash  any
	Range any
}

// Repository is a stateless façade over one entity type's table.
type Repository[T Entity] struct {
	client storage.Client
	def    table.Definition
	meta   table.KeyMetadata
	keyDef table.PrimaryKeyDefinition
	log    *zap.Logger
}

// Option configures a repository at construction time.
type Option func(*options)

type options struct {
	log *zap.Logger
}

// WithLogger attaches a logger. Without it the repository is silent.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// New builds a repository for the entity type T. Key metadata is derived
// once, here, so a type with no declared hash key fails fast with
// table.ErrMissingHashKey instead of failing on first use.
func New[T Entity](client storage.Client, opts ...Option) (*Repository[T], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}

	var e T
	def := e.Table()
	meta, err := table.ExtractKeyMetadata(def)
	if err != nil {
		return nil, fmt.Errorf("extract key metadata for table %q: %w", def.TableName, err)
	}
	return &Repository[T]{
		client: client,
		def:    def,
		meta:   meta,
		keyDef: def.PrimaryKeyDefinition(),
		log:    o.log.With(zap.String("table", def.TableName)),
	}, nil
}

// KeyMetadata exposes the derived key layout of the entity type.
func (r *Repository[T]) KeyMetadata() table.KeyMetadata {
	return r.meta
}

func (r *Repository[T]) primaryKey(key Key) table.PrimaryKey {
	return table.PrimaryKey{
		Definition: r.keyDef,
		Values: table.PrimaryKeyValues{
			PartitionKey: key.Hash,
			SortKey:      key.Range,
		},
	}
}

// ReadOption configures the consistency of a read operation.
type ReadOption func(*readOpts)

type readOpts struct {
	consistentRead bool
}

// StronglyConsistent makes the read observe all writes serialized before it.
func StronglyConsistent() ReadOption {
	return func(o *readOpts) {
		o.consistentRead = true
	}
}

// EventuallyConsistent allows the read to return a stale view.
func EventuallyConsistent() ReadOption {
	return func(o *readOpts) {
		o.consistentRead = false
	}
}

func applyReadOpts(defaultConsistent bool, opts []ReadOption) readOpts {
	o := readOpts{consistentRead: defaultConsistent}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

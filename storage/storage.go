// Package storage defines the backend contract the repository talks to.
// Requests carry table definitions, marshaled keys and condition trees; each
// backend decides how to turn those into its own wire format. Two
// implementations exist: dynamostore speaks to the AWS service, badgerstore
// keeps everything in an embedded key-value store.
package storage

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/RafaeldaSilvaa/dynamo-repository/condition"
	"github.com/RafaeldaSilvaa/dynamo-repository/table"
)

// Item is a raw stored document.
type Item = map[string]types.AttributeValue

// DefaultPageSize is the per-page item count used when a request leaves
// PageSize unset.
const DefaultPageSize = 10

// ErrConditionFailed is returned by conditional writes whose condition did
// not hold against the current stored state.
var ErrConditionFailed = errors.New("storage: condition failed")

// SetAction assigns one non-key attribute in an update.
type SetAction struct {
	Name  string
	Value any
}

type GetRequest struct {
	Table          table.Definition
	Key            table.PrimaryKey
	ConsistentRead bool
}

type PutRequest struct {
	Table table.Definition
	Item  Item
	// Condition, when set, must hold against the stored item (or its
	// absence) for the put to succeed.
	Condition condition.Condition
}

type UpdateRequest struct {
	Table     table.Definition
	Key       table.PrimaryKey
	Actions   []SetAction
	Condition condition.Condition
}

type DeleteRequest struct {
	Table table.Definition
	Key   table.PrimaryKey
}

type QueryRequest struct {
	Table table.Definition
	// IndexName selects a secondary index; empty queries the table itself.
	IndexName      string
	HashKeyValue   any
	RangeCondition condition.Condition
	Filter         condition.Condition
	// Limit caps the total number of items across all pages; zero means
	// unbounded.
	Limit          int32
	PageSize       int32
	Descending     bool
	ConsistentRead bool
}

type ScanRequest struct {
	Table          table.Definition
	IndexName      string
	Filter         condition.Condition
	Limit          int32
	PageSize       int32
	ConsistentRead bool
}

type BatchGetRequest struct {
	Table          table.Definition
	Keys           []table.PrimaryKey
	ConsistentRead bool
}

// Page is one page of query or scan results. Done reports that no further
// pages exist; a Page may be empty without being the last one when a filter
// discards everything the backend read.
type Page struct {
	Items []Item
	Done  bool
}

// Pager walks query or scan results lazily, one page per call. After a call
// returns a page with Done set, further calls return empty done pages.
type Pager interface {
	NextPage(ctx context.Context) (Page, error)
}

// Client is the backend surface the repository is written against.
type Client interface {
	// GetItem returns the stored item, or nil when no item has the key.
	GetItem(ctx context.Context, req GetRequest) (Item, error)
	PutItem(ctx context.Context, req PutRequest) error
	UpdateItem(ctx context.Context, req UpdateRequest) error
	// DeleteItem succeeds whether or not the item existed.
	DeleteItem(ctx context.Context, req DeleteRequest) error
	Query(ctx context.Context, req QueryRequest) (Pager, error)
	Scan(ctx context.Context, req ScanRequest) (Pager, error)
	// BatchGetItems returns the items found; keys with no stored item are
	// omitted from the result without error.
	BatchGetItems(ctx context.Context, req BatchGetRequest) ([]Item, error)
}

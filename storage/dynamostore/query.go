package dynamostore

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/RafaeldaSilvaa/dynamo-repository/storage"
	"github.com/RafaeldaSilvaa/dynamo-repository/table"
)

// Query builds the expression once and returns a lazy pager over the result
// set. Nothing is sent to the service until the first NextPage call.
func (s *Store) Query(ctx context.Context, req storage.QueryRequest) (storage.Pager, error) {
	keyDef := req.Table.PrimaryKeyDefinition()
	var indexName *string
	if req.IndexName != "" {
		idx, ok := req.Table.Index(req.IndexName)
		if !ok {
			return nil, fmt.Errorf("table %q has no index %q", req.Table.TableName, req.IndexName)
		}
		keyDef = idx.PrimaryKeyDefinition()
		indexName = ptr(req.IndexName)
	}
	if keyDef.PartitionKey.Name == "" {
		return nil, fmt.Errorf("no partition key defined for query target")
	}

	key := expression.KeyEqual(expression.Key(keyDef.PartitionKey.Name), expression.Value(req.HashKeyValue))
	if req.RangeCondition.IsSet() {
		rangeCond, err := req.RangeCondition.KeyCondition()
		if err != nil {
			return nil, fmt.Errorf("render range condition: %w", err)
		}
		key = key.And(rangeCond)
	}
	b := expression.NewBuilder().WithKeyCondition(key)
	if req.Filter.IsSet() {
		filter, err := req.Filter.Filter()
		if err != nil {
			return nil, fmt.Errorf("render filter: %w", err)
		}
		b = b.WithFilter(filter)
	}
	expr, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression: %w", err)
	}

	input := dynamodb.QueryInput{
		TableName:                 &req.Table.TableName,
		IndexName:                 indexName,
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     ptr(pageSize(req.PageSize)),
		ScanIndexForward:          ptr(!req.Descending),
	}
	// Consistent reads are not supported on global secondary indexes; the
	// flag is forwarded for table and local-index queries only.
	if req.IndexName == "" || isLocalIndex(req.Table, req.IndexName) {
		input.ConsistentRead = ptr(req.ConsistentRead)
	}
	return &queryPager{awsddb: s.awsddb, input: input, limit: req.Limit}, nil
}

// Scan returns a lazy pager over the whole table or index, optionally
// filtered server-side.
func (s *Store) Scan(ctx context.Context, req storage.ScanRequest) (storage.Pager, error) {
	input := dynamodb.ScanInput{
		TableName: &req.Table.TableName,
		Limit:     ptr(pageSize(req.PageSize)),
	}
	if req.IndexName != "" {
		if _, ok := req.Table.Index(req.IndexName); !ok {
			return nil, fmt.Errorf("table %q has no index %q", req.Table.TableName, req.IndexName)
		}
		input.IndexName = ptr(req.IndexName)
	}
	if req.IndexName == "" || isLocalIndex(req.Table, req.IndexName) {
		input.ConsistentRead = ptr(req.ConsistentRead)
	}
	if req.Filter.IsSet() {
		filter, err := req.Filter.Filter()
		if err != nil {
			return nil, fmt.Errorf("render filter: %w", err)
		}
		expr, err := expression.NewBuilder().WithFilter(filter).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build scan expression: %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	return &scanPager{awsddb: s.awsddb, input: input, limit: req.Limit}, nil
}

type queryPager struct {
	awsddb AWSDynamoClient
	input  dynamodb.QueryInput
	limit  int32
	seen   int32
	cursor map[string]types.AttributeValue
	done   bool
}

var _ storage.Pager = (*queryPager)(nil)

func (p *queryPager) NextPage(ctx context.Context) (storage.Page, error) {
	if p.done {
		return storage.Page{Done: true}, nil
	}
	in := p.input
	in.ExclusiveStartKey = p.cursor
	res, err := p.awsddb.Query(ctx, &in)
	if err != nil {
		return storage.Page{}, fmt.Errorf("query failed: %w", err)
	}
	p.cursor = res.LastEvaluatedKey
	items := capToLimit(res.Items, p.limit, &p.seen)
	p.done = res.LastEvaluatedKey == nil || (p.limit > 0 && p.seen >= p.limit)
	return storage.Page{Items: items, Done: p.done}, nil
}

type scanPager struct {
	awsddb AWSDynamoClient
	input  dynamodb.ScanInput
	limit  int32
	seen   int32
	cursor map[string]types.AttributeValue
	done   bool
}

var _ storage.Pager = (*scanPager)(nil)

func (p *scanPager) NextPage(ctx context.Context) (storage.Page, error) {
	if p.done {
		return storage.Page{Done: true}, nil
	}
	in := p.input
	in.ExclusiveStartKey = p.cursor
	res, err := p.awsddb.Scan(ctx, &in)
	if err != nil {
		return storage.Page{}, fmt.Errorf("scan failed: %w", err)
	}
	p.cursor = res.LastEvaluatedKey
	items := capToLimit(res.Items, p.limit, &p.seen)
	p.done = res.LastEvaluatedKey == nil || (p.limit > 0 && p.seen >= p.limit)
	return storage.Page{Items: items, Done: p.done}, nil
}

func isLocalIndex(def table.Definition, name string) bool {
	for _, idx := range def.LocalIndexes {
		if idx.Name == name {
			return true
		}
	}
	return false
}

func pageSize(requested int32) int32 {
	if requested > 0 {
		return requested
	}
	return storage.DefaultPageSize
}

// capToLimit truncates a page so the running total never exceeds the overall
// limit, and advances the counter.
func capToLimit(items []storage.Item, limit int32, seen *int32) []storage.Item {
	if limit > 0 && *seen+int32(len(items)) > limit {
		items = items[:limit-*seen]
	}
	*seen += int32(len(items))
	return items
}

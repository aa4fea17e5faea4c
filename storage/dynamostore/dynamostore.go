// Package dynamostore implements the storage contract against the AWS
// DynamoDB service using aws-sdk-go-v2. Conditions are rendered to
// expressions at request-build time so the repository never deals with
// expression strings.
package dynamostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/RafaeldaSilvaa/dynamo-repository/storage"
)

// AWSDynamoClient is the slice of the generated service client the store
// needs. *dynamodb.Client satisfies it; tests substitute fakes.
type AWSDynamoClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
}

const batchGetMaxKeys = 100

type Store struct {
	awsddb AWSDynamoClient
}

var _ storage.Client = (*Store)(nil)

func New(awsddb AWSDynamoClient) *Store {
	return &Store{awsddb: awsddb}
}

func (s *Store) GetItem(ctx context.Context, req storage.GetRequest) (storage.Item, error) {
	key, err := req.Key.DDB()
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	res, err := s.awsddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &req.Table.TableName,
		Key:            key,
		ConsistentRead: ptr(req.ConsistentRead),
	})
	if err != nil {
		return nil, fmt.Errorf("get item failed: %w", err)
	}
	if res.Item == nil {
		return nil, nil
	}
	return res.Item, nil
}

func (s *Store) PutItem(ctx context.Context, req storage.PutRequest) error {
	input := &dynamodb.PutItemInput{
		TableName: &req.Table.TableName,
		Item:      req.Item,
	}
	if req.Condition.IsSet() {
		cond, err := req.Condition.Filter()
		if err != nil {
			return fmt.Errorf("render put condition: %w", err)
		}
		expr, err := expression.NewBuilder().WithCondition(cond).Build()
		if err != nil {
			return fmt.Errorf("failed to build condition expression: %w", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}
	if _, err := s.awsddb.PutItem(ctx, input); err != nil {
		return fmt.Errorf("put item failed: %w", translateConditionError(err))
	}
	return nil
}

func (s *Store) UpdateItem(ctx context.Context, req storage.UpdateRequest) error {
	if len(req.Actions) == 0 {
		return fmt.Errorf("update needs at least one set action")
	}
	key, err := req.Key.DDB()
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}
	var ub expression.UpdateBuilder
	for _, a := range req.Actions {
		ub = ub.Set(expression.Name(a.Name), expression.Value(a.Value))
	}
	b := expression.NewBuilder().WithUpdate(ub)
	if req.Condition.IsSet() {
		cond, err := req.Condition.Filter()
		if err != nil {
			return fmt.Errorf("render update condition: %w", err)
		}
		b = b.WithCondition(cond)
	}
	expr, err := b.Build()
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}
	_, err = s.awsddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &req.Table.TableName,
		Key:                       key,
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("update item failed: %w", translateConditionError(err))
	}
	return nil
}

func (s *Store) DeleteItem(ctx context.Context, req storage.DeleteRequest) error {
	key, err := req.Key.DDB()
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}
	_, err = s.awsddb.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &req.Table.TableName,
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("delete item failed: %w", err)
	}
	return nil
}

// BatchGetItems fetches the keys in chunks, retrying unprocessed keys until
// the service has answered for all of them. Missing items are simply absent
// from the result.
func (s *Store) BatchGetItems(ctx context.Context, req storage.BatchGetRequest) ([]storage.Item, error) {
	if len(req.Keys) == 0 {
		return nil, nil
	}
	var allItems []storage.Item
	for start := 0; start < len(req.Keys); start += batchGetMaxKeys {
		end := min(start+batchGetMaxKeys, len(req.Keys))
		keysAndAttrs := types.KeysAndAttributes{
			ConsistentRead: ptr(req.ConsistentRead),
		}
		for _, k := range req.Keys[start:end] {
			ddbKey, err := k.DDB()
			if err != nil {
				return nil, fmt.Errorf("marshal key: %w", err)
			}
			keysAndAttrs.Keys = append(keysAndAttrs.Keys, ddbKey)
		}
		requestItems := map[string]types.KeysAndAttributes{
			req.Table.TableName: keysAndAttrs,
		}
		for len(requestItems) > 0 {
			res, err := s.awsddb.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
				RequestItems: requestItems,
			})
			if err != nil {
				return nil, fmt.Errorf("batch get item failed: %w", err)
			}
			for _, tableItems := range res.Responses {
				allItems = append(allItems, tableItems...)
			}
			requestItems = res.UnprocessedKeys
		}
	}
	return allItems, nil
}

func translateConditionError(err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %s", storage.ErrConditionFailed, err)
	}
	return err
}

func ptr[T any](v T) *T {
	return &v
}

package ddb

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbTypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"sitenav/internal/types"
)

// CacheStore implements ports.CacheStore on a DynamoDB single table keyed
// PK=KV#<key> SK=VALUE. Values are stored pre-encoded, one attribute, whole
// item overwrites only.
type CacheStore struct {
	table string
	cli   *dynamodb.Client
}

type kvItem struct {
	PK    string `dynamodbav:"PK"`
	SK    string `dynamodbav:"SK"`
	Value string `dynamodbav:"value"`
}

func NewCacheStore(table string, cli *dynamodb.Client) *CacheStore {
	// Creates the table only if it doesn't exist.
	// We ignore the error if the table already exists.
	createTableIfNotExists(cli, table)
	return &CacheStore{table: table, cli: cli}
}

func (s *CacheStore) GetItem(ctx context.Context, key string) ([]byte, error) {
	out, err := s.cli.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.table,
		Key: map[string]ddbTypes.AttributeValue{
			"PK": &ddbTypes.AttributeValueMemberS{Value: pkKV(key)},
			"SK": &ddbTypes.AttributeValueMemberS{Value: skValue()},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, types.Err(types.ErrCacheAccess, err, "")
	}
	if out.Item == nil {
		return nil, types.ErrNotFound
	}
	var item kvItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, types.Err(types.ErrCacheAccess, err, "")
	}
	return []byte(item.Value), nil
}

func (s *CacheStore) SetItem(ctx context.Context, key string, value []byte) error {
	item, err := attributevalue.MarshalMap(kvItem{
		PK:    pkKV(key),
		SK:    skValue(),
		Value: string(value),
	})
	if err != nil {
		return types.Err(types.ErrCacheAccess, err, "")
	}
	_, err = s.cli.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.table,
		Item:      item,
	})
	if err != nil {
		return types.Err(types.ErrCacheAccess, err, "")
	}
	return nil
}

func (s *CacheStore) RemoveItem(ctx context.Context, key string) error {
	_, err := s.cli.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.table,
		Key: map[string]ddbTypes.AttributeValue{
			"PK": &ddbTypes.AttributeValueMemberS{Value: pkKV(key)},
			"SK": &ddbTypes.AttributeValueMemberS{Value: skValue()},
		},
	})
	if err != nil {
		return types.Err(types.ErrCacheAccess, err, "")
	}
	return nil
}

func (s *CacheStore) ClearAll(ctx context.Context) error {
	// delete all items in the table
	_, err := s.cli.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: &s.table,
	})
	if err != nil {
		return err
	}
	// wait until the table is deleted
	err = dynamodb.NewTableNotExistsWaiter(s.cli).Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	}, 30*time.Second)
	if err != nil {
		return err
	}
	// Recreate the table
	createTableIfNotExists(s.cli, s.table)
	return nil
}

package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"

	"github.com/farmstand-app/orderflow/internal/aws"
)

// ErrInsufficientStock indicates a conditional decrement lost to the current
// stock level: available quantity is below the requested amount.
var ErrInsufficientStock = errors.New("insufficient stock")

// Store encapsulates operations on the products table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	log       *logrus.Logger
	nowFunc   func() time.Time
}

// NewStore creates a new inventory Store.
func NewStore(client aws.DynamoDBAPI, tableName string, log *logrus.Logger) *Store {
	if log == nil {
		log = logrus.New()
	}
	return &Store{
		client:    client,
		tableName: tableName,
		log:       log,
		nowFunc:   time.Now,
	}
}

// TableName exposes the products table for callers that build multi-table
// transactions touching stock rows.
func (s *Store) TableName() string { return s.tableName }

// Snapshot reads current stock for the given product ids in one batch call.
// Missing products are simply absent from the returned map.
func (s *Store) Snapshot(ctx context.Context, productIDs []string) (map[string]Snapshot, error) {
	if len(productIDs) == 0 {
		return map[string]Snapshot{}, nil
	}

	keys := make([]map[string]types.AttributeValue, 0, len(productIDs))
	seen := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: id},
		})
	}

	out, err := s.client.BatchGetItem(ctx, &dyn.BatchGetItemInput{
		RequestItems: map[string]types.KeysAndAttributes{
			s.tableName: {Keys: keys},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("batch get stock: %w", err)
	}

	snaps := make(map[string]Snapshot, len(productIDs))
	for _, item := range out.Responses[s.tableName] {
		var snap Snapshot
		if err := attributevalue.UnmarshalMap(item, &snap); err != nil {
			return nil, fmt.Errorf("unmarshal stock row: %w", err)
		}
		snaps[snap.ProductID] = snap
	}
	return snaps, nil
}

// Decrement reserves qty units of a product with a conditional update.
// Returns ErrInsufficientStock when the condition fails, which covers both a
// missing product and a quantity below the request.
func (s *Store) Decrement(ctx context.Context, productID string, qty int) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
		UpdateExpression:    awsString("SET quantity = quantity - :n, updated_at = :ua"),
		ConditionExpression: awsString("attribute_exists(product_id) AND quantity >= :n"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", qty)},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException" {
			return fmt.Errorf("product %s: %w", productID, ErrInsufficientStock)
		}
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("product %s: %w", productID, ErrInsufficientStock)
		}
		return fmt.Errorf("decrement stock: %w", err)
	}
	return nil
}

// Restore returns qty units to a product. Used when an order is cancelled and
// when a failed submission is compensated; reason tags the log entry.
func (s *Store) Restore(ctx context.Context, productID string, qty int, reason string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"product_id": &types.AttributeValueMemberS{Value: productID},
		},
		UpdateExpression:    awsString("ADD quantity :n SET updated_at = :ua"),
		ConditionExpression: awsString("attribute_exists(product_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", qty)},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	}

	if _, err := s.client.UpdateItem(ctx, input); err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	s.log.WithFields(logrus.Fields{
		"component":      "inventory",
		"product_id": productID,
		"quantity":   qty,
		"reason":     reason,
	}).Info("stock restored")
	return nil
}

func awsString(s string) *string { return &s }

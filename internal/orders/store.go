package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/farmstand-app/orderflow/internal/aws"
)

// ErrNotFound indicates a write against an order id with no stored header.
var ErrNotFound = errors.New("order not found")

// ErrTransactionConflict indicates the atomic submit transaction was
// canceled, most likely because a stock condition failed between the
// availability check and the write.
var ErrTransactionConflict = errors.New("submit transaction canceled")

// Store encapsulates operations on the orders and order_items tables.
type Store struct {
	client     aws.DynamoDBAPI
	tableName  string // order headers, PK order_id
	itemsTable string // line items, PK order_id, SK product_id
	nowFunc    func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName, itemsTable string) *Store {
	return &Store{
		client:     client,
		tableName:  tableName,
		itemsTable: itemsTable,
		nowFunc:    time.Now,
	}
}

// SubmitTransaction persists the whole order and reserves its stock in one
// TransactWriteItems round trip: header put, one put per line, one
// conditional decrement per distinct product against productsTable. Either
// everything lands or nothing does, so the check-then-act gap of the
// read-side availability check cannot leave partial state.
func (s *Store) SubmitTransaction(ctx context.Context, order Order, productsTable string) error {
	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	headerItem, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order header: %w", err)
	}

	transactItems := []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName:           &s.tableName,
				Item:                headerItem,
				ConditionExpression: awsString("attribute_not_exists(order_id)"),
			},
		},
	}

	for _, line := range order.Items {
		line.OrderID = order.OrderID
		lineItem, err := attributevalue.MarshalMap(line)
		if err != nil {
			return fmt.Errorf("marshal order line: %w", err)
		}
		transactItems = append(transactItems, types.TransactWriteItem{
			Put: &types.Put{
				TableName: &s.itemsTable,
				Item:      lineItem,
			},
		})
	}

	for _, req := range aggregateLineQuantities(order.Items) {
		transactItems = append(transactItems, types.TransactWriteItem{
			Update: &types.Update{
				TableName: &productsTable,
				Key: map[string]types.AttributeValue{
					"product_id": &types.AttributeValueMemberS{Value: req.productID},
				},
				UpdateExpression:    awsString("SET quantity = quantity - :n, updated_at = :ua"),
				ConditionExpression: awsString("attribute_exists(product_id) AND quantity >= :n"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":n":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", req.qty)},
					":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
				},
			},
		})
	}

	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return fmt.Errorf("%w: %v", ErrTransactionConflict, err)
		}
		return fmt.Errorf("transact write: %w", err)
	}
	return nil
}

// PutHeader writes the order header only; the fallback submission path uses
// it as the first saga step.
func (s *Store) PutHeader(ctx context.Context, order Order) error {
	now := s.nowFunc()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	item, err := attributevalue.MarshalMap(order)
	if err != nil {
		return fmt.Errorf("marshal order header: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_id)"),
	})
	if err != nil {
		return fmt.Errorf("put order header: %w", err)
	}
	return nil
}

// PutLines writes every line item for the order.
func (s *Store) PutLines(ctx context.Context, orderID string, items []LineItem) error {
	for _, line := range items {
		line.OrderID = orderID
		item, err := attributevalue.MarshalMap(line)
		if err != nil {
			return fmt.Errorf("marshal order line: %w", err)
		}
		if _, err := s.client.PutItem(ctx, &dyn.PutItemInput{
			TableName: &s.itemsTable,
			Item:      item,
		}); err != nil {
			return fmt.Errorf("put order line %s: %w", line.ProductID, err)
		}
	}
	return nil
}

// DeleteHeader removes an order header; compensation only.
func (s *Store) DeleteHeader(ctx context.Context, orderID string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return fmt.Errorf("delete order header: %w", err)
	}
	return nil
}

// DeleteLines removes the given line items; compensation only.
func (s *Store) DeleteLines(ctx context.Context, orderID string, items []LineItem) error {
	for _, line := range items {
		_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
			TableName: &s.itemsTable,
			Key: map[string]types.AttributeValue{
				"order_id":   &types.AttributeValueMemberS{Value: orderID},
				"product_id": &types.AttributeValueMemberS{Value: line.ProductID},
			},
		})
		if err != nil {
			return fmt.Errorf("delete order line %s: %w", line.ProductID, err)
		}
	}
	return nil
}

// Get fetches a fully hydrated order: header plus its line items.
// Returns (nil, nil) if the header does not exist.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var o Order
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}

	qout, err := s.client.Query(ctx, &dyn.QueryInput{
		TableName:              &s.itemsTable,
		KeyConditionExpression: awsString("order_id = :id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	if err := attributevalue.UnmarshalListOfMaps(qout.Items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order lines: %w", err)
	}
	return &o, nil
}

// UpdateStatus sets the lifecycle status and bumps updated_at. Returns
// ErrNotFound when no header exists for the id.
func (s *Store) UpdateStatus(ctx context.Context, orderID, newStatus string) error {
	now := s.nowFunc()
	input := &dyn.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
		UpdateExpression:         awsString("SET #s = :s, updated_at = :ua"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s":  &types.AttributeValueMemberS{Value: newStatus},
			":ua": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
		ConditionExpression: awsString("attribute_exists(order_id)"),
	}

	_, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrNotFound
		}
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

func awsString(s string) *string { return &s }

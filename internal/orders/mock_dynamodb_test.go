package orders

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is an in-memory stand-in for the DynamoDB client, just smart
// enough about the expressions the stores actually issue. Items are stored
// per table keyed by order_id, product_id, or "order_id/product_id" for
// composite-key rows.
type mockDynamo struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]types.AttributeValue

	// failDecrementFor forces the conditional stock decrement for a product
	// to fail, simulating a lost reservation race.
	failDecrementFor map[string]bool

	// beforeTransact, when set, runs ahead of transaction evaluation so a
	// test can interleave a competing writer. Called with the lock held.
	beforeTransact func()

	putCalls      int
	updateCalls   int
	deleteCalls   int
	transactCalls int
}

func newMockDynamo() *mockDynamo {
	return &mockDynamo{
		tables:           map[string]map[string]map[string]types.AttributeValue{},
		failDecrementFor: map[string]bool{},
	}
}

func (m *mockDynamo) ensureTable(tbl string) map[string]map[string]types.AttributeValue {
	if _, ok := m.tables[tbl]; !ok {
		m.tables[tbl] = map[string]map[string]types.AttributeValue{}
	}
	return m.tables[tbl]
}

func (m *mockDynamo) seedProduct(tbl, id, name string, qty int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureTable(tbl)[id] = map[string]types.AttributeValue{
		"product_id":   &types.AttributeValueMemberS{Value: id},
		"product_name": &types.AttributeValueMemberS{Value: name},
		"quantity":     &types.AttributeValueMemberN{Value: strconv.Itoa(qty)},
	}
}

func productQtyAttr(n int) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.Itoa(n)}
}

func (m *mockDynamo) productQty(tbl, id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.tables[tbl][id]
	if !ok {
		return -1
	}
	n, _ := strconv.Atoi(item["quantity"].(*types.AttributeValueMemberN).Value)
	return n
}

func itemKey(attrs map[string]types.AttributeValue) (string, error) {
	oid, hasOrder := attrs["order_id"].(*types.AttributeValueMemberS)
	pid, hasProduct := attrs["product_id"].(*types.AttributeValueMemberS)
	switch {
	case hasOrder && hasProduct:
		return oid.Value + "/" + pid.Value, nil
	case hasOrder:
		return oid.Value, nil
	case hasProduct:
		return pid.Value, nil
	}
	return "", errors.New("no primary key attributes")
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putCalls++

	table := m.ensureTable(*params.TableName)
	key, err := itemKey(params.Item)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil && strings.Contains(*params.ConditionExpression, "attribute_not_exists") {
		if _, exists := table[key]; exists {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	table[key] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table := m.ensureTable(*params.TableName)
	key, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := table[key]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++

	table := m.ensureTable(*params.TableName)
	key, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	delete(table, key)
	return &dyn.DeleteItemOutput{}, nil
}

// applyUpdate interprets the store expressions: conditional quantity
// decrement, quantity restore (ADD), and status set.
func (m *mockDynamo) applyUpdate(table map[string]map[string]types.AttributeValue, params *dyn.UpdateItemInput) error {
	key, err := itemKey(params.Key)
	if err != nil {
		return err
	}
	item, exists := table[key]
	if !exists {
		return &types.ConditionalCheckFailedException{}
	}

	expr := ""
	if params.UpdateExpression != nil {
		expr = *params.UpdateExpression
	}

	if nAttr, ok := params.ExpressionAttributeValues[":n"]; ok {
		n, _ := strconv.Atoi(nAttr.(*types.AttributeValueMemberN).Value)
		cur, _ := strconv.Atoi(item["quantity"].(*types.AttributeValueMemberN).Value)
		switch {
		case strings.Contains(expr, "quantity - :n"):
			if m.failDecrementFor[key] || cur < n {
				return &types.ConditionalCheckFailedException{}
			}
			item["quantity"] = &types.AttributeValueMemberN{Value: strconv.Itoa(cur - n)}
		case strings.Contains(expr, "ADD quantity :n"):
			item["quantity"] = &types.AttributeValueMemberN{Value: strconv.Itoa(cur + n)}
		}
	}
	if v, ok := params.ExpressionAttributeValues[":s"]; ok {
		item["status"] = v
	}
	if v, ok := params.ExpressionAttributeValues[":ua"]; ok {
		item["updated_at"] = v
	}
	table[key] = item
	return nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++

	table := m.ensureTable(*params.TableName)
	if err := m.applyUpdate(table, params); err != nil {
		return nil, err
	}
	key, _ := itemKey(params.Key)
	return &dyn.UpdateItemOutput{Attributes: table[key]}, nil
}

func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table := m.ensureTable(*params.TableName)
	idAttr, ok := params.ExpressionAttributeValues[":id"]
	if !ok {
		return nil, errors.New("unsupported query expression")
	}
	prefix := idAttr.(*types.AttributeValueMemberS).Value + "/"

	out := &dyn.QueryOutput{}
	for key, item := range table {
		if strings.HasPrefix(key, prefix) {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func (m *mockDynamo) BatchGetItem(ctx context.Context, params *dyn.BatchGetItemInput, optFns ...func(*dyn.Options)) (*dyn.BatchGetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := &dyn.BatchGetItemOutput{Responses: map[string][]map[string]types.AttributeValue{}}
	for tbl, req := range params.RequestItems {
		table := m.ensureTable(tbl)
		for _, keyAttrs := range req.Keys {
			key, err := itemKey(keyAttrs)
			if err != nil {
				return nil, err
			}
			if item, ok := table[key]; ok {
				out.Responses[tbl] = append(out.Responses[tbl], item)
			}
		}
	}
	return out, nil
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactCalls++
	if m.beforeTransact != nil {
		m.beforeTransact()
	}

	// first pass: every condition must hold or the whole transaction cancels
	for _, it := range params.TransactItems {
		if p := it.Put; p != nil {
			if p.ConditionExpression != nil && strings.Contains(*p.ConditionExpression, "attribute_not_exists") {
				table := m.ensureTable(*p.TableName)
				key, err := itemKey(p.Item)
				if err != nil {
					return nil, err
				}
				if _, exists := table[key]; exists {
					return nil, &types.TransactionCanceledException{}
				}
			}
		}
		if u := it.Update; u != nil {
			table := m.ensureTable(*u.TableName)
			key, err := itemKey(u.Key)
			if err != nil {
				return nil, err
			}
			item, exists := table[key]
			if !exists || m.failDecrementFor[key] {
				return nil, &types.TransactionCanceledException{}
			}
			if nAttr, ok := u.ExpressionAttributeValues[":n"]; ok {
				n, _ := strconv.Atoi(nAttr.(*types.AttributeValueMemberN).Value)
				cur, _ := strconv.Atoi(item["quantity"].(*types.AttributeValueMemberN).Value)
				if cur < n {
					return nil, &types.TransactionCanceledException{}
				}
			}
		}
	}

	// second pass: apply everything
	for _, it := range params.TransactItems {
		if p := it.Put; p != nil {
			table := m.ensureTable(*p.TableName)
			key, err := itemKey(p.Item)
			if err != nil {
				return nil, err
			}
			table[key] = p.Item
		}
		if u := it.Update; u != nil {
			table := m.ensureTable(*u.TableName)
			update := &dyn.UpdateItemInput{
				TableName:                 u.TableName,
				Key:                       u.Key,
				UpdateExpression:          u.UpdateExpression,
				ExpressionAttributeValues: u.ExpressionAttributeValues,
			}
			if err := m.applyUpdate(table, update); err != nil {
				return nil, fmt.Errorf("transact update apply: %w", err)
			}
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

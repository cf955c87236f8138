package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Global secondary index names
const (
	truckIndex  = "truck-index"
	statusIndex = "status-index"
)

// DynamoDBAPI interface for mocking
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// dynamoTable holds the operations shared by every record type
type dynamoTable struct {
	client    DynamoDBAPI
	tableName string
	kind      string
}

func idKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func (d *dynamoTable) put(ctx context.Context, id string, record interface{}, condition string, conflict error) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", d.kind, err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tableName),
		Item:                item,
		ConditionExpression: aws.String(condition),
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("%s %s %w", d.kind, id, conflict)
		}
		return fmt.Errorf("failed to put %s: %w", d.kind, err)
	}

	return nil
}

func (d *dynamoTable) create(ctx context.Context, id string, record interface{}) error {
	return d.put(ctx, id, record, "attribute_not_exists(id)", ErrAlreadyExists)
}

func (d *dynamoTable) replace(ctx context.Context, id string, record interface{}) error {
	return d.put(ctx, id, record, "attribute_exists(id)", ErrNotFound)
}

func (d *dynamoTable) get(ctx context.Context, id string, out interface{}) error {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName),
		Key:       idKey(id),
	})
	if err != nil {
		return fmt.Errorf("failed to get %s: %w", d.kind, err)
	}

	if result.Item == nil {
		return fmt.Errorf("%s %s %w", d.kind, id, ErrNotFound)
	}

	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", d.kind, err)
	}

	return nil
}

func (d *dynamoTable) scan(ctx context.Context) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		result, err := d.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(d.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s table: %w", d.kind, err)
		}
		items = append(items, result.Items...)
		if len(result.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = result.LastEvaluatedKey
	}
}

func (d *dynamoTable) queryIndex(ctx context.Context, index, attribute, value string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var startKey map[string]types.AttributeValue
	for {
		result, err := d.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(d.tableName),
			IndexName:              aws.String(index),
			KeyConditionExpression: aws.String("#attr = :value"),
			ExpressionAttributeNames: map[string]string{
				"#attr": attribute,
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":value": &types.AttributeValueMemberS{Value: value},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query %s by %s: %w", d.kind, attribute, err)
		}
		items = append(items, result.Items...)
		if len(result.LastEvaluatedKey) == 0 {
			return items, nil
		}
		startKey = result.LastEvaluatedKey
	}
}

func unmarshalItems[T any](kind string, items []map[string]types.AttributeValue) ([]*T, error) {
	records := make([]*T, 0, len(items))
	for _, item := range items {
		var record T
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", kind, err)
		}
		records = append(records, &record)
	}
	return records, nil
}

// DynamoDBTruckStorage implements TruckStorage on a DynamoDB table keyed by id
type DynamoDBTruckStorage struct {
	table dynamoTable
}

func NewDynamoDBTruckStorage(client DynamoDBAPI, tableName string) *DynamoDBTruckStorage {
	return &DynamoDBTruckStorage{
		table: dynamoTable{client: client, tableName: tableName, kind: "truck"},
	}
}

func (d *DynamoDBTruckStorage) CreateTruck(ctx context.Context, truck *Truck) error {
	if truck.CreatedAt.IsZero() {
		truck.CreatedAt = time.Now()
	}
	return d.table.create(ctx, truck.ID, truck)
}

func (d *DynamoDBTruckStorage) GetTruck(ctx context.Context, truckID string) (*Truck, error) {
	var truck Truck
	if err := d.table.get(ctx, truckID, &truck); err != nil {
		return nil, err
	}
	return &truck, nil
}

func (d *DynamoDBTruckStorage) UpdateTruck(ctx context.Context, truck *Truck) error {
	return d.table.replace(ctx, truck.ID, truck)
}

func (d *DynamoDBTruckStorage) DeleteTruck(ctx context.Context, truckID string) error {
	_, err := d.table.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(d.table.tableName),
		Key:                 idKey(truckID),
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("truck %s %w", truckID, ErrNotFound)
		}
		return fmt.Errorf("failed to delete truck: %w", err)
	}

	return nil
}

func (d *DynamoDBTruckStorage) GetAllTrucks(ctx context.Context) ([]*Truck, error) {
	items, err := d.table.scan(ctx)
	if err != nil {
		return nil, err
	}
	return unmarshalItems[Truck]("truck", items)
}

// DynamoDBLoadStorage implements LoadStorage. The table needs truck-index
// (truck_id) and status-index (status) global secondary indexes.
type DynamoDBLoadStorage struct {
	table dynamoTable
}

func NewDynamoDBLoadStorage(client DynamoDBAPI, tableName string) *DynamoDBLoadStorage {
	return &DynamoDBLoadStorage{
		table: dynamoTable{client: client, tableName: tableName, kind: "load"},
	}
}

func (d *DynamoDBLoadStorage) CreateLoad(ctx context.Context, load *Load) error {
	if load.CreatedAt.IsZero() {
		load.CreatedAt = time.Now()
	}
	return d.table.create(ctx, load.ID, load)
}

func (d *DynamoDBLoadStorage) GetLoad(ctx context.Context, loadID string) (*Load, error) {
	var load Load
	if err := d.table.get(ctx, loadID, &load); err != nil {
		return nil, err
	}
	return &load, nil
}

func (d *DynamoDBLoadStorage) UpdateLoad(ctx context.Context, load *Load) error {
	return d.table.replace(ctx, load.ID, load)
}

func (d *DynamoDBLoadStorage) GetLoadsByTruck(ctx context.Context, truckID string) ([]*Load, error) {
	return d.queryLoads(ctx, truckIndex, "truck_id", truckID)
}

func (d *DynamoDBLoadStorage) GetLoadsByStatus(ctx context.Context, status string) ([]*Load, error) {
	return d.queryLoads(ctx, statusIndex, "status", status)
}

func (d *DynamoDBLoadStorage) GetAllLoads(ctx context.Context) ([]*Load, error) {
	items, err := d.table.scan(ctx)
	if err != nil {
		return nil, err
	}
	loads, err := unmarshalItems[Load]("load", items)
	if err != nil {
		return nil, err
	}
	sortLoads(loads)
	return loads, nil
}

func (d *DynamoDBLoadStorage) UpdateLoadStatus(ctx context.Context, loadID, status string) error {
	updateExpression := "SET #status = :status"
	expressionAttributeValues := map[string]types.AttributeValue{
		":status": &types.AttributeValueMemberS{Value: status},
	}

	if status == LoadStatusDelivered {
		deliveredAt, err := attributevalue.Marshal(time.Now())
		if err != nil {
			return fmt.Errorf("failed to marshal delivery time: %w", err)
		}
		updateExpression += ", delivered_at = :delivered_at"
		expressionAttributeValues[":delivered_at"] = deliveredAt
	}

	_, err := d.table.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(d.table.tableName),
		Key:              idKey(loadID),
		UpdateExpression: aws.String(updateExpression),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: expressionAttributeValues,
		ConditionExpression:       aws.String("attribute_exists(id)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("load %s %w", loadID, ErrNotFound)
		}
		return fmt.Errorf("failed to update load status: %w", err)
	}

	return nil
}

func (d *DynamoDBLoadStorage) queryLoads(ctx context.Context, index, attribute, value string) ([]*Load, error) {
	items, err := d.table.queryIndex(ctx, index, attribute, value)
	if err != nil {
		return nil, err
	}
	loads, err := unmarshalItems[Load]("load", items)
	if err != nil {
		return nil, err
	}
	sortLoads(loads)
	return loads, nil
}

// DynamoDBFuelStorage implements FuelStorage. The table needs a truck-index GSI.
type DynamoDBFuelStorage struct {
	table dynamoTable
}

func NewDynamoDBFuelStorage(client DynamoDBAPI, tableName string) *DynamoDBFuelStorage {
	return &DynamoDBFuelStorage{
		table: dynamoTable{client: client, tableName: tableName, kind: "fuel purchase"},
	}
}

func (d *DynamoDBFuelStorage) CreateFuelPurchase(ctx context.Context, purchase *FuelPurchase) error {
	if purchase.PurchasedAt.IsZero() {
		purchase.PurchasedAt = time.Now()
	}
	return d.table.create(ctx, purchase.ID, purchase)
}

func (d *DynamoDBFuelStorage) GetFuelPurchasesByTruck(ctx context.Context, truckID string) ([]*FuelPurchase, error) {
	items, err := d.table.queryIndex(ctx, truckIndex, "truck_id", truckID)
	if err != nil {
		return nil, err
	}
	purchases, err := unmarshalItems[FuelPurchase]("fuel purchase", items)
	if err != nil {
		return nil, err
	}
	sortPurchases(purchases)
	return purchases, nil
}

package store

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/hashicorp/go-hclog"
)

// DynamoDBStoreProvider keeps items in a table keyed by StoreName (hash) and
// Key (range). Each item carries an epoch-seconds TTL attribute.
type DynamoDBStoreProvider struct {
	prefix       keyPrefix
	region       string
	endpoint     string
	tableName    string
	ttlAttribute string
	expiry       time.Duration
	logger       hclog.Logger

	ddb *dynamodb.DynamoDB
}

func (p *DynamoDBStoreProvider) InitStores() error {
	if p.tableName == "" {
		return errors.New(DynamoDBTableEnvVar + " is not set")
	}
	if p.logger == nil {
		p.logger = hclog.NewNullLogger()
	}
	if p.ttlAttribute == "" {
		p.ttlAttribute = defaultTTLAttribute
	}

	cfg := &aws.Config{Region: aws.String(p.region)}
	if p.endpoint != "" {
		cfg.Endpoint = aws.String(p.endpoint)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return err
	}
	p.ddb = dynamodb.New(sess)
	return nil
}

func (p *DynamoDBStoreProvider) itemKey(storeName, key string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		"StoreName": {S: aws.String(storeName)},
		"Key":       {S: aws.String(p.prefix.apply(key))},
	}
}

func (p *DynamoDBStoreProvider) GetValue(storeName, key string) (interface{}, bool) {
	result, err := p.ddb.GetItem(&dynamodb.GetItemInput{
		TableName:      aws.String(p.tableName),
		Key:            p.itemKey(storeName, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		p.logger.Error("failed to get item", "store", storeName, "key", key, "error", err)
		return nil, false
	}
	if result.Item == nil || result.Item["Value"] == nil || result.Item["Value"].S == nil {
		return nil, false
	}
	var value interface{}
	if err := json.Unmarshal([]byte(*result.Item["Value"].S), &value); err != nil {
		p.logger.Error("failed to unmarshal value", "store", storeName, "key", key, "error", err)
		return nil, false
	}
	return value, true
}

func (p *DynamoDBStoreProvider) StoreValue(storeName, key string, value interface{}) {
	valueBytes, err := json.Marshal(value)
	if err != nil {
		p.logger.Error("failed to marshal value", "store", storeName, "key", key, "error", err)
		return
	}
	item := p.itemKey(storeName, key)
	item["Value"] = &dynamodb.AttributeValue{S: aws.String(string(valueBytes))}
	item[p.ttlAttribute] = &dynamodb.AttributeValue{
		N: aws.String(strconv.FormatInt(time.Now().Add(p.expiry).Unix(), 10)),
	}

	_, err = p.ddb.PutItem(&dynamodb.PutItemInput{
		TableName: aws.String(p.tableName),
		Item:      item,
	})
	if err != nil {
		p.logger.Error("failed to put item", "store", storeName, "key", key, "error", err)
	}
}

func (p *DynamoDBStoreProvider) query(storeName, keyPrefix string) ([]map[string]*dynamodb.AttributeValue, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(p.tableName),
		KeyConditionExpression: aws.String("StoreName = :storeName"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":storeName": {S: aws.String(storeName)},
		},
	}
	if prefixed := p.prefix.apply(keyPrefix); prefixed != "" {
		input.KeyConditionExpression = aws.String("StoreName = :storeName AND begins_with(#k, :keyPrefix)")
		input.ExpressionAttributeNames = map[string]*string{"#k": aws.String("Key")}
		input.ExpressionAttributeValues[":keyPrefix"] = &dynamodb.AttributeValue{S: aws.String(prefixed)}
	}

	var items []map[string]*dynamodb.AttributeValue
	err := p.ddb.QueryPages(input, func(page *dynamodb.QueryOutput, _ bool) bool {
		items = append(items, page.Items...)
		return true
	})
	return items, err
}

func (p *DynamoDBStoreProvider) GetAllValues(storeName, keyPrefix string) map[string]interface{} {
	results, err := p.query(storeName, keyPrefix)
	if err != nil {
		p.logger.Error("failed to query items", "store", storeName, "error", err)
		return nil
	}
	items := make(map[string]interface{})
	for _, item := range results {
		raw, ok := item["Value"]
		if !ok || raw.S == nil {
			continue
		}
		var value interface{}
		if err := json.Unmarshal([]byte(*raw.S), &value); err != nil {
			p.logger.Error("failed to unmarshal value", "store", storeName, "error", err)
			continue
		}
		items[p.prefix.remove(aws.StringValue(item["Key"].S))] = value
	}
	return items
}

func (p *DynamoDBStoreProvider) DeleteValue(storeName, key string) {
	_, err := p.ddb.DeleteItem(&dynamodb.DeleteItemInput{
		TableName: aws.String(p.tableName),
		Key:       p.itemKey(storeName, key),
	})
	if err != nil {
		p.logger.Error("failed to delete item", "store", storeName, "key", key, "error", err)
	}
}

// DeleteStore removes every item of the store that carries this provider's
// key prefix.
func (p *DynamoDBStoreProvider) DeleteStore(storeName string) {
	results, err := p.query(storeName, "")
	if err != nil {
		p.logger.Error("failed to query items", "store", storeName, "error", err)
		return
	}
	for _, item := range results {
		_, err := p.ddb.DeleteItem(&dynamodb.DeleteItemInput{
			TableName: aws.String(p.tableName),
			Key: map[string]*dynamodb.AttributeValue{
				"StoreName": item["StoreName"],
				"Key":       item["Key"],
			},
		})
		if err != nil {
			p.logger.Error("failed to delete item", "store", storeName, "error", err)
		}
	}
}

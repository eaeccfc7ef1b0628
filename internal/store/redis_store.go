package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/go-hclog"
)

// RedisStoreProvider keeps each store in one redis hash. The hash expiry is
// refreshed on every write.
type RedisStoreProvider struct {
	prefix   keyPrefix
	addr     string
	password string
	expiry   time.Duration
	logger   hclog.Logger

	client *redis.Client
	ctx    context.Context
}

func (p *RedisStoreProvider) InitStores() error {
	if p.addr == "" {
		return errors.New("REDIS_ADDR is not set")
	}
	if p.logger == nil {
		p.logger = hclog.NewNullLogger()
	}
	p.ctx = context.Background()
	p.client = redis.NewClient(&redis.Options{
		Addr:     p.addr,
		Password: p.password,
		DB:       0,
	})
	return nil
}

func (p *RedisStoreProvider) GetValue(storeName, key string) (interface{}, bool) {
	val, err := p.client.HGet(p.ctx, storeName, p.prefix.apply(key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false
	} else if err != nil {
		p.logger.Error("failed to get item", "store", storeName, "key", key, "error", err)
		return nil, false
	}
	var value interface{}
	if err := json.Unmarshal([]byte(val), &value); err != nil {
		p.logger.Error("failed to unmarshal value", "store", storeName, "key", key, "error", err)
		return nil, false
	}
	return value, true
}

func (p *RedisStoreProvider) StoreValue(storeName, key string, value interface{}) {
	valueBytes, err := json.Marshal(value)
	if err != nil {
		p.logger.Error("failed to marshal value", "store", storeName, "key", key, "error", err)
		return
	}
	if err := p.client.HSet(p.ctx, storeName, p.prefix.apply(key), valueBytes).Err(); err != nil {
		p.logger.Error("failed to set item", "store", storeName, "key", key, "error", err)
		return
	}
	if err := p.client.Expire(p.ctx, storeName, p.expiry).Err(); err != nil {
		p.logger.Error("failed to set expiration", "store", storeName, "error", err)
	}
}

func (p *RedisStoreProvider) GetAllValues(storeName, keyPrefix string) map[string]interface{} {
	keyPrefix = p.prefix.apply(keyPrefix)
	vals, err := p.client.HGetAll(p.ctx, storeName).Result()
	if err != nil {
		p.logger.Error("failed to get items", "store", storeName, "error", err)
		return nil
	}
	items := make(map[string]interface{})
	for key, val := range vals {
		if !strings.HasPrefix(key, keyPrefix) {
			continue
		}
		var value interface{}
		if err := json.Unmarshal([]byte(val), &value); err != nil {
			p.logger.Error("failed to unmarshal value", "store", storeName, "key", key, "error", err)
			continue
		}
		items[p.prefix.remove(key)] = value
	}
	return items
}

func (p *RedisStoreProvider) DeleteValue(storeName, key string) {
	if err := p.client.HDel(p.ctx, storeName, p.prefix.apply(key)).Err(); err != nil {
		p.logger.Error("failed to delete item", "store", storeName, "key", key, "error", err)
	}
}

func (p *RedisStoreProvider) DeleteStore(storeName string) {
	if err := p.client.Del(p.ctx, storeName).Err(); err != nil {
		p.logger.Error("failed to delete store", "store", storeName, "error", err)
	}
}

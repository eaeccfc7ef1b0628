package store

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedisTest(t *testing.T) *RedisStoreProvider {
	// Skip if Redis is not available
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		t.Skip("Skipping Redis tests: REDIS_ADDR not set")
	}

	provider, err := NewProvider(Options{
		Driver:    DriverRedis,
		RedisAddr: redisAddr,
		KeyPrefix: "devhost-test",
	})
	require.NoError(t, err)

	p := provider.(*RedisStoreProvider)
	p.DeleteStore("test")
	return p
}

func TestRedisStore(t *testing.T) {
	provider := setupRedisTest(t)

	t.Run("StoreAndGetValue", func(t *testing.T) {
		provider.StoreValue("test", "key1", "value1")
		val, found := provider.GetValue("test", "key1")
		require.True(t, found)
		assert.Equal(t, "value1", val)
	})

	t.Run("GetNonExistentValue", func(t *testing.T) {
		_, found := provider.GetValue("test", "nonexistent")
		assert.False(t, found)
	})

	t.Run("GetAllValues", func(t *testing.T) {
		provider.DeleteStore("test")
		provider.StoreValue("test", "prefix.key1", "value1")
		provider.StoreValue("test", "prefix.key2", "value2")
		provider.StoreValue("test", "other.key3", "value3")

		values := provider.GetAllValues("test", "prefix")
		assert.Equal(t, map[string]interface{}{
			"prefix.key1": "value1",
			"prefix.key2": "value2",
		}, values)
	})

	t.Run("DeleteValue", func(t *testing.T) {
		provider.StoreValue("test", "key1", "value1")
		provider.DeleteValue("test", "key1")
		_, found := provider.GetValue("test", "key1")
		assert.False(t, found)
	})

	t.Run("DeleteStore", func(t *testing.T) {
		provider.StoreValue("test", "key1", "value1")
		provider.DeleteStore("test")
		_, found := provider.GetValue("test", "key1")
		assert.False(t, found)
	})

	t.Run("ExchangeDocuments", func(t *testing.T) {
		e := NewExchangeStore(provider)
		require.NoError(t, e.PutRawRequest(10, []byte(`{"method":"GET","url":"/hello"}`)))
		data, ok := e.GetRawRequest(10)
		require.True(t, ok)
		assert.JSONEq(t, `{"method":"GET","url":"/hello"}`, string(data))
		e.Delete(10)
	})

	t.Run("Expiration", func(t *testing.T) {
		provider.expiry = time.Second
		defer func() { provider.expiry = defaultExpiry }()

		provider.StoreValue("expiring", "key", "value")
		time.Sleep(2 * time.Second)

		_, found := provider.GetValue("expiring", "key")
		assert.False(t, found)
	})
}

func TestRedisConnection(t *testing.T) {
	t.Run("InvalidConnection", func(t *testing.T) {
		provider, err := NewProvider(Options{Driver: DriverRedis, RedisAddr: "localhost:1"})
		require.NoError(t, err)

		// Operations should fail gracefully
		provider.StoreValue("test", "key", "value")
		_, found := provider.GetValue("test", "key")
		assert.False(t, found)
	})
}

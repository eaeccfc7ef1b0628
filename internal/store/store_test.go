package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	t.Run("DefaultsToInMemory", func(t *testing.T) {
		p, err := NewProvider(Options{})
		require.NoError(t, err)
		assert.IsType(t, &InMemoryStoreProvider{}, p)
	})

	t.Run("UnknownDriver", func(t *testing.T) {
		_, err := NewProvider(Options{Driver: "etcd"})
		assert.EqualError(t, err, `unknown store driver "etcd"`)
	})

	t.Run("RedisRequiresAddress", func(t *testing.T) {
		_, err := NewProvider(Options{Driver: DriverRedis})
		assert.ErrorContains(t, err, "REDIS_ADDR")
	})

	t.Run("DynamoDBRequiresTable", func(t *testing.T) {
		_, err := NewProvider(Options{Driver: DriverDynamoDB})
		assert.ErrorContains(t, err, DynamoDBTableEnvVar)
	})
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv(DriverEnvVar, "redis")
	t.Setenv(KeyPrefixEnvVar, "devhost")
	t.Setenv(ExpiryEnvVar, "90s")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	opts := OptionsFromEnv()
	assert.Equal(t, "redis", opts.Driver)
	assert.Equal(t, "devhost", opts.KeyPrefix)
	assert.Equal(t, 90*time.Second, opts.Expiry)
	assert.Equal(t, "localhost:6379", opts.RedisAddr)

	t.Setenv(ExpiryEnvVar, "soon")
	assert.Equal(t, defaultExpiry, OptionsFromEnv().Expiry)
}

func TestKeyPrefix(t *testing.T) {
	t.Run("WithoutPrefix", func(t *testing.T) {
		var p keyPrefix
		assert.Equal(t, "key", p.apply("key"))
		assert.Equal(t, "key", p.remove("key"))
	})

	t.Run("WithPrefix", func(t *testing.T) {
		p := keyPrefix("test-prefix")
		assert.Equal(t, "test-prefix.key", p.apply("key"))
		assert.Equal(t, "key", p.remove("test-prefix.key"))
	})
}

func TestInMemoryStoreProvider(t *testing.T) {
	provider, err := NewProvider(Options{Driver: DriverMemory})
	require.NoError(t, err)
	s := Open(provider, "test")
	assert.Equal(t, "test", s.Name())

	t.Run("StoreAndGetValue", func(t *testing.T) {
		s.StoreValue("key1", "value1")
		val, found := s.GetValue("key1")
		require.True(t, found)
		assert.Equal(t, "value1", val)
	})

	t.Run("GetNonExistentValue", func(t *testing.T) {
		_, found := s.GetValue("nonexistent")
		assert.False(t, found)

		_, found = Open(provider, "missing").GetValue("key1")
		assert.False(t, found)
	})

	t.Run("GetAllValues", func(t *testing.T) {
		s.Clear()
		s.StoreValue("prefix.key1", "value1")
		s.StoreValue("prefix.key2", "value2")
		s.StoreValue("other.key3", "value3")

		values := s.GetAllValues("prefix")
		assert.Equal(t, map[string]interface{}{
			"prefix.key1": "value1",
			"prefix.key2": "value2",
		}, values)
		assert.Nil(t, Open(provider, "missing").GetAllValues(""))
	})

	t.Run("DeleteValue", func(t *testing.T) {
		s.StoreValue("key1", "value1")
		s.DeleteValue("key1")
		_, found := s.GetValue("key1")
		assert.False(t, found)
	})

	t.Run("DeleteStore", func(t *testing.T) {
		s.StoreValue("key1", "value1")
		s.Clear()
		_, found := s.GetValue("key1")
		assert.False(t, found)
	})
}

func TestInMemoryStoreProvider_KeyPrefix(t *testing.T) {
	provider, err := NewProvider(Options{KeyPrefix: "host-a"})
	require.NoError(t, err)

	s := Open(provider, "test")
	s.StoreValue("key", "value")

	raw := provider.(*InMemoryStoreProvider).stores["test"].data
	assert.Contains(t, raw, "host-a.key")
	assert.Equal(t, map[string]interface{}{"key": "value"}, s.GetAllValues(""))
}

func TestInMemoryStoreProvider_Concurrent(t *testing.T) {
	provider, err := NewProvider(Options{})
	require.NoError(t, err)
	s := Open(provider, "test")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%26))
			s.StoreValue(key, i)
			s.GetValue(key)
			s.GetAllValues("")
			s.DeleteValue(key)
		}(i)
	}
	wg.Wait()
}

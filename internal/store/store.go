// Package store holds the development host's pending requests and pushed
// responses. The backing provider is in-memory by default; redis and
// dynamodb drivers let several host replicas share one exchange.
package store

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverDynamoDB = "dynamodb"

	DriverEnvVar               = "DEVHOST_STORE_DRIVER"
	KeyPrefixEnvVar            = "DEVHOST_STORE_KEY_PREFIX"
	ExpiryEnvVar               = "DEVHOST_STORE_EXPIRY"
	DynamoDBTableEnvVar        = "DEVHOST_STORE_DYNAMODB_TABLE"
	DynamoDBTTLAttributeEnvVar = "DEVHOST_STORE_DYNAMODB_TTL_ATTRIBUTE"

	defaultExpiry       = 30 * time.Minute
	defaultTTLAttribute = "ttl"
)

// StoreProvider interface defines the contract for store implementations
type StoreProvider interface {
	InitStores() error
	GetValue(storeName, key string) (interface{}, bool)
	StoreValue(storeName, key string, value interface{})
	GetAllValues(storeName, keyPrefix string) map[string]interface{}
	DeleteValue(storeName, key string)
	DeleteStore(storeName string)
}

// Options selects and configures a StoreProvider.
type Options struct {
	Driver    string
	KeyPrefix string
	// Expiry bounds how long redis and dynamodb keep an entry.
	Expiry time.Duration

	RedisAddr     string
	RedisPassword string

	AWSRegion            string
	DynamoDBTable        string
	DynamoDBEndpoint     string
	DynamoDBTTLAttribute string

	Logger hclog.Logger
}

// OptionsFromEnv reads store options from the environment.
func OptionsFromEnv() Options {
	opts := Options{
		Driver:               os.Getenv(DriverEnvVar),
		KeyPrefix:            os.Getenv(KeyPrefixEnvVar),
		Expiry:               defaultExpiry,
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		AWSRegion:            os.Getenv("AWS_REGION"),
		DynamoDBTable:        os.Getenv(DynamoDBTableEnvVar),
		DynamoDBEndpoint:     os.Getenv("DYNAMODB_ENDPOINT"),
		DynamoDBTTLAttribute: os.Getenv(DynamoDBTTLAttributeEnvVar),
	}
	if v := os.Getenv(ExpiryEnvVar); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			opts.Expiry = d
		}
	}
	return opts
}

// NewProvider builds and initialises the provider named by opts.Driver. An
// empty driver selects the in-memory provider.
func NewProvider(opts Options) (StoreProvider, error) {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Expiry <= 0 {
		opts.Expiry = defaultExpiry
	}
	prefix := keyPrefix(opts.KeyPrefix)

	var provider StoreProvider
	switch strings.ToLower(opts.Driver) {
	case "", DriverMemory:
		provider = &InMemoryStoreProvider{prefix: prefix}
	case DriverRedis:
		provider = &RedisStoreProvider{
			prefix:   prefix,
			addr:     opts.RedisAddr,
			password: opts.RedisPassword,
			expiry:   opts.Expiry,
			logger:   opts.Logger.Named("redis"),
		}
	case DriverDynamoDB:
		ttlAttribute := opts.DynamoDBTTLAttribute
		if ttlAttribute == "" {
			ttlAttribute = defaultTTLAttribute
		}
		provider = &DynamoDBStoreProvider{
			prefix:       prefix,
			region:       opts.AWSRegion,
			endpoint:     opts.DynamoDBEndpoint,
			tableName:    opts.DynamoDBTable,
			ttlAttribute: ttlAttribute,
			expiry:       opts.Expiry,
			logger:       opts.Logger.Named("dynamodb"),
		}
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}

	if err := provider.InitStores(); err != nil {
		return nil, fmt.Errorf("failed to initialise %s store: %w", opts.Driver, err)
	}
	return provider, nil
}

// Store represents a handle to a specific named store
type Store struct {
	name     string
	provider StoreProvider
}

// Open returns a handle to a specific store
func Open(provider StoreProvider, storeName string) *Store {
	return &Store{name: storeName, provider: provider}
}

// Name returns the store name.
func (s *Store) Name() string {
	return s.name
}

// GetValue retrieves a value from the store
func (s *Store) GetValue(key string) (interface{}, bool) {
	return s.provider.GetValue(s.name, key)
}

// StoreValue stores a value in the store
func (s *Store) StoreValue(key string, value interface{}) {
	s.provider.StoreValue(s.name, key, value)
}

// GetAllValues retrieves all values from the store with an optional prefix
func (s *Store) GetAllValues(keyPrefix string) map[string]interface{} {
	return s.provider.GetAllValues(s.name, keyPrefix)
}

// DeleteValue removes a value from the store
func (s *Store) DeleteValue(key string) {
	s.provider.DeleteValue(s.name, key)
}

// Clear removes every value in the store.
func (s *Store) Clear() {
	s.provider.DeleteStore(s.name)
}

// keyPrefix namespaces keys so several hosts can share one backend.
type keyPrefix string

func (p keyPrefix) apply(key string) string {
	if p != "" {
		return string(p) + "." + key
	}
	return key
}

func (p keyPrefix) remove(key string) string {
	if p != "" {
		return strings.TrimPrefix(key, string(p)+".")
	}
	return key
}

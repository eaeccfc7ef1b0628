package store

import (
	"strings"
	"sync"
)

type InMemoryStoreProvider struct {
	prefix keyPrefix

	mu     sync.RWMutex
	stores map[string]*storeData
}

type storeData struct {
	data map[string]interface{}
}

func (p *InMemoryStoreProvider) InitStores() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stores = make(map[string]*storeData)
	return nil
}

func (p *InMemoryStoreProvider) GetValue(storeName, key string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	store, ok := p.stores[storeName]
	if !ok {
		return nil, false
	}
	val, found := store.data[p.prefix.apply(key)]
	return val, found
}

func (p *InMemoryStoreProvider) StoreValue(storeName, key string, value interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stores == nil {
		p.stores = make(map[string]*storeData)
	}
	if _, ok := p.stores[storeName]; !ok {
		p.stores[storeName] = &storeData{data: make(map[string]interface{})}
	}
	p.stores[storeName].data[p.prefix.apply(key)] = value
}

func (p *InMemoryStoreProvider) GetAllValues(storeName, keyPrefix string) map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	store, ok := p.stores[storeName]
	if !ok {
		return nil
	}
	result := make(map[string]interface{})
	keyPrefix = p.prefix.apply(keyPrefix)
	for k, v := range store.data {
		if strings.HasPrefix(k, keyPrefix) {
			result[p.prefix.remove(k)] = v
		}
	}
	return result
}

func (p *InMemoryStoreProvider) DeleteValue(storeName, key string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if store, ok := p.stores[storeName]; ok {
		delete(store.data, p.prefix.apply(key))
	}
}

func (p *InMemoryStoreProvider) DeleteStore(storeName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.stores, storeName)
}

package store

import (
	"errors"
	"fmt"

	"github.com/imposter-project/imposter-dylib/pkg/abi"
)

const (
	RequestsStoreName  = "requests"
	ResponsesStoreName = "responses"
)

// ErrNotStored is returned when a document cannot be read back after it was
// written. Providers log write failures rather than return them.
var ErrNotStored = errors.New("document was not stored")

// ExchangeStore holds request documents waiting to be fetched by a plugin
// and the response documents plugins push back. Documents are kept in their
// wire form so every provider stores plain strings.
type ExchangeStore struct {
	requests  *Store
	responses *Store
}

// NewExchangeStore returns an ExchangeStore backed by provider.
func NewExchangeStore(provider StoreProvider) *ExchangeStore {
	return &ExchangeStore{
		requests:  Open(provider, RequestsStoreName),
		responses: Open(provider, ResponsesStoreName),
	}
}

// PutRequest encodes req and stores it under id.
func (e *ExchangeStore) PutRequest(id abi.RequestID, req *abi.Request) error {
	data, err := abi.EncodeRequest(req)
	if err != nil {
		return fmt.Errorf("encode request %d: %w", id, err)
	}
	return putDocument(e.requests, id, data)
}

// PutRawRequest stores an already encoded request document. The document is
// validated first so a plugin never fetches something it cannot decode.
func (e *ExchangeStore) PutRawRequest(id abi.RequestID, data []byte) error {
	if _, err := abi.DecodeRequest(data); err != nil {
		return err
	}
	return putDocument(e.requests, id, data)
}

// GetRawRequest returns the stored request document for id.
func (e *ExchangeStore) GetRawRequest(id abi.RequestID) ([]byte, bool) {
	return getDocument(e.requests, id)
}

// PutRawResponse validates and stores a pushed response document.
func (e *ExchangeStore) PutRawResponse(id abi.RequestID, data []byte) error {
	if _, err := abi.DecodeResponse(data); err != nil {
		return err
	}
	return putDocument(e.responses, id, data)
}

// GetResponse returns the decoded response pushed for id, if any.
func (e *ExchangeStore) GetResponse(id abi.RequestID) (*abi.Response, bool, error) {
	data, ok := getDocument(e.responses, id)
	if !ok {
		return nil, false, nil
	}
	resp, err := abi.DecodeResponse(data)
	if err != nil {
		return nil, true, fmt.Errorf("decode response %d: %w", id, err)
	}
	return resp, true, nil
}

// Delete removes both the request and the response for id.
func (e *ExchangeStore) Delete(id abi.RequestID) {
	e.requests.DeleteValue(id.String())
	e.responses.DeleteValue(id.String())
}

// Pending returns the number of stored requests.
func (e *ExchangeStore) Pending() int {
	return len(e.requests.GetAllValues(""))
}

// putDocument writes data under id and reads it back once.
func putDocument(s *Store, id abi.RequestID, data []byte) error {
	s.StoreValue(id.String(), string(data))
	if _, ok := getDocument(s, id); !ok {
		return fmt.Errorf("%s %d: %w", s.Name(), id, ErrNotStored)
	}
	return nil
}

func getDocument(s *Store, id abi.RequestID) ([]byte, bool) {
	val, ok := s.GetValue(id.String())
	if !ok {
		return nil, false
	}
	doc, ok := val.(string)
	if !ok {
		return nil, false
	}
	return []byte(doc), true
}

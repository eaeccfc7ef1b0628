package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/imposter-project/imposter-dylib/pkg/abi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRouter(t *testing.T) {
	tests := []struct {
		name            string
		req             *abi.Request
		wantBody        string
		wantContentType string
	}{
		{
			name:            "hello",
			req:             &abi.Request{Method: abi.MethodGet, URL: "/hello"},
			wantBody:        HelloMessage,
			wantContentType: "text/plain",
		},
		{
			name:            "hello with prefix and query",
			req:             &abi.Request{Method: abi.MethodGet, URL: "/plugin/hello/world?x=1"},
			wantBody:        HelloMessage,
			wantContentType: "text/plain",
		},
		{
			name:            "echo",
			req:             &abi.Request{Method: abi.MethodPost, URL: "/echo", Body: "ping"},
			wantBody:        "ping",
			wantContentType: "text/plain",
		},
		{
			name: "echo keeps content type",
			req: &abi.Request{
				Method:  abi.MethodPut,
				URL:     "/api/echo",
				Body:    `{"a":1}`,
				Headers: map[string]string{"content-type": "application/json"},
			},
			wantBody:        `{"a":1}`,
			wantContentType: "application/json",
		},
		{
			name:            "fallback",
			req:             &abi.Request{Method: abi.MethodDelete, URL: "/things/1"},
			wantBody:        "C Plugin processed request with URL: /things/1",
			wantContentType: "text/plain",
		},
	}

	r := NewDefault()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := r.Route(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, uint16(http.StatusOK), resp.StatusCode)
			assert.Equal(t, tt.wantBody, string(resp.Body))
			assert.Equal(t, tt.wantContentType, resp.Headers["Content-Type"])
			assert.Nil(t, resp.Error)
		})
	}
}

func TestDefaultRouter_Info(t *testing.T) {
	req := &abi.Request{
		Method:  abi.MethodGet,
		URL:     "/plugin/info",
		Query:   "name=example&age=20",
		Headers: map[string]string{"A": "1", "B": "2"},
		Context: abi.HostContext{PluginPrefixURL: "/plugin"},
	}
	resp, err := NewDefault().Route(context.Background(), req)
	require.NoError(t, err)

	var got requestInfo
	require.NoError(t, json.Unmarshal(resp.Body, &got))
	assert.Equal(t, abi.MethodGet, got.Method)
	assert.Equal(t, "/info", got.Suffix)
	assert.Equal(t, []string{"example"}, got.Query["name"])
	assert.Equal(t, 2, got.Headers)
	assert.NotZero(t, got.Timestamp)

	req.Query = "%zz"
	_, err = NewDefault().Route(context.Background(), req)
	assert.Error(t, err)
}

func TestDefaultRouter_DoesNotMutateRequest(t *testing.T) {
	req := &abi.Request{Method: abi.MethodPost, URL: "/echo", Body: "ping", Headers: map[string]string{"X": "y"}}
	before := *req
	beforeHeaders := map[string]string{"X": "y"}

	_, err := NewDefault().Route(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, before.URL, req.URL)
	assert.Equal(t, before.Body, req.Body)
	assert.Equal(t, beforeHeaders, req.Headers)
}

func TestMux(t *testing.T) {
	called := ""
	handler := func(name string) Func {
		return func(_ context.Context, _ *abi.Request) (*abi.Response, error) {
			called = name
			return abi.Text(name), nil
		}
	}

	m := NewMux(nil).
		HandleFunc("/a", handler("a")).
		HandleFunc("/ab", handler("ab"))

	_, err := m.Route(context.Background(), &abi.Request{URL: "/x/ab"})
	require.NoError(t, err)
	assert.Equal(t, "a", called, "first registered rule wins")

	resp, err := m.Route(context.Background(), &abi.Request{URL: "/zzz"})
	require.NoError(t, err)
	assert.Equal(t, uint16(http.StatusNotFound), resp.StatusCode)

	failing := NewMux(Func(func(context.Context, *abi.Request) (*abi.Response, error) {
		return nil, errors.New("nope")
	}))
	_, err = failing.Route(context.Background(), &abi.Request{URL: "/"})
	assert.EqualError(t, err, "nope")
}

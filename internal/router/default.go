package router

import (
	"context"
	"fmt"
	"time"

	"github.com/imposter-project/imposter-dylib/pkg/abi"
)

const (
	HelloMessage = "Hello from C plugin!"

	contentTypeText = "text/plain"
)

// NewDefault returns the example router shipped with the plugin:
//
//	/hello  static greeting
//	/echo   request body echoed back
//	/info   JSON description of the request
//
// Anything else gets a plain-text summary of the URL.
func NewDefault() *Mux {
	return NewMux(Func(describe)).
		HandleFunc("/hello", hello).
		HandleFunc("/echo", echo).
		HandleFunc("/info", info)
}

func hello(_ context.Context, _ *abi.Request) (*abi.Response, error) {
	return abi.Bytes([]byte(HelloMessage), contentTypeText), nil
}

func echo(_ context.Context, req *abi.Request) (*abi.Response, error) {
	contentType, ok := req.Header("Content-Type")
	if !ok || contentType == "" {
		contentType = contentTypeText
	}
	return abi.Bytes([]byte(req.Body), contentType), nil
}

type requestInfo struct {
	Message   string              `json:"message"`
	Method    abi.Method          `json:"method"`
	URL       string              `json:"url"`
	Suffix    string              `json:"suffix"`
	Query     map[string][]string `json:"query"`
	Headers   int                 `json:"headers"`
	BodySize  int                 `json:"body_size"`
	Timestamp int64               `json:"timestamp"`
}

func info(_ context.Context, req *abi.Request) (*abi.Response, error) {
	query, err := req.ParseQuery()
	if err != nil {
		return nil, err
	}
	return abi.JSON(requestInfo{
		Message:   "Hello from Go plugin!",
		Method:    req.Method,
		URL:       req.URL,
		Suffix:    req.SuffixURL(),
		Query:     query,
		Headers:   len(req.Headers),
		BodySize:  len(req.Body),
		Timestamp: time.Now().Unix(),
	})
}

func describe(_ context.Context, req *abi.Request) (*abi.Response, error) {
	body := fmt.Sprintf("C Plugin processed request with URL: %s", req.URL)
	return abi.Bytes([]byte(body), contentTypeText), nil
}

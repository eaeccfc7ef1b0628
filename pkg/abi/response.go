package abi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	contentTypeText = "text/plain;charset=UTF-8"
	contentTypeHTML = "text/html;charset=UTF-8"
	contentTypeJSON = "application/json;charset=UTF-8"

	// maxErrorCauses bounds how much of a wrapped error chain is reported.
	maxErrorCauses = 5
)

// Response is what the plugin pushes back to the host.
type Response struct {
	StatusCode uint16
	Body       []byte
	Headers    map[string]string
	// Error is set when the plugin failed but still reports a response.
	// It is nil for normal business logic.
	Error *string
}

// NewResponse returns an empty 200 response.
func NewResponse() *Response {
	return &Response{
		StatusCode: http.StatusOK,
		Body:       []byte{},
		Headers:    map[string]string{},
	}
}

// Bytes returns a 200 response with the given body and content type.
func Bytes(body []byte, contentType string) *Response {
	resp := NewResponse()
	resp.Headers["Content-Type"] = contentType
	resp.Body = append([]byte{}, body...)
	return resp
}

func Text(body string) *Response {
	return Bytes([]byte(body), contentTypeText)
}

func HTML(body string) *Response {
	return Bytes([]byte(body), contentTypeHTML)
}

// JSON returns a 200 response with v marshalled as the body.
func JSON(v interface{}) (*Response, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON response: %w", err)
	}
	return Bytes(data, contentTypeJSON), nil
}

// NotFound returns the standard 404 page.
func NotFound() *Response {
	resp := Text("page not found")
	resp.StatusCode = http.StatusNotFound
	return resp
}

// ErrorResponse returns a 500 response whose Error field describes err and
// up to five of its causes.
func ErrorResponse(err error) *Response {
	msg := describeError(err)
	resp := NewResponse()
	resp.StatusCode = http.StatusInternalServerError
	resp.Error = &msg
	return resp
}

func describeError(err error) string {
	if err == nil {
		return "[plugin error] unknown error"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "[plugin error] %s", err)
	cause := errors.Unwrap(err)
	for level := 0; cause != nil && level < maxErrorCauses; level++ {
		fmt.Fprintf(&sb, "\ncaused by: %s", cause)
		cause = errors.Unwrap(cause)
	}
	return sb.String()
}

// HasError reports whether the response carries an error description.
func (r *Response) HasError() bool {
	return r.Error != nil
}

package abi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// byteArray encodes as a JSON array of integers, one per byte, instead of
// the base64 string encoding/json uses for []byte.
type byteArray []byte

func (b byteArray) MarshalJSON() ([]byte, error) {
	buf := make([]byte, 0, 2+len(b)*4)
	buf = append(buf, '[')
	for i, v := range b {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, uint64(v), 10)
	}
	return append(buf, ']'), nil
}

func (b *byteArray) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*b = byteArray{}
		return nil
	}
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return &DecodeError{Field: "body", Reason: "expected an array of integers"}
	}
	out := make(byteArray, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return &DecodeError{Field: "body", Reason: fmt.Sprintf("byte %d out of range: %d", i, v)}
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

type responseWire struct {
	StatusCode uint16            `json:"status_code"`
	Body       byteArray         `json:"body"`
	Headers    map[string]string `json:"headers"`
	Error      *string           `json:"error,omitempty"`
}

type requestWire struct {
	Method  Method            `json:"method"`
	URL     string            `json:"url"`
	Query   string            `json:"query"`
	Body    string            `json:"body"`
	Headers map[string]string `json:"headers"`
	Context *HostContext      `json:"context,omitempty"`
}

// EncodeResponse produces the JSON document pushed to the host. The error
// key is omitted entirely when the response has no error.
func EncodeResponse(resp *Response) ([]byte, error) {
	if resp == nil {
		return nil, fmt.Errorf("cannot encode nil response")
	}
	wire := responseWire{
		StatusCode: resp.StatusCode,
		Body:       byteArray(resp.Body),
		Headers:    resp.Headers,
		Error:      resp.Error,
	}
	if wire.Body == nil {
		wire.Body = byteArray{}
	}
	if wire.Headers == nil {
		wire.Headers = map[string]string{}
	}
	return json.Marshal(wire)
}

// DecodeResponse parses a pushed response document. Keys match exactly, as
// in DecodeRequest. A missing status_code defaults to 200.
func DecodeResponse(data []byte) (*Response, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("invalid response document: %v", err)}
	}
	if fields == nil {
		return nil, &DecodeError{Reason: "response is not a JSON object"}
	}

	resp := &Response{
		StatusCode: http.StatusOK,
		Body:       []byte{},
		Headers:    map[string]string{},
	}
	if raw, ok := fields["status_code"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &resp.StatusCode); err != nil {
			return nil, &DecodeError{Field: "status_code", Reason: "expected an integer between 0 and 65535"}
		}
	}
	if raw, ok := fields["body"]; ok {
		var body byteArray
		if err := json.Unmarshal(raw, &body); err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				return nil, de
			}
			return nil, &DecodeError{Field: "body", Reason: "expected an array of integers"}
		}
		if body != nil {
			resp.Body = []byte(body)
		}
	}
	if raw, ok := fields["headers"]; ok && !isNull(raw) {
		var headers map[string]string
		if err := json.Unmarshal(raw, &headers); err != nil {
			return nil, &DecodeError{Field: "headers", Reason: "expected an object of string values"}
		}
		if headers != nil {
			resp.Headers = headers
		}
	}
	if raw, ok := fields["error"]; ok && !isNull(raw) {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, &DecodeError{Field: "error", Reason: "expected a string"}
		}
		resp.Error = &msg
	}
	return resp, nil
}

// EncodeRequest produces the JSON document served by the host's
// get-request-info endpoint.
func EncodeRequest(req *Request) ([]byte, error) {
	if req == nil {
		return nil, fmt.Errorf("cannot encode nil request")
	}
	wire := requestWire{
		Method:  req.Method,
		URL:     req.URL,
		Query:   req.Query,
		Body:    req.Body,
		Headers: req.Headers,
	}
	if wire.Headers == nil {
		wire.Headers = map[string]string{}
	}
	if !req.Context.IsZero() {
		ctx := req.Context
		wire.Context = &ctx
	}
	return json.Marshal(wire)
}

// DecodeRequest parses the host's request document. method and url are
// required; query, body and headers default to empty when absent or null.
// Every schema violation is reported as a *DecodeError.
func DecodeRequest(data []byte) (*Request, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &DecodeError{Reason: fmt.Sprintf("request is not a JSON object: %v", err)}
	}
	if fields == nil {
		return nil, &DecodeError{Reason: "request is not a JSON object"}
	}

	methodStr, err := requiredString(fields, "method")
	if err != nil {
		return nil, err
	}
	method, err := ParseMethod(methodStr)
	if err != nil {
		return nil, err
	}
	reqURL, err := requiredString(fields, "url")
	if err != nil {
		return nil, err
	}
	query, err := optionalString(fields, "query")
	if err != nil {
		return nil, err
	}
	body, err := optionalString(fields, "body")
	if err != nil {
		return nil, err
	}

	headers := map[string]string{}
	if raw, ok := fields["headers"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &headers); err != nil {
			return nil, &DecodeError{Field: "headers", Reason: "expected an object of string values"}
		}
		if headers == nil {
			headers = map[string]string{}
		}
	}

	var hostCtx HostContext
	if raw, ok := fields["context"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &hostCtx); err != nil {
			return nil, &DecodeError{Field: "context", Reason: "expected a host context object"}
		}
	}

	return &Request{
		Method:  method,
		URL:     reqURL,
		Query:   query,
		Body:    body,
		Headers: headers,
		Context: hostCtx,
	}, nil
}

func requiredString(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok {
		return "", &DecodeError{Field: name, Reason: "missing required field"}
	}
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		return "", &DecodeError{Field: name, Reason: "expected a string"}
	}
	return s, nil
}

func optionalString(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &DecodeError{Field: name, Reason: "expected a string"}
	}
	return s, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Package abi defines the values exchanged between a host and a plugin that
// exports handle_request, and their JSON wire encoding.
//
// The host never passes request data through the exported symbol. The plugin
// receives a RequestID, fetches the Request from the host over HTTP, and pushes
// a Response back the same way.
package abi

import (
	"fmt"
	"strconv"
)

// HandleRequestSymbol is the name of the function a plugin exports.
const HandleRequestSymbol = "handle_request"

// RequestID correlates one fetch/push pair. Plugins treat it as opaque.
type RequestID int64

func (id RequestID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Method is an HTTP method accepted by the protocol.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodDelete Method = "DELETE"
)

// Methods lists every accepted method.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodDelete}

// ParseMethod matches s case-sensitively against the closed set of methods.
// Unknown values are rejected rather than defaulted, so a misspelled method
// is never routed as GET.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
		return m, nil
	}
	return "", &DecodeError{Field: "method", Reason: fmt.Sprintf("unsupported method %q", s)}
}

// DecodeError reports a request or response document that does not match the
// wire schema.
type DecodeError struct {
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return "decode: " + e.Reason
	}
	return fmt.Sprintf("decode field %q: %s", e.Field, e.Reason)
}

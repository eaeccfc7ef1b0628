package abi

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Request is the host's view of one inbound HTTP request.
type Request struct {
	Method  Method
	URL     string
	Query   string
	Body    string
	Headers map[string]string
	Context HostContext
}

// Header returns the value of the named header. An exact key match wins;
// otherwise the first case-insensitive match is returned.
func (r *Request) Header(name string) (string, bool) {
	if v, ok := r.Headers[name]; ok {
		return v, true
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// ParseQuery parses the raw query string.
func (r *Request) ParseQuery() (url.Values, error) {
	values, err := url.ParseQuery(r.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query string: %w", err)
	}
	return values, nil
}

// ParseBodyForm parses the body as application/x-www-form-urlencoded data.
func (r *Request) ParseBodyForm() (url.Values, error) {
	values, err := url.ParseQuery(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse form body: %w", err)
	}
	return values, nil
}

// ParseBodyJSON unmarshals the body into v.
func (r *Request) ParseBodyJSON(v interface{}) error {
	if err := json.Unmarshal([]byte(r.Body), v); err != nil {
		return fmt.Errorf("failed to parse JSON body: %w", err)
	}
	return nil
}

// SuffixURL returns the URL with the plugin prefix removed. If the URL does
// not start with the prefix it is returned unchanged.
func (r *Request) SuffixURL() string {
	return strings.TrimPrefix(r.URL, r.Context.PluginPrefixURL)
}

// MatchSuffix reports whether the URL, minus the plugin prefix, equals suffix.
func (r *Request) MatchSuffix(suffix string) bool {
	return r.SuffixURL() == suffix
}

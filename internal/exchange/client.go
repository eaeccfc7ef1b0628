package exchange

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/imposter-project/imposter-dylib/pkg/abi"
	"github.com/imposter-project/imposter-dylib/pkg/logger"
)

const (
	GetRequestInfoPath   = "/admin/get-request-info"
	PushResponseInfoPath = "/admin/push-response-info"
	StoreRequestInfoPath = "/admin/store-request-info"

	// RequestIDParam is the query parameter carrying the RequestID.
	RequestIDParam = "request_id"

	// maxErrorBody limits how much of a failed response body is kept in errors.
	maxErrorBody = 512
)

// Client moves request and response documents between a plugin and its host.
// The host URL is fixed when the client is created, so a fetch and its push
// always go to the same host.
type Client struct {
	hostURL string
	http    *http.Client
}

// NewClient creates a client for hostURL whose calls are bounded by timeout.
// A nil transport uses http.DefaultTransport.
func NewClient(hostURL string, timeout time.Duration, transport http.RoundTripper) *Client {
	return &Client{
		hostURL: strings.TrimRight(hostURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// HostURL returns the base URL every call is made against.
func (c *Client) HostURL() string {
	return c.hostURL
}

// EndpointURL builds the URL of an admin endpoint for the given request.
func (c *Client) EndpointURL(path string, id abi.RequestID) string {
	return fmt.Sprintf("%s%s?%s=%d", c.hostURL, path, RequestIDParam, id)
}

// Fetch retrieves and decodes the request identified by id.
func (c *Client) Fetch(ctx context.Context, id abi.RequestID) (*abi.Request, error) {
	url := c.EndpointURL(GetRequestInfoPath, id)
	logger.Tracef("fetching request %d from %s", id, url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{RequestID: id, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{RequestID: id, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{RequestID: id, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			RequestID:  id,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d: %s", resp.StatusCode, excerpt(body)),
		}
	}

	request, err := abi.DecodeRequest(body)
	if err != nil {
		return nil, &FetchError{RequestID: id, StatusCode: resp.StatusCode, Err: err}
	}
	return request, nil
}

// Push encodes response and delivers it to the host. Any 2xx status is
// treated as success.
func (c *Client) Push(ctx context.Context, id abi.RequestID, response *abi.Response) error {
	payload, err := abi.EncodeResponse(response)
	if err != nil {
		return &PushError{RequestID: id, Err: fmt.Errorf("failed to encode response: %w", err)}
	}

	url := c.EndpointURL(PushResponseInfoPath, id)
	logger.Tracef("pushing response %d to %s: status=%d body=%d bytes", id, url, response.StatusCode, len(response.Body))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &PushError{RequestID: id, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &PushError{RequestID: id, Err: fmt.Errorf("failed to execute request: %w", err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &PushError{
			RequestID:  id,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d: %s", resp.StatusCode, excerpt(body)),
		}
	}
	return nil
}

func excerpt(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}

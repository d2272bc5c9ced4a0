// Package transport performs the single JSON POST every provider adapter
// makes. It never retries.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/zlwaterfield/scramble/services/providers"
)

// Request describes one outbound call
type Request struct {
	Endpoint string
	Headers  map[string]string
	Body     interface{}
}

// Response is the raw upstream reply
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the upstream returned a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// PostJSON marshals req.Body, posts it and reads the full response body.
// Transport-level failures come back as *providers.ProviderError.
func PostJSON(ctx context.Context, client *http.Client, kind providers.Kind, req Request) (*Response, error) {
	reqBody, err := json.Marshal(req.Body)
	if err != nil {
		return nil, providers.NewProviderError(kind, "MARSHAL_ERROR", "failed to marshal request", 0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.Endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, providers.NewProviderError(kind, "REQUEST_ERROR", "failed to create request", 0, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, providers.NewProviderError(kind, "HTTP_ERROR", "HTTP request failed", 0, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providers.NewProviderError(kind, "READ_ERROR", "failed to read response", httpResp.StatusCode, err)
	}

	return &Response{StatusCode: httpResp.StatusCode, Body: respBody}, nil
}

package authsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 16 << 20

// request is one call against the service. A nil payload sends no body and an
// empty token sends no Authorization header.
type request struct {
	method  string
	path    string
	payload any
	token   string
}

func get(path, token string) request { return request{method: http.MethodGet, path: path, token: token} }

func post(path string, payload any) request {
	return request{method: http.MethodPost, path: path, payload: payload}
}

// send performs req and returns the status and full body.
func (c *SDKClient) send(ctx context.Context, req request) (int, []byte, error) {
	var body io.Reader
	if req.payload != nil {
		raw, err := json.Marshal(req.payload)
		if err != nil {
			return 0, nil, fmt.Errorf("authsdk: encode %s: %w", req.path, err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.BaseURL+req.path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("authsdk: build %s: %w", req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("authsdk: %s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("authsdk: read %s: %w", req.path, err)
	}
	return resp.StatusCode, raw, nil
}

// call performs req and unwraps the envelope of a 200 response. Any other
// status becomes an *Error.
func call[T any](ctx context.Context, c *SDKClient, req request) (T, error) {
	var zero T

	status, raw, err := c.send(ctx, req)
	if err != nil {
		return zero, err
	}
	if status != http.StatusOK {
		return zero, errorFromResponse(status, raw)
	}

	var env Response[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, fmt.Errorf("authsdk: decode %s: %w", req.path, err)
	}
	if !env.IsSuccess {
		return zero, &Error{StatusCode: status, Message: "response not marked successful"}
	}
	return env.Data, nil
}

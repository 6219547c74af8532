package authsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GetLiveness reports process health from /livez.
func (c *SDKClient) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness reports dependency health from /readyz. A 503 still returns
// the decoded body alongside an *Error so callers can see which check failed.
func (c *SDKClient) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

// Health endpoints answer with a bare HealthResponse, not an envelope.
func (c *SDKClient) health(ctx context.Context, path string) (*HealthResponse, error) {
	status, raw, err := c.send(ctx, get(path, ""))
	if err != nil {
		return nil, err
	}

	var h HealthResponse
	if err := json.Unmarshal(raw, &h); err != nil {
		if status != http.StatusOK {
			return nil, errorFromResponse(status, raw)
		}
		return nil, fmt.Errorf("authsdk: decode %s: %w", path, err)
	}
	if status != http.StatusOK {
		return &h, &Error{StatusCode: status, Message: fmt.Sprintf("%s: %s", path, h.Status)}
	}
	return &h, nil
}

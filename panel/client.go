package panel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"imagegen/providers"
)

// RelayError is a non-success answer from the relay route.
type RelayError struct {
	Status  int
	Message string
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay returned %d: %s", e.Status, e.Message)
}

// Relayer sends generation requests to the relay route.
type Relayer interface {
	Generate(ctx context.Context, req providers.GenerationRequest) (*providers.GenerationResponse, error)
}

// RelayClient talks to the relay route over HTTP, the way the browser panel does.
type RelayClient struct {
	URL       string
	AccessKey string
	Client    *http.Client
}

// NewRelayClient creates a client for the relay route at url.
func NewRelayClient(url, accessKey string, client *http.Client) *RelayClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &RelayClient{URL: url, AccessKey: accessKey, Client: client}
}

// Generate posts req and decodes the relayed upstream body.
// Error replies from the route are returned as *RelayError.
func (c *RelayClient) Generate(ctx context.Context, req providers.GenerationRequest) (*providers.GenerationResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("panel: failed to marshal relay request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("panel: failed to create relay request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.AccessKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.AccessKey)
	}

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("panel: failed to call relay: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("panel: failed to read relay response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(body, &errResp); err != nil {
			return nil, fmt.Errorf("panel: relay returned %d with undecodable body: %w", resp.StatusCode, err)
		}
		return nil, &RelayError{Status: resp.StatusCode, Message: errResp.Error}
	}

	var genResp providers.GenerationResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, fmt.Errorf("panel: failed to decode relay response: %w", err)
	}
	return &genResp, nil
}

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
)

// DefaultOpenRouterURL is the public OpenRouter API base.
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

// OpenRouterProvider implements ImageProvider and ModelLister for OpenRouter.
type OpenRouterProvider struct {
	BaseURL string
	Client  *http.Client
}

var openRouterModels = []Model{
	{ID: "openai/dall-e-3", Name: "openai/dall-e-3"},
	{ID: "openai/dall-e-2", Name: "openai/dall-e-2"},
	{ID: "stability-ai/stable-diffusion-xl-1024-v1-0", Name: "stability-ai/stable-diffusion-xl-1024-v1-0"},
	{ID: "stability-ai/sdxl-1.0", Name: "stability-ai/sdxl-1.0"},
	{ID: "midjourney/midjourney", Name: "midjourney/midjourney"},
}

// NewOpenRouterProvider creates a new OpenRouter client. An empty baseURL selects
// the public API and a nil client selects http.DefaultClient.
func NewOpenRouterProvider(baseURL string, client *http.Client) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = DefaultOpenRouterURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenRouterProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  client,
	}
}

// GetName returns the name of the provider.
func (p *OpenRouterProvider) GetName() string {
	return "openrouter"
}

// GetModels returns the built-in model catalog offered before any model list is fetched.
func (p *OpenRouterProvider) GetModels() []Model {
	models := make([]Model, len(openRouterModels))
	copy(models, openRouterModels)
	return models
}

type openRouterImagePayload struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size,omitempty"`
}

// Relay sends a single request to the OpenRouter images endpoint. No retries are made.
func (p *OpenRouterProvider) Relay(ctx context.Context, input GenerationRequest) (*UpstreamResponse, error) {
	payloadBytes, err := json.Marshal(openRouterImagePayload{
		Model:  input.Model,
		Prompt: input.Prompt,
		Size:   input.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/images/generations", bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+input.APIKey)

	log.Printf("Calling provider '%s' with model '%s'", p.GetName(), input.Model)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to call external API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to read response body: %w", err)
	}

	log.Printf("Provider '%s' responded with status code: %d", p.GetName(), resp.StatusCode)

	return &UpstreamResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

type openRouterModelsResponse struct {
	Data []Model `json:"data"`
}

// ListModels fetches the model list visible to apiKey.
func (p *OpenRouterProvider) ListModels(ctx context.Context, apiKey string) ([]Model, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to create models request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openrouter: failed to list models: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openrouter: models API returned non-200 status: %d, body: %s", resp.StatusCode, string(body))
	}

	var modelsResp openRouterModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return nil, fmt.Errorf("openrouter: failed to decode models response: %w", err)
	}

	models := make([]Model, 0, len(modelsResp.Data))
	for _, m := range modelsResp.Data {
		if m.ID == "" {
			continue
		}
		if m.Name == "" {
			m.Name = m.ID
		}
		models = append(models, m)
	}
	return models, nil
}

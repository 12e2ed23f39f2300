package providers

import "context"

// Model describes one selectable image model.
type Model struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GenerationRequest is the body accepted by the relay route.
type GenerationRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
	APIKey string `json:"apiKey"`
	// Size is "WxH" and is only present when image size forwarding is enabled.
	Size string `json:"size,omitempty"`
}

// Missing reports whether any required field is empty.
func (r GenerationRequest) Missing() bool {
	return r.Prompt == "" || r.Model == "" || r.APIKey == ""
}

// ImageData is one entry of an image generation response.
type ImageData struct {
	URL string `json:"url"`
}

// GenerationResponse is the success body returned by the upstream images endpoint.
type GenerationResponse struct {
	Data []ImageData `json:"data"`
}

// FirstURL returns the URL of the first image, or "" if there is none.
func (r *GenerationResponse) FirstURL() string {
	if r == nil || len(r.Data) == 0 {
		return ""
	}
	return r.Data[0].URL
}

// UpstreamResponse is an upstream reply captured verbatim.
type UpstreamResponse struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports whether the upstream call succeeded.
func (r *UpstreamResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// ImageProvider is the upstream the relay route forwards to.
type ImageProvider interface {
	// Relay issues exactly one generation call and returns the reply as-is.
	// The error is non-nil only when no reply was obtained.
	Relay(ctx context.Context, req GenerationRequest) (*UpstreamResponse, error)
	// GetName returns the name of the provider (e.g., "openrouter").
	GetName() string
}

// ModelLister returns the image models available to an API key.
type ModelLister interface {
	ListModels(ctx context.Context, apiKey string) ([]Model, error)
}

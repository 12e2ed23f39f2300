package panel

import (
	"context"
	"errors"
	"fmt"

	"imagegen/providers"
	"imagegen/registry"
)

// GeneratorName is the name the panel registers its image generator under.
const GeneratorName = "OpenRouter Image Gen"

type settingsIncompleteError struct{}

func (settingsIncompleteError) Error() string {
	return "API key and model not set in OpenRouter Image Gen extension settings."
}

func (settingsIncompleteError) Is(target error) bool {
	return target == registry.ErrNotConfigured
}

// Generator exposes the panel's settings and relay to the host's image generation registry.
type Generator struct {
	controller *Controller
	// ForwardSize sends width and height upstream as size "WxH".
	ForwardSize bool
}

// NewGenerator returns a registry provider backed by c.
func NewGenerator(c *Controller, forwardSize bool) *Generator {
	return &Generator{controller: c, ForwardSize: forwardSize}
}

func (g *Generator) Name() string {
	return GeneratorName
}

// Generate relays prompt, with any negative prompt appended, using the saved settings.
func (g *Generator) Generate(ctx context.Context, prompt, negative string, width, height int) (*registry.ImageResult, error) {
	s := g.controller.Settings()
	if !s.Complete() {
		return nil, settingsIncompleteError{}
	}

	text := prompt
	if negative != "" {
		text += ", negative: " + negative
	}
	req := providers.GenerationRequest{Prompt: text, Model: s.Model, APIKey: s.APIKey}
	if g.ForwardSize && width > 0 && height > 0 {
		req.Size = fmt.Sprintf("%dx%d", width, height)
	}

	resp, err := g.controller.relay.Generate(ctx, req)
	if err != nil {
		var relayErr *RelayError
		if errors.As(err, &relayErr) {
			return nil, errors.New(relayErr.Message)
		}
		return nil, err
	}

	url := resp.FirstURL()
	if url == "" {
		return nil, errors.New("No image generated")
	}
	return &registry.ImageResult{URL: url}, nil
}

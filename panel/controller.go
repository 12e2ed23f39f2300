// Package panel is the settings and generation panel: it keeps the API key and
// model in the host's settings store and sends prompts through the relay route.
package panel

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"imagegen/archive"
	"imagegen/providers"
	"imagegen/settings"
)

const (
	noticeSaved      = "Settings saved!"
	messageNoImage   = "No image generated."
	alertGenFailed   = "Generation failed. Check console for details."
	alertNeedsConfig = "Please save settings and enter a prompt."
)

// ValidationError lists the inputs a generation is missing.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return alertNeedsConfig + " Missing: " + strings.Join(e.Missing, ", ")
}

// Archiver keeps a copy of generated images.
type Archiver interface {
	Archive(ctx context.Context, imageURL string) (*archive.Entry, error)
}

// ModelOption is one entry of the model selector.
type ModelOption struct {
	ID       string
	Name     string
	Vendor   string
	Selected bool
}

// Form is the pre-filled settings form.
type Form struct {
	APIKey string
	Model  string
	Models []ModelOption
}

// ModelGroup is one vendor's block of options in the selector.
type ModelGroup struct {
	Vendor  string
	Options []ModelOption
}

// Groups splits the options by vendor, keeping first-seen vendor order.
func (f Form) Groups() []ModelGroup {
	var groups []ModelGroup
	index := make(map[string]int)
	for _, opt := range f.Models {
		i, ok := index[opt.Vendor]
		if !ok {
			i = len(groups)
			index[opt.Vendor] = i
			groups = append(groups, ModelGroup{Vendor: opt.Vendor})
		}
		groups[i].Options = append(groups[i].Options, opt)
	}
	return groups
}

// View is what the image area shows after a generate action.
type View struct {
	ImageURL     string
	Message      string
	Alert        string
	ArchivedPath string
	HostedURL    string
}

// HasImage reports whether an image element is rendered.
func (v View) HasImage() bool {
	return v.ImageURL != ""
}

// Options configures a Controller. Models defaults to the OpenRouter catalog.
type Options struct {
	Models   []providers.Model
	Lister   providers.ModelLister
	Archiver Archiver
}

// Controller holds the panel state that used to live in module globals.
type Controller struct {
	store    settings.Store
	relay    Relayer
	lister   providers.ModelLister
	archiver Archiver

	mu     sync.Mutex
	models []providers.Model
}

// NewController creates a panel controller over store and relay.
func NewController(store settings.Store, relay Relayer, opts Options) *Controller {
	models := opts.Models
	if len(models) == 0 {
		models = providers.NewOpenRouterProvider("", nil).GetModels()
	}
	return &Controller{
		store:    store,
		relay:    relay,
		lister:   opts.Lister,
		archiver: opts.Archiver,
		models:   models,
	}
}

// Models returns the offered models.
func (c *Controller) Models() []providers.Model {
	c.mu.Lock()
	defer c.mu.Unlock()
	models := make([]providers.Model, len(c.models))
	copy(models, c.models)
	return models
}

func (c *Controller) defaultModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.models) == 0 {
		return ""
	}
	return c.models[0].ID
}

func (c *Controller) offers(model string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.models {
		if m.ID == model {
			return true
		}
	}
	return false
}

// Settings returns the persisted settings with defaults applied.
func (c *Controller) Settings() settings.Settings {
	return settings.Load(c.store, c.defaultModel())
}

// Load returns the form pre-filled from the persisted settings.
func (c *Controller) Load() Form {
	s := c.Settings()
	form := Form{APIKey: s.APIKey, Model: s.Model}
	for _, m := range c.Models() {
		vendor, _, err := providers.ParseModelName(m.ID)
		if err != nil {
			vendor = "other"
		}
		form.Models = append(form.Models, ModelOption{
			ID:       m.ID,
			Name:     m.Name,
			Vendor:   vendor,
			Selected: m.ID == s.Model,
		})
	}
	return form
}

// Save stores the form values and schedules a persist.
func (c *Controller) Save(apiKey, model string) (string, error) {
	if !c.offers(model) {
		return "", fmt.Errorf("model %q is not one of the offered models", model)
	}
	settings.Save(c.store, settings.Settings{APIKey: apiKey, Model: model})
	return noticeSaved, nil
}

// Validate reports which of key, model and prompt are empty.
func Validate(s settings.Settings, prompt string) error {
	var missing []string
	if s.APIKey == "" {
		missing = append(missing, "API key")
	}
	if s.Model == "" {
		missing = append(missing, "model")
	}
	if prompt == "" {
		missing = append(missing, "prompt")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Generate sends prompt with the saved settings through the relay and
// describes what the image area should show.
func (c *Controller) Generate(ctx context.Context, prompt string) View {
	s := c.Settings()
	if err := Validate(s, prompt); err != nil {
		return View{Alert: err.Error()}
	}

	resp, err := c.relay.Generate(ctx, providers.GenerationRequest{
		Prompt: prompt,
		Model:  s.Model,
		APIKey: s.APIKey,
	})
	if err != nil {
		var relayErr *RelayError
		if errors.As(err, &relayErr) {
			return View{Alert: "Error: " + relayErr.Message}
		}
		log.Printf("Generation failed: %v", err)
		return View{Alert: alertGenFailed}
	}

	url := resp.FirstURL()
	if url == "" {
		return View{Message: messageNoImage}
	}

	view := View{ImageURL: url}
	if c.archiver != nil {
		entry, err := c.archiver.Archive(ctx, url)
		if err != nil {
			log.Printf("Error archiving generated image: %v", err)
		}
		// A failed upload still returns the local copy.
		if entry != nil {
			view.ArchivedPath = entry.Path
			view.HostedURL = entry.HostedURL
		}
	}
	return view
}

// RefreshModels replaces the offered models with the list the upstream returns
// for the saved API key.
func (c *Controller) RefreshModels(ctx context.Context) error {
	if c.lister == nil {
		return errors.New("model listing is not available")
	}
	s := c.Settings()
	if s.APIKey == "" {
		return errors.New("API key not set")
	}
	models, err := c.lister.ListModels(ctx, s.APIKey)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		return errors.New("no models returned")
	}
	c.mu.Lock()
	c.models = models
	c.mu.Unlock()
	return nil
}

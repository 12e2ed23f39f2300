package settings

// ModuleName namespaces this extension's keys in the host store.
const ModuleName = "openrouter_image_gen"

const (
	apiKeyKey = ModuleName + ".apiKey"
	modelKey  = ModuleName + ".model"
)

// Settings are the values the panel persists.
type Settings struct {
	APIKey string `json:"apiKey"`
	Model  string `json:"model"`
}

// Complete reports whether both the key and the model are set.
func (s Settings) Complete() bool {
	return s.APIKey != "" && s.Model != ""
}

// Load reads the settings from store. A model that was never saved falls back
// to defaultModel; the key defaults to empty.
func Load(store Store, defaultModel string) Settings {
	s := Settings{Model: defaultModel}
	if v, ok := store.Get(apiKeyKey); ok {
		s.APIKey = v
	}
	if v, ok := store.Get(modelKey); ok {
		s.Model = v
	}
	return s
}

// Save writes s into store and schedules a persist.
func Save(store Store, s Settings) {
	store.Set(apiKeyKey, s.APIKey)
	store.Set(modelKey, s.Model)
	store.Persist()
}

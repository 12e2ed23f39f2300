package config

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ServerSettings holds the listener and routing configuration.
type ServerSettings struct {
	ListenAddr      string `json:"LISTEN_ADDR"`
	PluginNamespace string `json:"PLUGIN_NAMESPACE"`
	PublicURL       string `json:"PUBLIC_URL"`
	RelayAccessKey  string `json:"RELAY_ACCESS_KEY"`
}

// UpstreamSettings configures the outbound OpenRouter client.
type UpstreamSettings struct {
	BaseURL          string `json:"OPENROUTER_BASE_URL"`
	TimeoutSeconds   int    `json:"UPSTREAM_TIMEOUT"`
	ProxyURL         string `json:"UPSTREAM_PROXY"`
	ForwardImageSize bool   `json:"FORWARD_IMAGE_SIZE"`
}

// StoreSettings configures the settings store the panel persists into.
type StoreSettings struct {
	File        string `json:"SETTINGS_FILE"`
	SaveDelayMS int    `json:"SETTINGS_SAVE_DELAY_MS"`
}

// WebSettings holds optional panel access settings.
type WebSettings struct {
	WebPassword   string `json:"WEB_PASSWORD"`
	SessionSecret string `json:"SESSION_SECRET"`
}

// ArchiveSettings controls what happens to generated images after they are shown.
type ArchiveSettings struct {
	SaveLocalCopy     bool   `json:"SAVE_LOCAL_COPY"`
	ImagesDir         string `json:"IMAGES_DIR"`
	UploadToImageHost bool   `json:"UPLOAD_TO_IMAGE_HOST"`
	NodeImageAPIKey   string `json:"NODEIMAGE_API_KEY"`
}

// Config holds the entire application configuration.
type Config struct {
	Server   ServerSettings   `json:"SERVER"`
	Upstream UpstreamSettings `json:"UPSTREAM"`
	Store    StoreSettings    `json:"STORE"`
	Web      WebSettings      `json:"WEB"`
	Archive  ArchiveSettings  `json:"ARCHIVE"`
}

// DefaultSessionSecret is used when SESSION_SECRET is not configured.
const DefaultSessionSecret = "a_very_long_and_random_secret_string"

// Default returns the configuration used before any file or environment is applied.
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			ListenAddr:      ":8080",
			PluginNamespace: "/api/plugins/openrouter-image-gen",
		},
		Upstream: UpstreamSettings{
			BaseURL: "https://openrouter.ai/api/v1",
		},
		Store: StoreSettings{
			File:        "settings.json",
			SaveDelayMS: 1000,
		},
		Web: WebSettings{
			SessionSecret: DefaultSessionSecret,
		},
		Archive: ArchiveSettings{
			ImagesDir: "images",
		},
	}
}

// Load builds the configuration from defaults, the JSON file at path, .env and
// environment variables, each layer overriding the previous one.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.Open(path)
		if err == nil {
			defer file.Close()
			if err := json.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("config: could not decode %s: %w", path, err)
			}
			log.Printf("Loaded configuration from %s", path)
		} else if !os.IsNotExist(err) {
			log.Printf("Warning: Could not open %s: %v", path, err)
		}
	}

	// A missing .env is normal; real environment variables still apply.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: Could not load .env: %v", err)
	}

	cfg.loadFromEnv()
	cfg.normalize()

	log.Println("Configuration loaded successfully.")
	return cfg, nil
}

// loadFromEnv overrides existing values with any set environment variables.
func (c *Config) loadFromEnv() {
	setString(&c.Server.ListenAddr, "LISTEN_ADDR")
	setString(&c.Server.PluginNamespace, "PLUGIN_NAMESPACE")
	setString(&c.Server.PublicURL, "PUBLIC_URL")
	setString(&c.Server.RelayAccessKey, "RELAY_ACCESS_KEY")

	setString(&c.Upstream.BaseURL, "OPENROUTER_BASE_URL")
	setInt(&c.Upstream.TimeoutSeconds, "UPSTREAM_TIMEOUT")
	setString(&c.Upstream.ProxyURL, "UPSTREAM_PROXY")
	setBool(&c.Upstream.ForwardImageSize, "FORWARD_IMAGE_SIZE")

	setString(&c.Store.File, "SETTINGS_FILE")
	setInt(&c.Store.SaveDelayMS, "SETTINGS_SAVE_DELAY_MS")

	setString(&c.Web.WebPassword, "WEB_PASSWORD")
	setString(&c.Web.SessionSecret, "SESSION_SECRET")

	setBool(&c.Archive.SaveLocalCopy, "SAVE_LOCAL_COPY")
	setString(&c.Archive.ImagesDir, "IMAGES_DIR")
	setBool(&c.Archive.UploadToImageHost, "UPLOAD_TO_IMAGE_HOST")
	setString(&c.Archive.NodeImageAPIKey, "NODEIMAGE_API_KEY")
}

func (c *Config) normalize() {
	c.Server.PluginNamespace = "/" + strings.Trim(c.Server.PluginNamespace, "/")
	c.Upstream.BaseURL = strings.TrimRight(c.Upstream.BaseURL, "/")
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = localURL(c.Server.ListenAddr)
	}
	c.Server.PublicURL = strings.TrimRight(c.Server.PublicURL, "/")
	if c.Upstream.TimeoutSeconds < 0 {
		c.Upstream.TimeoutSeconds = 0
	}
	if c.Store.SaveDelayMS < 0 {
		c.Store.SaveDelayMS = 0
	}
}

// RelayURL is the absolute URL of the relay route as seen by the panel.
func (c *Config) RelayURL() string {
	return c.Server.PublicURL + c.Server.PluginNamespace + "/generate"
}

// UpstreamTimeout returns the outbound timeout; zero means no timeout.
func (c *Config) UpstreamTimeout() time.Duration {
	return time.Duration(c.Upstream.TimeoutSeconds) * time.Second
}

// SaveDelay is the debounce delay of the settings store.
func (c *Config) SaveDelay() time.Duration {
	return time.Duration(c.Store.SaveDelayMS) * time.Millisecond
}

func localURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://127.0.0.1:8080"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setBool(dst *bool, key string) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		} else {
			log.Printf("Warning: ignoring %s=%q: %v", key, val, err)
		}
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		} else {
			log.Printf("Warning: ignoring %s=%q: %v", key, val, err)
		}
	}
}

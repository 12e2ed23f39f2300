package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imagegen/archive"
	"imagegen/config"
	"imagegen/httpclient"
	"imagegen/imagehost"
	"imagegen/middleware"
	"imagegen/panel"
	"imagegen/providers"
	"imagegen/registry"
	"imagegen/relay"
	"imagegen/settings"
)

func main() {
	confPath := flag.String("config", "conf.json", "Path to the JSON configuration file")
	flag.Parse()

	cfg, err := config.Load(*confPath)
	if err != nil {
		log.Fatalf("Could not load configuration: %v", err)
	}

	upstreamClient, err := httpclient.New(cfg.Upstream.ProxyURL, cfg.UpstreamTimeout())
	if err != nil {
		log.Fatalf("Could not create upstream client: %v", err)
	}
	openRouter := providers.NewOpenRouterProvider(cfg.Upstream.BaseURL, upstreamClient)

	store, err := settings.OpenFileStore(cfg.Store.File, cfg.SaveDelay())
	if err != nil {
		log.Fatalf("Could not open settings store: %v", err)
	}

	opts := panel.Options{
		Models: openRouter.GetModels(),
		Lister: openRouter,
	}
	if arch := newArchiver(cfg, upstreamClient); arch != nil {
		opts.Archiver = arch
	}
	controller := panel.NewController(store, panel.NewRelayClient(cfg.RelayURL(), cfg.Server.RelayAccessKey, nil), opts)

	generators := registry.New()
	if err := generators.Register(panel.NewGenerator(controller, cfg.Upstream.ForwardImageSize)); err != nil {
		log.Fatalf("Could not register image generator: %v", err)
	}

	mux := http.NewServeMux()
	relayRoute := middleware.AccessKeyAuth(cfg.Server.RelayAccessKey)(relay.NewHandler(openRouter))
	mux.Handle("POST "+cfg.Server.PluginNamespace+"/generate", relayRoute)

	sessionAuth := middleware.NewSessionAuth(cfg.Web)
	registryHandler := &registry.Handler{Registry: generators}
	registryHandler.Register(mux, middleware.HostAuth(sessionAuth, cfg.Server.RelayAccessKey))

	web := &panel.Web{Controller: controller, Auth: sessionAuth}
	web.Register(mux)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           middleware.Chain(mux, middleware.RequestID, middleware.AccessLog, middleware.Recover),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("OpenRouter image generation relay loaded at %s%s/generate", cfg.Server.ListenAddr, cfg.Server.PluginNamespace)
		log.Printf("Starting server on %s...", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Could not start server: %s\n", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	if err := store.Close(); err != nil {
		log.Printf("Error saving settings: %v", err)
	}
}

func newArchiver(cfg *config.Config, client *http.Client) *archive.Archiver {
	var dir string
	if cfg.Archive.SaveLocalCopy {
		dir = cfg.Archive.ImagesDir
	}
	var host archive.Uploader
	if cfg.Archive.UploadToImageHost {
		if cfg.Archive.NodeImageAPIKey == "" {
			log.Println("Warning: UPLOAD_TO_IMAGE_HOST is set but NODEIMAGE_API_KEY is empty; skipping uploads.")
		} else {
			host = imagehost.NewNodeImageClient(cfg.Archive.NodeImageAPIKey, client)
		}
	}
	return archive.New(dir, host, client)
}

package registry

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"imagegen/middleware"
)

// GenerateRequest is the body of POST /api/image-gen/{provider}.
type GenerateRequest struct {
	Prompt   string `json:"prompt"`
	Negative string `json:"negative"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Handler exposes the registry over HTTP.
type Handler struct {
	Registry *Registry
}

// Register mounts the registry routes on mux behind gate.
func (h *Handler) Register(mux *http.ServeMux, gate func(http.Handler) http.Handler) {
	mux.Handle("GET /api/image-gen", gate(http.HandlerFunc(h.List)))
	mux.Handle("POST /api/image-gen/{provider}", gate(http.HandlerFunc(h.Generate)))
}

// List serves GET /api/image-gen.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string][]string{"providers": h.Registry.Names()})
}

// Generate serves POST /api/image-gen/{provider}.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := h.Registry.Get(r.PathValue("provider"))
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Prompt == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Missing prompt")
		return
	}

	result, err := p.Generate(ctx, req.Prompt, req.Negative, req.Width, req.Height)
	if err != nil {
		middleware.Logf(ctx, "Provider '%s' failed: %v", p.Name(), err)
		status := http.StatusBadGateway
		if errors.Is(err, ErrNotConfigured) {
			status = http.StatusConflict
		}
		middleware.WriteError(w, status, err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

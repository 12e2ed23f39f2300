// Package relay implements the generation route that forwards a prompt to the
// upstream image API and passes its answer back unchanged.
package relay

import (
	"encoding/json"
	"io"
	"net/http"

	"imagegen/middleware"
	"imagegen/providers"
)

// MaxBodyBytes bounds the size of an incoming generation request.
const MaxBodyBytes = 1 << 20

const (
	errMissingFields = "Missing prompt, model, or apiKey"
	errInvalidBody   = "Invalid request body"
	errInternal      = "Internal server error"
)

// Handler serves POST /generate.
type Handler struct {
	Upstream providers.ImageProvider
}

// NewHandler returns a relay handler forwarding to upstream.
func NewHandler(upstream providers.ImageProvider) *Handler {
	return &Handler{Upstream: upstream}
}

// ServeHTTP validates the request, makes one upstream call and relays the result.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Only POST method is allowed")
		return
	}

	var req providers.GenerationRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		middleware.Logf(ctx, "Error decoding request body: %v", err)
		middleware.WriteError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	if req.Missing() {
		middleware.WriteError(w, http.StatusBadRequest, errMissingFields)
		return
	}

	middleware.Logf(ctx, "Received generation request. Model: '%s', Prompt length: %d", req.Model, len(req.Prompt))

	resp, err := h.Upstream.Relay(ctx, req)
	if err != nil {
		middleware.Logf(ctx, "Image generation error: %v", err)
		middleware.WriteError(w, http.StatusInternalServerError, errInternal)
		return
	}

	if !resp.OK() {
		middleware.Logf(ctx, "Upstream returned non-success status: %d, body: %s", resp.StatusCode, string(resp.Body))
		middleware.WriteError(w, resp.StatusCode, string(resp.Body))
		return
	}

	if !json.Valid(resp.Body) {
		middleware.Logf(ctx, "Upstream returned a non-JSON success body (%d bytes, Content-Type: %s)", len(resp.Body), resp.ContentType)
		middleware.WriteError(w, http.StatusInternalServerError, errInternal)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(resp.Body)
	middleware.Logf(ctx, "Successfully forwarded upstream response to client.")
}

package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"imagegen/config"
	"imagegen/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name   string
	result *ImageResult
	err    error
	got    []any
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(ctx context.Context, prompt, negative string, width, height int) (*ImageResult, error) {
	s.got = []any{prompt, negative, width, height}
	return s.result, s.err
}

func TestRegisterAndGet(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&stubProvider{name: "b"}))
	require.NoError(t, r.Register(&stubProvider{name: "a"}))

	err := r.Register(&stubProvider{name: "a"})
	assert.True(t, errors.Is(err, ErrDuplicate))

	assert.Equal(t, []string{"b", "a"}, r.Names())

	p, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", p.Name())

	_, err = r.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func noGate(next http.Handler) http.Handler { return next }

func newMux(r *Registry) *http.ServeMux {
	mux := http.NewServeMux()
	(&Handler{Registry: r}).Register(mux, noGate)
	return mux
}

func TestHandlerGenerate(t *testing.T) {
	p := &stubProvider{name: "OpenRouter Image Gen", result: &ImageResult{URL: "http://x/img.png"}}
	r := New()
	require.NoError(t, r.Register(p))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/image-gen/OpenRouter%20Image%20Gen",
		strings.NewReader(`{"prompt":"a cat","negative":"dogs","width":512,"height":768}`))
	newMux(r).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"http://x/img.png"}`, rec.Body.String())
	assert.Equal(t, []any{"a cat", "dogs", 512, 768}, p.got)
}

func TestHandlerErrors(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&stubProvider{name: "down", err: errors.New("No image generated")}))
	require.NoError(t, r.Register(&stubProvider{name: "unset", err: fmt.Errorf("%w: set a key", ErrNotConfigured)}))
	mux := newMux(r)

	tests := []struct {
		path string
		body string
		want int
	}{
		{"/api/image-gen/nope", `{"prompt":"x"}`, http.StatusNotFound},
		{"/api/image-gen/down", `{`, http.StatusBadRequest},
		{"/api/image-gen/down", `{"prompt":""}`, http.StatusBadRequest},
		{"/api/image-gen/down", `{"prompt":"x"}`, http.StatusBadGateway},
		{"/api/image-gen/unset", `{"prompt":"x"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.path+tt.body, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestHandlerRoutesRequireAuth(t *testing.T) {
	p := &stubProvider{name: "gen", result: &ImageResult{URL: "http://x/img.png"}}
	r := New()
	require.NoError(t, r.Register(p))

	mux := http.NewServeMux()
	auth := middleware.NewSessionAuth(config.WebSettings{WebPassword: "pw", SessionSecret: "0123456789abcdef0123456789abcdef"})
	(&Handler{Registry: r}).Register(mux, middleware.HostAuth(auth, "secret"))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/image-gen/gen", strings.NewReader(`{"prompt":"a cat"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, p.got)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/image-gen", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/image-gen/gen", strings.NewReader(`{"prompt":"a cat"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"a cat", "", 0, 0}, p.got)
}

func TestHandlerList(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&stubProvider{name: "one"}))

	rec := httptest.NewRecorder()
	newMux(r).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/image-gen", nil))
	assert.JSONEq(t, `{"providers":["one"]}`, rec.Body.String())
}

package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"imagegen/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUpstream struct {
	calls []providers.GenerationRequest
	resp  *providers.UpstreamResponse
	err   error
}

func (f *fakeUpstream) GetName() string { return "fake" }

func (f *fakeUpstream) Relay(ctx context.Context, req providers.GenerationRequest) (*providers.UpstreamResponse, error) {
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	return rec
}

func TestMissingFieldsNeverCallUpstream(t *testing.T) {
	bodies := []string{
		`{}`,
		`{"model":"m1","apiKey":"k1"}`,
		`{"prompt":"a cat","apiKey":"k1"}`,
		`{"prompt":"a cat","model":"m1"}`,
		`{"prompt":"","model":"m1","apiKey":"k1"}`,
		`{"prompt":"a cat","model":"","apiKey":"k1"}`,
		`{"prompt":"a cat","model":"m1","apiKey":""}`,
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			up := &fakeUpstream{}
			rec := post(NewHandler(up), body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, `{"error":"Missing prompt, model, or apiKey"}`, rec.Body.String())
			assert.Empty(t, up.calls)
		})
	}
}

func TestInvalidBody(t *testing.T) {
	up := &fakeUpstream{}
	rec := post(NewHandler(up), `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, rec.Body.String())
	assert.Empty(t, up.calls)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(&fakeUpstream{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/generate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
}

func TestSuccessBodyIsByteIdentical(t *testing.T) {
	upstreamBody := "{ \"data\" : [ {\"url\":\"http://x/img.png\", \"extra\": 1.50} ],\n \"created\": 1 }"
	up := &fakeUpstream{resp: &providers.UpstreamResponse{StatusCode: http.StatusOK, Body: []byte(upstreamBody)}}

	rec := post(NewHandler(up), `{"prompt":"a cat","model":"m1","apiKey":"k1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, upstreamBody, rec.Body.String())
	require.Len(t, up.calls, 1)
	assert.Equal(t, providers.GenerationRequest{Prompt: "a cat", Model: "m1", APIKey: "k1"}, up.calls[0])
}

func TestSuccessAlwaysAnswersOK(t *testing.T) {
	up := &fakeUpstream{resp: &providers.UpstreamResponse{StatusCode: http.StatusCreated, Body: []byte(`{"data":[]}`)}}

	rec := post(NewHandler(up), `{"prompt":"a cat","model":"m1","apiKey":"k1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"data":[]}`, rec.Body.String())
}

func TestUpstreamErrorStatusPropagates(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusTooManyRequests, http.StatusBadGateway} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			up := &fakeUpstream{resp: &providers.UpstreamResponse{StatusCode: status, Body: []byte(`{"error":{"message":"nope"}}`)}}
			rec := post(NewHandler(up), `{"prompt":"a cat","model":"m1","apiKey":"k1"}`)

			assert.Equal(t, status, rec.Code)
			assert.JSONEq(t, `{"error":"{\"error\":{\"message\":\"nope\"}}"}`, rec.Body.String())
			assert.Len(t, up.calls, 1)
		})
	}
}

func TestTransportFailureIsGenericServerError(t *testing.T) {
	up := &fakeUpstream{err: errors.New("dial tcp: connection refused")}
	rec := post(NewHandler(up), `{"prompt":"a cat","model":"m1","apiKey":"k1"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestNonJSONSuccessIsGenericServerError(t *testing.T) {
	up := &fakeUpstream{resp: &providers.UpstreamResponse{StatusCode: http.StatusOK, Body: []byte("<html>")}}
	rec := post(NewHandler(up), `{"prompt":"a cat","model":"m1","apiKey":"k1"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestRelayAgainstOpenRouterProvider(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "Bearer k1", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":[{"url":"http://x/img.png"}]}`))
	}))
	defer srv.Close()

	h := NewHandler(providers.NewOpenRouterProvider(srv.URL, srv.Client()))
	rec := post(h, `{"prompt":"a cat","model":"m1","apiKey":"k1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"data":[{"url":"http://x/img.png"}]}`, rec.Body.String())
	assert.Equal(t, 1, calls)
}

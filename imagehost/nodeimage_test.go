package imagehost

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "pic.png", header.Filename)
		assert.Equal(t, []byte("png-bytes"), data)

		w.Write([]byte(`{"success":true,"image_id":"id1","links":{"direct":"https://cdn.nodeimage.com/i/id1.png"}}`))
	}))
	defer srv.Close()

	c := NewNodeImageClient("secret", srv.Client())
	c.UploadURL = srv.URL
	resp, err := c.UploadImage(context.Background(), []byte("png-bytes"), "pic.png")
	require.NoError(t, err)
	assert.Equal(t, "id1", resp.ImageID)
	assert.Equal(t, "https://cdn.nodeimage.com/i/id1.png", resp.Links.Direct)
}

func TestUploadImageFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"non-200", http.StatusForbidden, `forbidden`},
		{"reported failure", http.StatusOK, `{"success":false,"message":"quota"}`},
		{"bad json", http.StatusOK, `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewNodeImageClient("k", srv.Client())
			c.UploadURL = srv.URL
			_, err := c.UploadImage(context.Background(), []byte("x"), "x.png")
			assert.Error(t, err)
		})
	}
}

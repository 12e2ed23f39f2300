package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// DefaultUploadURL is the NodeImage upload endpoint.
const DefaultUploadURL = "https://api.nodeimage.com/api/upload"

// NodeImageClient handles communication with the NodeImage API.
type NodeImageClient struct {
	APIKey    string
	UploadURL string
	Client    *http.Client
}

// NewNodeImageClient creates a new NodeImage client.
func NewNodeImageClient(apiKey string, client *http.Client) *NodeImageClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &NodeImageClient{
		APIKey:    apiKey,
		UploadURL: DefaultUploadURL,
		Client:    client,
	}
}

// UploadResponse matches the structure of the successful upload response.
type UploadResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ImageID string `json:"image_id"`
	Links   struct {
		Direct string `json:"direct"`
	} `json:"links"`
}

// UploadImage uploads an image and returns the direct URL and image ID.
func (c *NodeImageClient) UploadImage(ctx context.Context, imageBytes []byte, filename string) (*UploadResponse, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageBytes); err != nil {
		return nil, fmt.Errorf("failed to copy image bytes to form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.UploadURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-API-Key", c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute upload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("nodeimage API returned non-200 status: %d, body: %s", resp.StatusCode, string(body))
	}

	var uploadResp UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	if !uploadResp.Success {
		return nil, fmt.Errorf("nodeimage API reported an error: %s", uploadResp.Message)
	}

	return &uploadResp, nil
}

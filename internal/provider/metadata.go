package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// VideoMetadata describes a platform video, used for duration-based
// trial gating.
type VideoMetadata struct {
	DurationSeconds float64 `json:"duration_seconds"`
	Title           string  `json:"title"`
	Thumbnail       string  `json:"thumbnail"`
}

// MetadataResolver resolves a video URL to its metadata.
type MetadataResolver interface {
	VideoMetadata(ctx context.Context, videoURL string) (*VideoMetadata, error)
}

// MetadataClient is the HTTP implementation of MetadataResolver.
type MetadataClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewMetadataClient(baseURL, apiKey string) *MetadataClient {
	return &MetadataClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *MetadataClient) VideoMetadata(ctx context.Context, videoURL string) (*VideoMetadata, error) {
	q := url.Values{}
	q.Set("id", videoURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/youtube/video?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metadata request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata service returned status %d: %s", resp.StatusCode, string(body))
	}

	meta := &VideoMetadata{}
	if err := json.Unmarshal(body, meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata response: %w", err)
	}
	return meta, nil
}

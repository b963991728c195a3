// Package render holds clients for the song rendering backend and the
// fetch-and-validate step that turns its remote refs into local files.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsRadio/internal/config"
	"NewsRadio/internal/domain"
	"NewsRadio/internal/ports"
)

// SongClient implements ports.SongRenderer against an HTTP rendering backend.
type SongClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

var _ ports.SongRenderer = (*SongClient)(nil)

// NewSongClient builds a client from configuration.
func NewSongClient(cfg config.RendererConfig) *SongClient {
	return &SongClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			// Rendering a full song routinely takes minutes.
			Timeout: 5 * time.Minute,
		},
	}
}

type renderResponse struct {
	ID       string `json:"id"`
	AudioURL string `json:"audioUrl"`
}

// Render submits the script and returns the backend's locator for the
// finished audio.
func (c *SongClient) Render(ctx context.Context, script domain.ScriptPayload) (ports.RemoteAudioRef, error) {
	if c.endpoint == "" {
		return ports.RemoteAudioRef{}, fmt.Errorf("renderer client misconfigured")
	}

	body, err := json.Marshal(map[string]string{
		"title":  script.Title,
		"lyrics": script.Body,
		"style":  script.Style,
	})
	if err != nil {
		return ports.RemoteAudioRef{}, fmt.Errorf("marshal render payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return ports.RemoteAudioRef{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.RemoteAudioRef{}, fmt.Errorf("submit render: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return ports.RemoteAudioRef{}, fmt.Errorf("renderer error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return ports.RemoteAudioRef{}, fmt.Errorf("decode render response: %w", err)
	}
	if parsed.AudioURL == "" {
		return ports.RemoteAudioRef{}, fmt.Errorf("render response carries no audio url")
	}

	return ports.RemoteAudioRef{ID: parsed.ID, URL: parsed.AudioURL}, nil
}

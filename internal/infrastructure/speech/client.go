// Package speech holds the text-to-speech collaborator client.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"NewsRadio/internal/config"
	"NewsRadio/internal/ports"
)

// Client implements ports.SpeechSynthesizer against an HTTP TTS backend that
// responds with raw audio bytes.
type Client struct {
	endpoint   string
	apiKey     string
	dir        string
	minBytes   int64
	httpClient *http.Client
}

var _ ports.SpeechSynthesizer = (*Client)(nil)

// NewClient builds a client; synthesized files land under dir and are subject
// to the same minimum-size validation as rendered songs.
func NewClient(cfg config.SpeechConfig, dir string, minBytes int64) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		dir:      dir,
		minBytes: minBytes,
		httpClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// SynthesizeSpeech renders text to a local audio file and returns its path.
func (c *Client) SynthesizeSpeech(ctx context.Context, text, voice string) (string, error) {
	if c.endpoint == "" {
		return "", fmt.Errorf("speech client misconfigured")
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("nothing to synthesize")
	}

	body, err := json.Marshal(map[string]string{
		"text":  text,
		"voice": voice,
	})
	if err != nil {
		return "", fmt.Errorf("marshal speech payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("synthesize speech: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("speech backend error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}

	path := filepath.Join(c.dir, ulid.Make().String()+".mp3")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create audio file: %w", err)
	}

	written, err := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write audio file: %w", err)
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close audio file: %w", closeErr)
	}

	if written < c.minBytes {
		_ = os.Remove(path)
		return "", fmt.Errorf("speech file too small: %d bytes, need %d", written, c.minBytes)
	}

	return path, nil
}

package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"NewsRadio/internal/ports"
)

// Downloader fetches rendered audio to local storage. Files under the minimum
// byte size are deleted and reported as failed renders; the backends
// occasionally return truncated or empty blobs for expired refs.
type Downloader struct {
	dir        string
	minBytes   int64
	httpClient *http.Client
}

var _ ports.AudioDownloader = (*Downloader)(nil)

// NewDownloader stores files under dir; nil client gets a 2m-timeout default.
func NewDownloader(dir string, minBytes int64, client *http.Client) *Downloader {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}
	return &Downloader{dir: dir, minBytes: minBytes, httpClient: client}
}

// Download streams the referenced audio into the local directory and returns
// its path, validating the minimum size.
func (d *Downloader) Download(ctx context.Context, ref ports.RemoteAudioRef) (string, error) {
	if ref.URL == "" {
		return "", fmt.Errorf("audio ref carries no url")
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return "", fmt.Errorf("create audio dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("audio host returned %s", resp.Status)
	}

	name := ref.ID
	if name == "" {
		name = ulid.Make().String()
	}
	path := filepath.Join(d.dir, name+".mp3")

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

	if written < d.minBytes {
		_ = os.Remove(path)
		return "", fmt.Errorf("audio file too small: %d bytes, need %d", written, d.minBytes)
	}

	return path, nil
}

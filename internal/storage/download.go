package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxDocumentSize caps downloaded documents at 25 MB.
const maxDocumentSize = 25 << 20

// Downloader fetches document bytes for the extraction pipeline.
type Downloader interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

type httpDownloader struct {
	client *http.Client
}

// NewDownloader returns an HTTP Downloader with a bounded timeout.
func NewDownloader() Downloader {
	return &httpDownloader{client: &http.Client{Timeout: 2 * time.Minute}}
}

// Fetch downloads the document and returns its bytes and content type.
func (d *httpDownloader) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download document: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read document: %w", err)
	}
	if len(data) > maxDocumentSize {
		return nil, "", fmt.Errorf("document exceeds %d byte limit", maxDocumentSize)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

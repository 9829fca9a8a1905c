// Package upload publishes captured samples to an ingest endpoint.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/gemblerz/camera-sampler/internal/httpc"
	"github.com/gemblerz/camera-sampler/internal/log"
)

// Meta describes the sample being uploaded.
type Meta struct {
	ID        string `json:"id"`
	Stream    string `json:"stream"`
	Filename  string `json:"filename"`
	Timestamp int64  `json:"timestamp"` // capture time, epoch nanoseconds
}

// Publisher transmits a sample file. The sampler only depends on this
// interface so tests can substitute a recording fake.
type Publisher interface {
	UploadFile(ctx context.Context, path string, stream string, stamp time.Time) error
}

// Client publishes samples over HTTP as multipart uploads: a "meta"
// JSON part followed by the file itself.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a publisher for the given ingest URL.
func NewClient(url string) *Client {
	return &Client{url: url, http: httpc.Client}
}

// UploadFile reads the file at path and posts it with its metadata.
func (c *Client) UploadFile(ctx context.Context, path string, stream string, stamp time.Time) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read sample: %w", err)
	}

	meta := Meta{
		ID:        uuid.NewString(),
		Stream:    stream,
		Filename:  filepath.Base(path),
		Timestamp: stamp.UnixNano(),
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := w.WriteField("meta", string(metaJSON)); err != nil {
		return fmt.Errorf("write meta part: %w", err)
	}

	part, err := w.CreateFormFile("file", meta.Filename)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write file part: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", meta.Filename, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload %s: unexpected status %s", meta.Filename, resp.Status)
	}

	log.Debug("uploaded sample", "id", meta.ID, "stream", stream, "bytes", len(data))
	return nil
}

// Discard is a Publisher that logs and drops samples. Used when no
// upload URL is configured.
type Discard struct{}

// UploadFile logs the sample and does nothing else.
func (Discard) UploadFile(_ context.Context, path string, stream string, stamp time.Time) error {
	log.Info("no upload URL configured, keeping sample locally",
		"path", path, "stream", stream, "timestamp", stamp)
	return nil
}

package civitai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vixalie/interactive-model-downloader/internal/httpclient"
)

// DefaultBaseURL is the production catalog service.
const DefaultBaseURL = "https://civitai.com"

// Client fetches catalog metadata.
type Client struct {
	http    *httpclient.Client
	baseURL string
}

// NewClient creates a catalog client on top of the given HTTP client.
// An empty baseURL selects the production service; tests point it at a
// local server.
func NewClient(hc *httpclient.Client, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{http: hc, baseURL: baseURL}
}

// Model fetches a model's full metadata, including all versions.
func (c *Client) Model(ctx context.Context, id int64) (*Model, error) {
	var model Model
	url := fmt.Sprintf("%s/api/v1/models/%d", c.baseURL, id)
	if err := c.http.GetJSON(ctx, url, &model); err != nil {
		return nil, fmt.Errorf("fetch model %d: %w", id, err)
	}
	return &model, nil
}

// ModelVersion fetches one version's metadata by version id.
func (c *Client) ModelVersion(ctx context.Context, id int64) (*ModelVersion, error) {
	var version ModelVersion
	url := fmt.Sprintf("%s/api/v1/model-versions/%d", c.baseURL, id)
	if err := c.http.GetJSON(ctx, url, &version); err != nil {
		return nil, fmt.Errorf("fetch model version %d: %w", id, err)
	}
	return &version, nil
}

// VersionByHash looks a version up by the content hash of one of its
// files. The catalog accepts any of the hash kinds it declares.
func (c *Client) VersionByHash(ctx context.Context, hash string) (*ModelVersion, error) {
	var version ModelVersion
	url := fmt.Sprintf("%s/api/v1/model-versions/by-hash/%s", c.baseURL, hash)
	if err := c.http.GetJSON(ctx, url, &version); err != nil {
		return nil, fmt.Errorf("fetch version by hash %s: %w", hash, err)
	}
	return &version, nil
}

// WriteMetadata writes the model's metadata as pretty-printed JSON to
// "<model-id>.json" in dir, next to the downloaded files. Returns the
// written path.
func WriteMetadata(dir string, model *Model) (string, error) {
	data, err := json.MarshalIndent(model, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode metadata for model %d: %w", model.ID, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%d.json", model.ID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write metadata %s: %w", path, err)
	}
	return path, nil
}

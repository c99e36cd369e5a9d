// Model registry lookup: resolves a production model by name into a callable
// scorer at process start or on version rotation.
package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"glide/internal/config"
)

type registryEntry struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Endpoint string `json:"endpoint"`
}

// LoadProductionModel asks the registry for the serving endpoint of the named
// model and returns a client bound to it. An empty endpoint means the model is
// co-hosted on the registry's own server.
func LoadProductionModel(ctx context.Context, cfg config.ModelConfig, name string, kind Kind) (*Client, error) {
	url := fmt.Sprintf("%s/v1/registry/models/%s", cfg.ServerURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model registry lookup %q: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model registry lookup %q: status %d", name, resp.StatusCode)
	}

	var entry registryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, fmt.Errorf("model registry lookup %q: %w", name, err)
	}
	endpoint := entry.Endpoint
	if endpoint == "" {
		endpoint = cfg.ServerURL
	}

	return NewClient(ClientOptions{
		BaseURL:        endpoint,
		ModelName:      entry.Name,
		Kind:           kind,
		RequestTimeout: cfg.RequestTimeout,
		RequestsPerSec: cfg.RequestsPerSec,
	}), nil
}

package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPDirectory resolves recipients against the SiteGate core admin API.
type HTTPDirectory struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewHTTPDirectory(baseURL, apiKey string) *HTTPDirectory {
	return &HTTPDirectory{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

// IsConfigured checks if the directory endpoint is set up.
func (d *HTTPDirectory) IsConfigured() bool {
	return d.baseURL != ""
}

func (d *HTTPDirectory) Resolve(ctx context.Context, ref string) (Entry, error) {
	endpoint := fmt.Sprintf("%s/internal/recipients/%s", d.baseURL, url.PathEscape(ref))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", d.apiKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("directory request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Entry{}, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return Entry{}, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}

	var entry Entry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return Entry{}, fmt.Errorf("failed to decode directory response: %w", err)
	}
	if entry.Ref == "" {
		entry.Ref = ref
	}
	return entry, nil
}

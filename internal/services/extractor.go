// Extractor [Extractor] implementation backed by the local metadata proxy.
//
// The proxy wraps an external metadata extractor; its reads consume none of
// the remote API's daily unit budget, so they are paced only by a local
// rate limiter to stay under the extractor's own opaque ceiling.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const defaultExtractorBaseURL string = "http://localhost:8080"

// HTTPExtractor implements [Extractor] against the metadata proxy.
type HTTPExtractor struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      PlaylistCache
	cacheTTL   time.Duration
}

// ExtractorOpts contains configuration options for creating an HTTPExtractor.
type ExtractorOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	RateLimit  float64 // requests per second, default 5
	Cache      PlaylistCache
	CacheTTL   time.Duration
}

// NewHTTPExtractor creates a new extractor client for the metadata proxy.
func NewHTTPExtractor(opts ExtractorOpts) *HTTPExtractor {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultExtractorBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}

	return &HTTPExtractor{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
	}
}

// FetchPlaylist resolves a playlist reference via GET /api/playlists/{ref}.
//
// Cached reads within the TTL are served locally; cache writes are
// best-effort and never fail the fetch.
func (e *HTTPExtractor) FetchPlaylist(ctx context.Context, ref string, useCache bool) (*PlaylistExport, error) {
	if useCache && e.cache != nil {
		if export, ok := e.cache.Get(ref, e.cacheTTL); ok {
			return export, nil
		}
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	var payload struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Privacy     string `json:"privacy"`
		ItemCount   int    `json:"itemCount"`
		Items       []struct {
			VideoID string `json:"videoId"`
		} `json:"items"`
	}

	endpoint := fmt.Sprintf("/api/playlists/%s", url.PathEscape(ref))
	if err := e.doRequest(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	videoIDs := make([]string, len(payload.Items))
	for i, item := range payload.Items {
		videoIDs[i] = item.VideoID
	}

	export := &PlaylistExport{
		Playlist: Playlist{
			ID:          payload.ID,
			Title:       payload.Title,
			Description: payload.Description,
			Privacy:     payload.Privacy,
			ItemCount:   payload.ItemCount,
		},
		VideoIDs: videoIDs,
	}

	if e.cache != nil {
		_ = e.cache.Put(ref, export)
	}

	return export, nil
}

func (e *HTTPExtractor) doRequest(ctx context.Context, endpoint string, result any) error {
	apiURL := e.baseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Structured so callers can distinguish a missing playlist from a
		// broken proxy.
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			apiErr.Message = errResp.Detail
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNotFound {
			apiErr.Reason = ReasonNotFound
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// Remote write API [WriteClient] implementation.
//
// Each call is attributed to a named identity; the credential store supplies
// the Authorization header. Non-2xx responses are decoded into [*APIError]
// so the retry policy can classify them.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const defaultWriterBaseURL string = "http://localhost:8081"

// HTTPWriteClient implements [WriteClient] against the write proxy.
type HTTPWriteClient struct {
	baseURL    string
	httpClient *http.Client
	creds      CredentialStore
}

// NewHTTPWriteClient creates a new write client.
func NewHTTPWriteClient(baseURL string, client *http.Client, creds CredentialStore) *HTTPWriteClient {
	if baseURL == "" {
		baseURL = defaultWriterBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &HTTPWriteClient{
		baseURL:    baseURL,
		httpClient: client,
		creds:      creds,
	}
}

// CreatePlaylist creates a new playlist via POST /api/playlists and returns
// the new playlist's reference.
func (w *HTTPWriteClient) CreatePlaylist(ctx context.Context, identity string, spec PlaylistSpec) (string, error) {
	var result struct {
		PlaylistID string `json:"playlist_id"`
	}

	if err := w.doRequest(ctx, identity, http.MethodPost, "/api/playlists", spec, &result); err != nil {
		return "", err
	}
	return result.PlaylistID, nil
}

// UpdatePlaylist updates title/description/privacy of an existing playlist
// via PUT /api/playlists/{ref}.
func (w *HTTPWriteClient) UpdatePlaylist(ctx context.Context, identity, targetRef string, spec PlaylistSpec) error {
	endpoint := fmt.Sprintf("/api/playlists/%s", url.PathEscape(targetRef))
	return w.doRequest(ctx, identity, http.MethodPut, endpoint, spec, nil)
}

// InsertItems appends videos to a playlist via POST /api/playlists/{ref}/items.
func (w *HTTPWriteClient) InsertItems(ctx context.Context, identity, targetRef string, videoIDs []string) error {
	body := struct {
		VideoIDs []string `json:"video_ids"`
	}{VideoIDs: videoIDs}

	endpoint := fmt.Sprintf("/api/playlists/%s/items", url.PathEscape(targetRef))
	return w.doRequest(ctx, identity, http.MethodPost, endpoint, body, nil)
}

// DeleteItems removes videos from a playlist via DELETE /api/playlists/{ref}/items.
func (w *HTTPWriteClient) DeleteItems(ctx context.Context, identity, targetRef string, videoIDs []string) error {
	body := struct {
		VideoIDs []string `json:"video_ids"`
	}{VideoIDs: videoIDs}

	endpoint := fmt.Sprintf("/api/playlists/%s/items", url.PathEscape(targetRef))
	return w.doRequest(ctx, identity, http.MethodDelete, endpoint, body, nil)
}

func (w *HTTPWriteClient) doRequest(ctx context.Context, identity, method, endpoint string, body, result any) error {
	apiURL := w.baseURL + endpoint

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if w.creds != nil {
		cred, err := w.creds.Credential(ctx, identity)
		if err != nil {
			return fmt.Errorf("failed to resolve credentials for %s: %w", identity, err)
		}
		header, err := cred.AuthHeader()
		if err != nil {
			return fmt.Errorf("failed to build auth header for %s: %w", identity, err)
		}
		req.Header.Set("Authorization", header)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		// Network failures carry no status; surface a synthetic 5xx-class
		// APIError so the retry policy treats them as transient.
		return &APIError{StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// decodeAPIError extracts the machine-readable reason from an error response.
// The proxy mirrors the remote service's error envelope.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Reason string `json:"reason"`
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
			Errors  []struct {
				Reason string `json:"reason"`
			} `json:"errors"`
		} `json:"error"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		apiErr.Reason = envelope.Reason
		apiErr.Message = envelope.Detail
		if apiErr.Reason == "" && len(envelope.Error.Errors) > 0 {
			apiErr.Reason = envelope.Error.Errors[0].Reason
		}
		if apiErr.Message == "" {
			apiErr.Message = envelope.Error.Message
		}
	}

	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}

	return apiErr
}

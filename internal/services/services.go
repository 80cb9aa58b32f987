// package services defines the external collaborators of the batch engine:
// the zero-cost metadata extractor, the quota-charged remote write client,
// and the credential store.
package services

import (
	"context"
	"fmt"
	"time"
)

// Playlist represents a playlist on the remote service.
type Playlist struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Privacy     string `json:"privacy"`
	ItemCount   int    `json:"itemCount"`
}

// PlaylistExport represents a playlist with its ordered video IDs, as
// returned by the extractor.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	VideoIDs []string `json:"video_ids"`
}

// PlaylistSpec describes a playlist to create or update.
type PlaylistSpec struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Privacy     string `json:"privacy"`
}

// Extractor provides zero-cost reads of playlist metadata. Reads consume no
// remote API units.
type Extractor interface {
	// FetchPlaylist resolves a playlist reference (ID or URL) to its metadata
	// and ordered video IDs. When useCache is true a recent cached read may be
	// returned without touching the network.
	FetchPlaylist(ctx context.Context, ref string, useCache bool) (*PlaylistExport, error)
}

// WriteClient exposes the four costed write operations of the remote API.
// Every call is attributed to a named identity whose credentials it uses.
// Failures carry a structured [*APIError] for retry classification.
type WriteClient interface {
	CreatePlaylist(ctx context.Context, identity string, spec PlaylistSpec) (string, error)
	UpdatePlaylist(ctx context.Context, identity, targetRef string, spec PlaylistSpec) error
	InsertItems(ctx context.Context, identity, targetRef string, videoIDs []string) error
	DeleteItems(ctx context.Context, identity, targetRef string, videoIDs []string) error
}

// Credential is an opaque handle to a usable set of remote API credentials.
type Credential interface {
	// AuthHeader returns the Authorization header value for a request,
	// refreshing the underlying token if the source supports it.
	AuthHeader() (string, error)
}

// CredentialStore resolves identity names to credential handles.
type CredentialStore interface {
	Credential(ctx context.Context, identityName string) (Credential, error)
}

// PlaylistCache is a TTL read-through cache of extractor reads.
type PlaylistCache interface {
	Get(ref string, maxAge time.Duration) (*PlaylistExport, bool)
	Put(ref string, export *PlaylistExport) error
}

// APIError is a structured error returned by the remote write API, carrying
// an HTTP-like status and a machine-readable reason string. The retry policy
// classifies these into retryable and terminal classes.
type APIError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("remote API error (status %d, reason %s): %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("remote API error (status %d): %s", e.StatusCode, e.Message)
}

// Well-known reason strings surfaced by the remote API.
const (
	ReasonRateLimit     = "rateLimitExceeded"
	ReasonUserRateLimit = "userRateLimitExceeded"
	ReasonQuotaExceeded = "quotaExceeded"
	ReasonDailyLimit    = "dailyLimitExceeded"
	ReasonNotFound      = "notFound"
	ReasonForbidden     = "forbidden"
)

// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"ytbatch/internal/services"
	"ytbatch/internal/shared"
)

// MustOpenDB opens an in-memory SQLite database with all migrations applied
// and closes it when the test finishes.
func MustOpenDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// MockExtractor is a test double for [services.Extractor] serving canned
// exports keyed by reference.
type MockExtractor struct {
	Playlists map[string]*services.PlaylistExport
	Err       error
}

func (m *MockExtractor) FetchPlaylist(ctx context.Context, ref string, useCache bool) (*services.PlaylistExport, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	export, ok := m.Playlists[ref]
	if !ok {
		return nil, &services.APIError{StatusCode: 404, Reason: services.ReasonNotFound, Message: ref}
	}
	return export, nil
}

// MockWriteClient is a test double for [services.WriteClient] that succeeds
// on every call and records nothing. Tests needing call inspection define
// their own fakes.
type MockWriteClient struct {
	NextRef string
	Err     error
}

func (m *MockWriteClient) CreatePlaylist(ctx context.Context, identity string, spec services.PlaylistSpec) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if m.NextRef != "" {
		return m.NextRef, nil
	}
	return "PL-mock", nil
}

func (m *MockWriteClient) UpdatePlaylist(ctx context.Context, identity, targetRef string, spec services.PlaylistSpec) error {
	return m.Err
}

func (m *MockWriteClient) InsertItems(ctx context.Context, identity, targetRef string, videoIDs []string) error {
	return m.Err
}

func (m *MockWriteClient) DeleteItems(ctx context.Context, identity, targetRef string, videoIDs []string) error {
	return m.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

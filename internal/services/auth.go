// Credential store backed by per-identity OAuth token files.
//
// Token acquisition happens out of band (the proxy's auth flow writes the
// token JSON); this store only loads tokens and hands out reusable handles.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/oauth2"
)

// FileCredentialStore implements [CredentialStore] over a map of identity
// name to OAuth token file path.
type FileCredentialStore struct {
	mu      sync.Mutex
	files   map[string]string
	sources map[string]oauth2.TokenSource
}

// NewFileCredentialStore creates a credential store from identity name →
// token file path mappings.
func NewFileCredentialStore(files map[string]string) *FileCredentialStore {
	return &FileCredentialStore{
		files:   files,
		sources: make(map[string]oauth2.TokenSource),
	}
}

// Credential returns a handle for the named identity, loading and caching
// its token source on first use.
func (s *FileCredentialStore) Credential(ctx context.Context, identityName string) (Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if src, ok := s.sources[identityName]; ok {
		return &tokenCredential{source: src}, nil
	}

	path, ok := s.files[identityName]
	if !ok {
		return nil, fmt.Errorf("no token file configured for identity %q", identityName)
	}

	token, err := loadToken(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load token for identity %q: %w", identityName, err)
	}

	src := oauth2.ReuseTokenSource(token, oauth2.StaticTokenSource(token))
	s.sources[identityName] = src
	return &tokenCredential{source: src}, nil
}

// tokenCredential adapts an [oauth2.TokenSource] to the opaque [Credential] handle.
type tokenCredential struct {
	source oauth2.TokenSource
}

func (c *tokenCredential) AuthHeader() (string, error) {
	token, err := c.source.Token()
	if err != nil {
		return "", fmt.Errorf("failed to obtain token: %w", err)
	}
	return token.Type() + " " + token.AccessToken, nil
}

// loadToken reads an OAuth token JSON file as written by the proxy auth flow.
func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("token file has no access_token")
	}

	return &token, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

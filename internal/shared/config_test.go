package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "ytbatch.db" {
			t.Errorf("expected database path ytbatch.db, got %s", config.Database.Path)
		}

		if config.Quota.DailyBudget != 10000 {
			t.Errorf("expected daily budget 10000, got %d", config.Quota.DailyBudget)
		}

		if config.Extractor.BaseURL != "http://localhost:8080" {
			t.Errorf("expected extractor URL http://localhost:8080, got %s", config.Extractor.BaseURL)
		}

		if len(config.Identities) != 2 {
			t.Fatalf("expected 2 example identities, got %d", len(config.Identities))
		}

		// Per-identity budget falls back to the shared default.
		if config.Identities[0].DailyBudget != 10000 {
			t.Errorf("expected identity budget 10000, got %d", config.Identities[0].DailyBudget)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig validation", func(t *testing.T) {
		tc := []struct {
			name    string
			content string
			wantErr error
		}{
			{
				name: "duplicate identity names",
				content: `
[[identity]]
name = "a"
group = "g"

[[identity]]
name = "a"
group = "g"
`,
				wantErr: ErrInvalidConfig,
			},
			{
				name: "identity without group",
				content: `
[[identity]]
name = "a"
`,
				wantErr: ErrInvalidConfig,
			},
			{
				name: "negative safety margin",
				content: `
[quota]
safety_margin = -1
`,
				wantErr: ErrInvalidConfig,
			},
			{
				name: "valid minimal config",
				content: `
[[identity]]
name = "a"
group = "g"
priority = 3
`,
				wantErr: nil,
			},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "config.toml")
				if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
					t.Fatalf("failed to write config: %v", err)
				}

				config, err := LoadConfig(path)
				if tt.wantErr != nil {
					if !errors.Is(err, tt.wantErr) {
						t.Errorf("LoadConfig() error = %v, want %v", err, tt.wantErr)
					}
					return
				}
				if err != nil {
					t.Fatalf("LoadConfig() unexpected error: %v", err)
				}
				if config.Identities[0].DailyBudget != 10000 {
					t.Errorf("identity budget default = %d, want 10000", config.Identities[0].DailyBudget)
				}
			})
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, ErrMissingConfig) {
			t.Errorf("LoadConfig() error = %v, want ErrMissingConfig", err)
		}
	})
}

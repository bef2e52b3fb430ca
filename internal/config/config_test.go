package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.ExcludeLines) != 0 {
		t.Errorf("DefaultConfig().ExcludeLines = %v, want empty", cfg.ExcludeLines)
	}
	if len(cfg.Omit) != 0 {
		t.Errorf("DefaultConfig().Omit = %v, want empty", cfg.Omit)
	}
	if len(cfg.Source) != 0 {
		t.Errorf("DefaultConfig().Source = %v, want empty", cfg.Source)
	}
	if !cfg.Branch {
		t.Error("DefaultConfig().Branch = false, want true")
	}
	if cfg.Workers != 0 {
		t.Errorf("DefaultConfig().Workers = %d, want 0", cfg.Workers)
	}
	if cfg.Verbose {
		t.Error("DefaultConfig().Verbose = true, want false")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         *Config
		wantErr     bool
		errContains string
	}{
		{
			name:    "defaults are valid",
			cfg:     DefaultConfig(),
			wantErr: false,
		},
		{
			name: "malformed exclude pattern is not a validation error",
			cfg: &Config{
				ExcludeLines: []string{"def .*(", "valid"},
			},
			wantErr: false,
		},
		{
			name:        "negative workers",
			cfg:         &Config{Workers: -1},
			wantErr:     true,
			errContains: "workers must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error containing %q, got nil", tt.errContains)
				} else if !contains(err.Error(), tt.errContains) {
					t.Errorf("Error = %q, should contain %q", err.Error(), tt.errContains)
				}
			} else {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name        string
		configYAML  string
		envVars     map[string]string
		checkCfg    func(*testing.T, *Config)
		wantErr     bool
		errContains string
	}{
		{
			name: "load valid config from file",
			configYAML: `
exclude_lines:
  - "if TYPE_CHECKING:"
  - "raise NotImplementedError"
omit:
  - "*/vendor/*"
source:
  - src
branch: false
workers: 4
verbose: true
`,
			checkCfg: func(t *testing.T, cfg *Config) {
				if len(cfg.ExcludeLines) != 2 || cfg.ExcludeLines[0] != "if TYPE_CHECKING:" {
					t.Errorf("ExcludeLines = %v, want two entries in file order", cfg.ExcludeLines)
				}
				if len(cfg.Omit) != 1 || cfg.Omit[0] != "*/vendor/*" {
					t.Errorf("Omit = %v, want [*/vendor/*]", cfg.Omit)
				}
				if len(cfg.Source) != 1 || cfg.Source[0] != "src" {
					t.Errorf("Source = %v, want [src]", cfg.Source)
				}
				if cfg.Branch {
					t.Error("Branch = true, want false (from file)")
				}
				if cfg.Workers != 4 {
					t.Errorf("Workers = %d, want 4", cfg.Workers)
				}
				if !cfg.Verbose {
					t.Error("Verbose = false, want true")
				}
			},
			wantErr: false,
		},
		{
			name: "path aliases",
			configYAML: `
paths:
  src:
    - /app/src
    - /build/lib
`,
			checkCfg: func(t *testing.T, cfg *Config) {
				got, ok := cfg.Paths["src"]
				if !ok || len(got) != 2 {
					t.Errorf("Paths[src] = %v, want two equivalents", got)
				}
			},
			wantErr: false,
		},
		{
			name: "env var overrides file values",
			configYAML: `
omit:
  - "*/file/*"
branch: true
`,
			envVars: map[string]string{
				"MINICOV_OMIT":   "*/env/*,*/other/*",
				"MINICOV_BRANCH": "false",
			},
			checkCfg: func(t *testing.T, cfg *Config) {
				if len(cfg.Omit) != 2 || cfg.Omit[0] != "*/env/*" {
					t.Errorf("Omit = %v, want env values", cfg.Omit)
				}
				if cfg.Branch {
					t.Error("Branch = true, want false (from env)")
				}
			},
			wantErr: false,
		},
		{
			name: "invalid yaml",
			configYAML: `
branch: true
  invalid: indent
`,
			wantErr:     true,
			errContains: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.configYAML), 0644)
			if err != nil {
				t.Fatalf("Failed to write config file: %v", err)
			}

			cfg, err := LoadFromFile(configPath)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error containing %q, got nil", tt.errContains)
				} else if !contains(err.Error(), tt.errContains) {
					t.Errorf("Error = %q, should contain %q", err.Error(), tt.errContains)
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if tt.checkCfg != nil {
				tt.checkCfg(t, cfg)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	envKeys := []string{
		"MINICOV_EXCLUDE_LINES",
		"MINICOV_OMIT",
		"MINICOV_INCLUDE",
		"MINICOV_SOURCE",
		"MINICOV_BRANCH",
		"MINICOV_WORKERS",
		"MINICOV_VERBOSE",
	}

	tests := []struct {
		name    string
		envVars map[string]string
		check   func(*testing.T, *Config)
	}{
		{
			name: "override exclude patterns",
			envVars: map[string]string{
				"MINICOV_EXCLUDE_LINES": "pattern one, pattern two",
			},
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.ExcludeLines) != 2 {
					t.Fatalf("ExcludeLines = %v, want 2 entries", cfg.ExcludeLines)
				}
				if cfg.ExcludeLines[0] != "pattern one" || cfg.ExcludeLines[1] != "pattern two" {
					t.Errorf("ExcludeLines = %v, want trimmed entries in order", cfg.ExcludeLines)
				}
			},
		},
		{
			name: "override workers",
			envVars: map[string]string{
				"MINICOV_WORKERS": "8",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Workers != 8 {
					t.Errorf("Workers = %d, want 8", cfg.Workers)
				}
			},
		},
		{
			name: "invalid workers ignored",
			envVars: map[string]string{
				"MINICOV_WORKERS": "not-an-int",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Workers != 0 {
					t.Errorf("Workers = %d, want 0 (default)", cfg.Workers)
				}
			},
		},
		{
			name: "negative workers ignored",
			envVars: map[string]string{
				"MINICOV_WORKERS": "-4",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.Workers != 0 {
					t.Errorf("Workers = %d, want 0 (default)", cfg.Workers)
				}
			},
		},
		{
			name: "override branch with various true values",
			envVars: map[string]string{
				"MINICOV_BRANCH": "yes",
			},
			check: func(t *testing.T, cfg *Config) {
				if !cfg.Branch {
					t.Error("Branch = false, want true (from 'yes')")
				}
			},
		},
		{
			name: "override verbose with 1",
			envVars: map[string]string{
				"MINICOV_VERBOSE": "1",
			},
			check: func(t *testing.T, cfg *Config) {
				if !cfg.Verbose {
					t.Error("Verbose = false, want true (from '1')")
				}
			},
		},
		{
			name: "newline separated source roots",
			envVars: map[string]string{
				"MINICOV_SOURCE": "src\nlib",
			},
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.Source) != 2 || cfg.Source[0] != "src" || cfg.Source[1] != "lib" {
					t.Errorf("Source = %v, want [src lib]", cfg.Source)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range envKeys {
				os.Unsetenv(k)
			}
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			defer func() {
				for _, k := range envKeys {
					os.Unsetenv(k)
				}
			}()

			cfg := DefaultConfig()
			applyEnvOverrides(cfg)

			tt.check(t, cfg)
		})
	}
}

func TestConfigSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "dirs", "config.yaml")

	cfg := &Config{
		ExcludeLines: []string{"if DEBUG:"},
		Omit:         []string{"*/tests/*"},
		Source:       []string{"src"},
		Branch:       true,
		Workers:      2,
	}

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatalf("Config file was not created at %s", configPath)
	}

	loadedCfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}

	if len(loadedCfg.ExcludeLines) != 1 || loadedCfg.ExcludeLines[0] != "if DEBUG:" {
		t.Errorf("ExcludeLines mismatch: got %v, want %v", loadedCfg.ExcludeLines, cfg.ExcludeLines)
	}
	if len(loadedCfg.Omit) != 1 || loadedCfg.Omit[0] != "*/tests/*" {
		t.Errorf("Omit mismatch: got %v, want %v", loadedCfg.Omit, cfg.Omit)
	}
	if loadedCfg.Workers != cfg.Workers {
		t.Errorf("Workers mismatch: got %d, want %d", loadedCfg.Workers, cfg.Workers)
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{"a, b , c", []string{"a", "b", "c"}},
		{"a\nb", []string{"a", "b"}},
		{",,", nil},
		{"", nil},
		{"single", []string{"single"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseList(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("parseList(%q) = %v, want %v", tt.input, result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("parseList(%q)[%d] = %q, want %q", tt.input, i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"0", 0},
		{"100", 100},
		{"invalid", 0},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseInt(tt.input)
			if result != tt.expected {
				t.Errorf("parseInt(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

// Helper functions

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(s) > 0 && containsAt(s, substr))
}

func containsAt(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

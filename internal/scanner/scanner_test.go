package scanner

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		fullPath := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}
}

func TestScannerScan(t *testing.T) {
	tmpDir := t.TempDir()

	writeTree(t, tmpDir, map[string]string{
		"app.py":                      "print('hello')",
		"pkg/util.py":                 "x = 1",
		"pkg/stub.pyi":                "x: int",
		"README.md":                   "# Test",
		"main.go":                     "package main",
		".hidden/secret.py":           "hidden = True",
		"__pycache__/app.cpython.pyc": "binary",
		".git/hook.py":                "pass",
		"venv/lib/site.py":            "pass",
	})

	scanner := New(DefaultOptions())
	results, err := scanner.Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	foundFiles := make(map[string]bool)
	for _, f := range results {
		foundFiles[f.Path] = true
	}

	for _, expected := range []string{"app.py", "pkg/util.py", "pkg/stub.pyi"} {
		if !foundFiles[expected] {
			t.Errorf("Expected to find %s, but it wasn't found", expected)
		}
	}

	excluded := []string{
		"README.md", "main.go", ".hidden/secret.py",
		"__pycache__/app.cpython.pyc", ".git/hook.py", "venv/lib/site.py",
	}
	for _, path := range excluded {
		if foundFiles[path] {
			t.Errorf("Expected %s to be excluded, but it was found", path)
		}
	}
}

func TestScannerWithIgnoreFile(t *testing.T) {
	tmpDir := t.TempDir()

	ignoreContent := `# Generated code
*_pb2.py
migrations/
conf.py
`
	if err := os.WriteFile(filepath.Join(tmpDir, ".minicovignore"), []byte(ignoreContent), 0644); err != nil {
		t.Fatalf("Failed to create .minicovignore: %v", err)
	}

	writeTree(t, tmpDir, map[string]string{
		"app.py":                  "pass",
		"api_pb2.py":              "pass",
		"migrations/0001_init.py": "pass",
		"conf.py":                 "pass",
		"docs/conf.py":            "pass",
	})

	scanner := New(DefaultOptions())
	results, err := scanner.Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	foundFiles := make(map[string]bool)
	for _, f := range results {
		foundFiles[f.Path] = true
	}

	if !foundFiles["app.py"] {
		t.Error("Expected to find app.py")
	}
	for _, path := range []string{"api_pb2.py", "migrations/0001_init.py", "conf.py", "docs/conf.py"} {
		if foundFiles[path] {
			t.Errorf("Expected %s to be ignored, but it was found", path)
		}
	}
}

func TestScannerExtraPatterns(t *testing.T) {
	tmpDir := t.TempDir()

	writeTree(t, tmpDir, map[string]string{
		"app.py":           "pass",
		"tests/test_a.py":  "pass",
		"tests/helpers.py": "pass",
	})

	opts := DefaultOptions()
	opts.Patterns = ParsePatterns([]string{"*/test_*.py"})

	results, err := New(opts).Scan(tmpDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	foundFiles := make(map[string]bool)
	for _, f := range results {
		foundFiles[f.Path] = true
	}

	if !foundFiles["app.py"] || !foundFiles["tests/helpers.py"] {
		t.Errorf("Expected app.py and tests/helpers.py, got %v", foundFiles)
	}
	if foundFiles["tests/test_a.py"] {
		t.Error("Expected tests/test_a.py to be excluded by extra pattern")
	}
}

func TestPatternMatch(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"*.py", "app.py", true},
		{"*.py", "pkg/app.py", true},
		{"*/vendor/*", "a/vendor/b.py", true},
		{"*/vendor/*", "vendor/b.py", false},
		{"vendor/*", "vendor/b.py", true},
		{"vendor/*", "a/vendor/b.py", false},
		{"build/", "build/out.py", true},
		{"build/", "build", true},
		{"build/", "rebuild/out.py", false},
		{"secret.py", "deep/nested/secret.py", true},
		{"test_?.py", "test_a.py", true},
		{"test_?.py", "test_ab.py", false},
		{"test_[ab].py", "test_a.py", true},
		{"test_[ab].py", "test_c.py", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.path, func(t *testing.T) {
			p := ParsePattern(tt.pattern)
			if got := p.Match(tt.path); got != tt.want {
				t.Errorf("ParsePattern(%q).Match(%q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
			}
		})
	}
}

func TestMatchesNegation(t *testing.T) {
	patterns := ParsePatterns([]string{
		"tests/*",
		"!tests/conftest.py",
	})

	if !Matches("tests/test_a.py", patterns) {
		t.Error("tests/test_a.py should be excluded")
	}
	if Matches("tests/conftest.py", patterns) {
		t.Error("tests/conftest.py should be kept by the negation")
	}
}

package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliy-khomyn/minicov/internal/config"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("pass\n"), 0o644))
}

func TestCanonicalize_CollapsesSpellings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.py"))

	r := NewResolver(nil)
	plain := r.Canonicalize(filepath.Join(dir, "app.py"))

	assert.Equal(t, plain, r.Canonicalize(filepath.Join(dir, ".", "app.py")))
	assert.Equal(t, plain, r.Canonicalize(filepath.Join(dir, "sub", "..", "app.py")))
}

func TestCanonicalize_Symlink(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real")
	writeFile(t, filepath.Join(real, "app.py"))

	link := filepath.Join(dir, "link")
	if err := os.Symlink(real, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	r := NewResolver(nil)
	assert.Equal(t,
		r.Canonicalize(filepath.Join(real, "app.py")),
		r.Canonicalize(filepath.Join(link, "app.py")))
}

func TestCanonicalize_MissingFileUsesDirectory(t *testing.T) {
	dir := t.TempDir()

	r := NewResolver(nil)
	got := r.Canonicalize(filepath.Join(dir, "ghost.py"))

	assert.Equal(t, r.Canonicalize(dir)+"/ghost.py", got)
}

func TestResolve_AliasGroups(t *testing.T) {
	r := NewResolver(&config.Config{
		Paths: map[string][]string{
			"/local/project/src": {
				"/remote/deploy/src",
				"/var/jenkins/workspace/src",
			},
		},
	})

	assert.Equal(t, "/local/project/src/app/models.py",
		r.Resolve("/remote/deploy/src/app/models.py"))
	assert.Equal(t, "/local/project/src/app/models.py",
		r.Resolve("/var/jenkins/workspace/src/app/models.py"))
}

func TestResolve_FirstGroupWins(t *testing.T) {
	r := NewResolver(&config.Config{
		Paths: map[string][]string{
			"/first":  {"/shared/path"},
			"/second": {"/shared"},
		},
	})

	assert.Equal(t, "/first/x.py", r.Resolve("/shared/path/x.py"))
	assert.Equal(t, "/second/other.py", r.Resolve("/shared/other.py"))
}

func TestResolve_PrefixStopsAtSeparator(t *testing.T) {
	r := NewResolver(&config.Config{
		Paths: map[string][]string{
			"/local/app": {"/opt/app"},
		},
	})

	assert.Equal(t, "/local/app/main.py", r.Resolve("/opt/app/main.py"))
	assert.Equal(t, "/opt/application/main.py", r.Resolve("/opt/application/main.py"))
}

func TestResolve_WithoutAliasesCanonicalizes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.py"))

	r := NewResolver(nil)
	assert.Equal(t, r.Canonicalize(filepath.Join(dir, "app.py")),
		r.Resolve(filepath.Join(dir, "sub", "..", "app.py")))
}

func TestShouldTrace_SourceRoots(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	writeFile(t, filepath.Join(root, "app.py"))
	writeFile(t, filepath.Join(other, "elsewhere.py"))

	r := NewResolver(&config.Config{Source: []string{root}})

	assert.True(t, r.ShouldTrace(filepath.Join(root, "app.py")))
	assert.False(t, r.ShouldTrace(filepath.Join(other, "elsewhere.py")))
}

func TestShouldTrace_OmitPatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "app.py"))
	writeFile(t, filepath.Join(root, "tests", "test_app.py"))

	r := NewResolver(&config.Config{
		Source: []string{root},
		Omit:   []string{"tests/*"},
	})

	assert.True(t, r.ShouldTrace(filepath.Join(root, "src", "app.py")))
	assert.False(t, r.ShouldTrace(filepath.Join(root, "tests", "test_app.py")))
}

func TestShouldTrace_IncludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "app.py"))
	writeFile(t, filepath.Join(root, "scripts", "run.py"))

	r := NewResolver(&config.Config{
		Source:  []string{root},
		Include: []string{"src/"},
	})

	assert.True(t, r.ShouldTrace(filepath.Join(root, "src", "app.py")))
	assert.False(t, r.ShouldTrace(filepath.Join(root, "scripts", "run.py")))
}

func TestShouldTrace_OmitBeatsInclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "generated.py"))

	r := NewResolver(&config.Config{
		Source:  []string{root},
		Omit:    []string{"*/generated.py"},
		Include: []string{"src/"},
	})

	assert.False(t, r.ShouldTrace(filepath.Join(root, "src", "generated.py")))
}

func TestShouldTrace_Unconfigured(t *testing.T) {
	r := NewResolver(nil)
	assert.True(t, r.ShouldTrace("/anywhere/at/all.py"))
}

func TestRoots_Canonicalized(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(&config.Config{Source: []string{root + string(filepath.Separator) + "."}})

	roots := r.Roots()
	require.Len(t, roots, 1)
	assert.Equal(t, r.Canonicalize(root), roots[0])
}

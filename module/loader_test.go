package module

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapResolver resolves import keys against an in-memory source map,
// used by these tests instead of hetu/resolver.go's filesystem lookup.
type mapResolver struct {
	sources map[string]string
}

func (r *mapResolver) Resolve(key, currentDir string) (string, string, error) {
	src, ok := r.sources[key]
	if !ok {
		return "", "", fmt.Errorf("no source registered for %q", key)
	}
	return key, src, nil
}

func TestParseToCompilationSingleModule(t *testing.T) {
	loader := NewLoader(&mapResolver{})
	bundle, err := loader.ParseToCompilation("var x = 1;", "main.ht")
	require.NoError(t, err)
	assert.Empty(t, bundle.Errors)
	assert.Contains(t, bundle.Modules, "main.ht")
	assert.Equal(t, "main.ht", bundle.EntryKey)
}

func TestParseToCompilationFollowsImports(t *testing.T) {
	resolver := &mapResolver{sources: map[string]string{
		"util.ht": "var helper = 1;",
	}}
	loader := NewLoader(resolver)
	bundle, err := loader.ParseToCompilation(`import "util.ht";`, "main.ht")
	require.NoError(t, err)
	assert.Empty(t, bundle.Errors)
	assert.Contains(t, bundle.Modules, "main.ht")
	assert.Contains(t, bundle.Modules, "util.ht")
}

func TestParseToCompilationRecordsUnresolvedImport(t *testing.T) {
	loader := NewLoader(&mapResolver{})
	bundle, err := loader.ParseToCompilation(`import "missing.ht";`, "main.ht")
	require.NoError(t, err)
	assert.NotEmpty(t, bundle.Errors)
}

func TestParseToCompilationCachesDiamondImport(t *testing.T) {
	resolver := &mapResolver{sources: map[string]string{
		"a.ht":      `import "shared.ht";`,
		"b.ht":      `import "shared.ht";`,
		"shared.ht": "var once = 1;",
	}}
	loader := NewLoader(resolver)
	bundle, err := loader.ParseToCompilation(`
		import "a.ht";
		import "b.ht";
	`, "main.ht")
	require.NoError(t, err)
	assert.Empty(t, bundle.Errors)
	assert.Len(t, bundle.Modules, 4)
}

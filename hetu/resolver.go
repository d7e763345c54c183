package hetu

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// FileResolver is the default module.SourceResolver: it looks for an
// import key first relative to the importing module's own directory
// (the common case, `import "utils.ht"` sitting next to the importer),
// then falls back to a doublestar glob search rooted at each
// configured include directory, so a host can register one or more
// library directories and let a script import anything reachable
// under them without spelling out the full relative path.
type FileResolver struct {
	Roots []string
}

// NewFileResolver returns a FileResolver searching roots, in order,
// whenever a relative lookup against the importing module's directory
// misses.
func NewFileResolver(roots ...string) *FileResolver {
	return &FileResolver{Roots: roots}
}

// Resolve implements module.SourceResolver.
func (r *FileResolver) Resolve(key, currentDir string) (string, string, error) {
	if candidate := filepath.Join(currentDir, key); fileExists(candidate) {
		return readSource(candidate)
	}

	for _, root := range r.Roots {
		matches, err := doublestar.Glob(os.DirFS(root), "**/"+filepath.ToSlash(key))
		if err != nil {
			return "", "", err
		}
		if len(matches) == 0 {
			continue
		}
		return readSource(filepath.Join(root, matches[0]))
	}

	return "", "", fmt.Errorf("module %q not found next to %q or under any configured include directory", key, currentDir)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func readSource(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return abs, string(data), nil
}

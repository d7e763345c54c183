// Package module implements the loader spec.md's §4.3 describes: one
// entry point, parseToCompilation, that parses a source string and
// recursively follows its import declarations, producing a
// CompilationBundle of every module transitively reached.
package module

import (
	"path/filepath"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/polotto/hetu-script/ast"
	"github.com/polotto/hetu-script/compiler"
	"github.com/polotto/hetu-script/hetuerrors"
	"github.com/polotto/hetu-script/lexer"
	"github.com/polotto/hetu-script/parser"
)

// SourceResolver resolves an import key relative to the module that
// imported it into an absolute key plus the source text found there.
// hetu/resolver.go supplies the default file-based implementation;
// embedding hosts may substitute their own (an in-memory map, a network
// fetch, a virtual filesystem) the way spec.md leaves the resolver an
// external collaborator.
type SourceResolver interface {
	Resolve(key, currentDir string) (absoluteKey string, source string, err error)
}

// CompilationBundle is everything produced by one ParseToCompilation
// call: every module transitively reached, keyed by absolute module
// key, plus any errors accumulated along the way. A bundle with errors
// is still usable - spec.md's propagation policy has the frontend
// accumulate and continue rather than abort on the first fault.
type CompilationBundle struct {
	ID       string
	EntryKey string
	Modules  map[string]*compiler.Module
	Errors   []error
}

// Loader parses and compiles modules, caching each by absolute key so
// a diamond-shaped import graph is only ever compiled once.
type Loader struct {
	Resolver SourceResolver
	cache    map[string]*compiler.Module
}

// NewLoader returns a Loader backed by resolver for import resolution.
func NewLoader(resolver SourceResolver) *Loader {
	return &Loader{Resolver: resolver, cache: make(map[string]*compiler.Module)}
}

// ParseToCompilation parses entrySource under libraryName (or a
// synthetic "<entry>" key if empty) and recursively resolves every
// import it reaches, returning the resulting bundle.
func (l *Loader) ParseToCompilation(entrySource, libraryName string) (*CompilationBundle, error) {
	entryKey := libraryName
	if entryKey == "" {
		entryKey = "<entry>"
	}

	bundle := &CompilationBundle{
		ID:      uuid.NewString(),
		Modules: make(map[string]*compiler.Module),
	}
	l.loadModule(entryKey, entryKey, entrySource, bundle, parser.KindScript)
	bundle.EntryKey = entryKey
	return bundle, nil
}

// loadModule parses and compiles one module, recording it (and any
// errors) into bundle, then recurses into its import declarations. It
// never returns an error itself - faults are accumulated on the bundle
// so a single broken import doesn't abort compilation of everything
// else, matching spec.md's "emits ExternalError and continues" policy.
// kind distinguishes the entry source (parser.KindScript) from a
// transitively imported module (parser.KindModule), the source-kind
// split spec.md's data model describes.
func (l *Loader) loadModule(key, currentDir, source string, bundle *CompilationBundle, kind parser.SourceKind) {
	if mod, ok := l.cache[key]; ok {
		log.Debugf("module: cache hit for %q", key)
		bundle.Modules[key] = mod
		return
	}
	log.Debugf("module: parsing %q (%d bytes)", key, len(source))

	lx := lexer.New(source)
	tokens, lexErr := lx.Scan()
	if lexErr != nil {
		bundle.Errors = append(bundle.Errors, lexErr)
		return
	}

	p := parser.MakeOfKind(tokens, key, kind)
	stmts, errs := p.Parse()
	bundle.Errors = append(bundle.Errors, errs...)

	c := compiler.New(key)
	mod, compileErr := c.CompileModule(stmts)
	if compileErr != nil {
		bundle.Errors = append(bundle.Errors, compileErr)
		return
	}

	l.cache[key] = mod
	bundle.Modules[key] = mod

	for _, stmt := range stmts {
		imp, ok := stmt.(ast.ImportStmt)
		if !ok {
			continue
		}
		importKey, _ := imp.Key.Literal.(string)
		absKey, importedSrc, err := l.Resolver.Resolve(importKey, filepath.Dir(key))
		if err != nil {
			bundle.Errors = append(bundle.Errors, hetuerrors.External(
				hetuerrors.CodeSourceProviderError, key, imp.Key.Line, imp.Key.Column,
				"cannot resolve import "+importKey+": "+err.Error(),
			))
			continue
		}
		l.loadModule(absKey, absKey, importedSrc, bundle, parser.KindModule)
	}
}

// Package hetu is the embedding surface: the one entry point an
// embedding host imports to register bindings, evaluate source, and
// invoke script functions, tying together the lexer/parser/compiler
// frontend, the module loader, the VM, and the external-binding
// engine behind the four calls spec.md's embedding API names (init,
// eval, compile/loadBytecode, invoke).
package hetu

import (
	"fmt"
	"path/filepath"

	"github.com/polotto/hetu-script/binding"
	"github.com/polotto/hetu-script/compiler"
	"github.com/polotto/hetu-script/hetuerrors"
	"github.com/polotto/hetu-script/internal/logging"
	"github.com/polotto/hetu-script/internal/modcache"
	"github.com/polotto/hetu-script/module"
	"github.com/polotto/hetu-script/value"
	"github.com/polotto/hetu-script/vm"
)

// Engine is one embeddable interpreter instance: its own VM state,
// module loader, and binding registry. Nothing is shared across
// Engine values, matching spec.md §5's "the constant table, bytecode
// buffer, and namespace trees are owned exclusively by one interpreter
// instance".
type Engine struct {
	loader  *module.Loader
	machine *vm.VM
	binding *binding.Engine
	cache   *modcache.Cache
	log     logging.Logger
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithResolver overrides the default FileResolver (rooted at the
// current working directory) with a custom module.SourceResolver - an
// in-memory map of sources, a network fetch, a virtual filesystem.
func WithResolver(resolver module.SourceResolver) Option {
	return func(e *Engine) { e.loader = module.NewLoader(resolver) }
}

// WithIncludePaths configures the default FileResolver's search roots
// for bare (non-relative) import keys.
func WithIncludePaths(roots ...string) Option {
	return func(e *Engine) { e.loader = module.NewLoader(NewFileResolver(roots...)) }
}

// WithModuleCache attaches a persistent compiled-bytecode cache so
// repeated evaluations of the same library across process restarts
// can skip the frontend and compiler on a hit.
func WithModuleCache(cache *modcache.Cache) Option {
	return func(e *Engine) { e.cache = cache }
}

// New constructs a ready-to-use Engine. Call Init afterward to
// register host bindings before evaluating any source.
func New(opts ...Option) *Engine {
	e := &Engine{
		machine: vm.New(),
		binding: binding.NewEngine(),
		log:     logging.For("hetu"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.loader == nil {
		e.loader = module.NewLoader(NewFileResolver("."))
	}
	e.machine.Binding = e.binding
	e.machine.Importer = e.resolveImport
	return e
}

// Init registers the host's external classes and functions with the
// engine's binding registry, mirroring spec.md's
// `init(externalClasses, externalFunctions, externalFunctionTypedefs)`.
// externalFunctionTypedefs is advisory type metadata the VM never
// consults at runtime (spec.md §9's typeIs/typeAs opcodes only check
// values, not declared external-function signatures); it is accepted
// here purely so a host's typedef table has somewhere to live
// alongside the functions it describes.
func (e *Engine) Init(
	externalClasses map[string]binding.ExternalClass,
	externalFunctions map[string]value.ExternalFunc,
	externalFunctionTypedefs map[string]*value.TypeExpr,
) error {
	for name, class := range externalClasses {
		e.binding.RegisterClass(name, class)
	}
	for name, fn := range externalFunctions {
		e.binding.RegisterFunction(name, fn)
	}
	_ = externalFunctionTypedefs
	return nil
}

// Globals exposes the engine's top-level namespace, letting a host
// install plain values (not going through the external-class/function
// registry) before or after an Eval.
func (e *Engine) Globals() *value.Namespace { return e.machine.Globals() }

// EvalOptions configures a single Eval call: which (if any) top-level
// function to invoke once the module has finished running, and what
// to call it with.
type EvalOptions struct {
	InvokeFunc     string
	PositionalArgs []any
	NamedArgs      map[string]any
	TypeArgs       []*value.TypeExpr
}

// entryCacheKey is the fixed modcache key an Engine's top-level Eval
// and Compile calls share. Imported modules are never stored in the
// modcache: resolveImport does not consult it.
const entryCacheKey = "<entry>"

// Eval parses, compiles, and runs source (plus every module it
// transitively imports), then optionally invokes a named top-level
// function, mirroring spec.md's `eval(source, {invokeFunc?,
// positionalArgs?, namedArgs?, typeArgs?}) -> value`.
func (e *Engine) Eval(source string, opts EvalOptions) (any, error) {
	entry, err := e.compileEntry(source)
	if err != nil {
		return nil, err
	}

	if _, err := e.machine.Run(entry); err != nil {
		return nil, err
	}

	if opts.InvokeFunc == "" {
		return nil, nil
	}
	return e.Invoke(opts.InvokeFunc, opts.PositionalArgs, opts.NamedArgs)
}

// Compile parses and compiles source (without running it) and returns
// a serialized bytecode image a host can persist and later hand to
// LoadBytecode, mirroring spec.md's `compile(source) -> bytes`. The
// loader also resolves and compiles the entry's imports here (so their
// errors are reported), but the image holds the entry module only;
// running it resolves the imports again through OP_IMPORT.
func (e *Engine) Compile(source string) ([]byte, error) {
	entry, err := e.compileEntry(source)
	if err != nil {
		return nil, err
	}
	return encodeModule(entry)
}

// compileEntry is the shared Eval/Compile frontend step: a modcache
// hit (when a cache is configured) skips lexing, parsing, and
// compiling entirely; a miss runs the full frontend and, on success,
// populates the cache for next time.
func (e *Engine) compileEntry(source string) (*compiler.Module, error) {
	hash := modcache.ContentHash(source)
	if e.cache != nil {
		if mod, ok, err := e.cache.Get(entryCacheKey, hash); err != nil {
			return nil, err
		} else if ok {
			e.log.Debugf("hetu: modcache hit for entry module (%d bytes)", len(source))
			return mod, nil
		}
	}

	bundle, err := e.loader.ParseToCompilation(source, "")
	if err != nil {
		return nil, err
	}
	if len(bundle.Errors) > 0 {
		return nil, aggregateError(bundle.Errors)
	}

	entry, ok := bundle.Modules[bundle.EntryKey]
	if !ok {
		return nil, fmt.Errorf("module loader produced no entry module for key %q", bundle.EntryKey)
	}

	if e.cache != nil {
		if err := e.cache.Put(entryCacheKey, hash, entry); err != nil {
			e.log.Warnf("hetu: failed to persist compiled entry module to modcache: %v", err)
		}
	}
	return entry, nil
}

// LoadBytecode decodes a bytecode image produced by Compile and runs
// it, mirroring spec.md's `loadBytecode(bytes)`. The decoded module is
// registered with the VM exactly as a freshly compiled one would be,
// so a subsequent Invoke can reach its top-level functions.
func (e *Engine) LoadBytecode(data []byte) error {
	mod, err := decodeModule(data)
	if err != nil {
		return err
	}
	_, err = e.machine.Run(mod)
	return err
}

// Invoke calls a top-level function previously defined by Eval or
// LoadBytecode by name, mirroring spec.md's `invoke(name, positionalArgs,
// namedArgs) -> value`.
func (e *Engine) Invoke(name string, positionalArgs []any, namedArgs map[string]any) (any, error) {
	decl, _, ok := e.machine.Globals().Lookup(name)
	if !ok {
		return nil, hetuerrors.Runtime(hetuerrors.CodeUndefinedVariable, "<host>", 0, 0, fmt.Sprintf("no top-level function named %q", name))
	}
	return e.machine.Call(decl.Value, positionalArgs, namedArgs)
}

// resolveImport backs vm.VM.Importer: it asks the loader to resolve
// and (if not already cached) compile the module key names relative
// to fromModuleKey, runs it into a fresh namespace, and returns that
// namespace as the set of bindings OP_IMPORT copies into the
// importing module's scope.
func (e *Engine) resolveImport(key, fromModuleKey string) (*value.Namespace, error) {
	absKey, source, err := e.loader.Resolver.Resolve(key, dirOf(fromModuleKey))
	if err != nil {
		return nil, hetuerrors.External(hetuerrors.CodeSourceProviderError, fromModuleKey, 0, 0, "cannot resolve import "+key+": "+err.Error())
	}

	bundle, err := e.loader.ParseToCompilation(source, absKey)
	if err != nil {
		return nil, err
	}
	if len(bundle.Errors) > 0 {
		return nil, aggregateError(bundle.Errors)
	}

	mod, ok := bundle.Modules[absKey]
	if !ok {
		return nil, fmt.Errorf("module loader produced no module for import %q", key)
	}

	ns := value.NewNamespace(nil)
	if _, err := e.machine.RunModuleInto(mod, ns); err != nil {
		return nil, err
	}
	return ns, nil
}

func aggregateError(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := fmt.Sprintf("%d errors during compilation:", len(errs))
	for _, err := range errs {
		msg += "\n  " + err.Error()
	}
	return fmt.Errorf("%s", msg)
}

func dirOf(key string) string {
	if key == "" {
		return "."
	}
	return filepath.Dir(key)
}

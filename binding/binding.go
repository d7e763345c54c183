// Package binding implements the external binding surface spec.md §4.6
// describes: the interfaces a host registers Go-backed classes and
// functions through, and the Engine that stores them by their
// script-visible name so the VM's member-resolution and call protocol
// can reach them.
package binding

import (
	"fmt"

	"github.com/polotto/hetu-script/value"
)

// ExternalClass is a host-registered class: its static surface (bare
// identifiers, named constructors, namespaced members) and its instance
// surface (reads against a *value.Instance the VM constructed for it).
// MemberSet/InstanceMemberSet are optional - a class exposing only
// read-only statics or instance members doesn't need to implement
// MemberSetter/InstanceMemberSetter at all.
type ExternalClass interface {
	MemberGet(name string) (any, bool)
	InstanceMemberGet(instance any, name string) (any, bool)
}

// MemberSetter is the optional write half of ExternalClass's static
// surface.
type MemberSetter interface {
	MemberSet(name string, v any) (bool, error)
}

// InstanceMemberSetter is the optional write half of ExternalClass's
// instance surface.
type InstanceMemberSetter interface {
	InstanceMemberSet(instance any, name string, v any) (bool, error)
}

// Caller lets a wrapped external function call back into script code -
// the counterpart of a host invoking a script callback it was handed.
// *vm.VM satisfies this via its exported Call method.
type Caller interface {
	Call(callee any, args []any, named map[string]any) (any, error)
}

// Engine is the by-name registry spec.md's binding surface describes:
// every host-registered class and free function, looked up by the
// script-visible identifier the VM's memberGet/call dispatch already
// resolves names through.
type Engine struct {
	classes   map[string]ExternalClass
	functions map[string]value.ExternalFunc
}

// NewEngine returns an empty registry.
func NewEngine() *Engine {
	return &Engine{
		classes:   make(map[string]ExternalClass),
		functions: make(map[string]value.ExternalFunc),
	}
}

// RegisterClass installs class under name, overwriting any previous
// registration - re-Init-ing a host with a revised binding set is
// expected to replace, not accumulate.
func (e *Engine) RegisterClass(name string, class ExternalClass) {
	e.classes[name] = class
}

// RegisterFunction installs fn under name. Functions registered as
// `ClassId.member` (the namespaced form spec.md allows) are stored
// verbatim under that compound key; the caller is responsible for
// formatting it that way.
func (e *Engine) RegisterFunction(name string, fn value.ExternalFunc) {
	e.functions[name] = fn
}

// FetchExternalClass looks up a previously registered class by name.
func (e *Engine) FetchExternalClass(name string) (ExternalClass, bool) {
	c, ok := e.classes[name]
	return c, ok
}

// FetchExternalFunction looks up a previously registered function by
// name.
func (e *Engine) FetchExternalFunction(name string) (value.ExternalFunc, bool) {
	fn, ok := e.functions[name]
	return fn, ok
}

// UnwrapExternalFunctionType returns a host-ready callable wrapping a
// script-defined value.Function, letting host code written against
// the binding surface invoke a script callback it was handed (e.g. a
// function value passed as an argument to a registered function)
// without reaching into the vm package directly.
func UnwrapExternalFunctionType(caller Caller, fn *value.Function) func(args []any, named map[string]any) (any, error) {
	return func(args []any, named map[string]any) (any, error) {
		return caller.Call(fn, args, named)
	}
}

// MemberGet resolves a static/constructor/namespaced member read on a
// registered external class, the dispatch the VM's memberGet falls
// back to when a value carries no script-defined Class of its own.
func (e *Engine) MemberGet(className, member string) (any, error) {
	class, ok := e.FetchExternalClass(className)
	if !ok {
		return nil, fmt.Errorf("no external class registered as %q", className)
	}
	v, ok := class.MemberGet(member)
	if !ok {
		return nil, fmt.Errorf("external class %q has no member %q", className, member)
	}
	return v, nil
}

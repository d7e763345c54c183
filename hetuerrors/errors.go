// Package hetuerrors defines the unified error taxonomy shared by every
// pipeline stage (lexer, parser, compiler, module loader, VM). A single
// Error type crosses package boundaries so a VM stack trace can
// describe frames that originated during parsing or compilation just
// as uniformly as frames raised at runtime.
//
// This collapses what the original prototype kept as one ad-hoc error
// struct per package (a SyntaxError in the parser, a RuntimeError in
// the interpreter, a SemanticError/DeveloperError pair in the
// compiler) into one taxonomy, because a trace that can only describe
// its own package's errors can't be handed back to a host across a
// single Eval call.
package hetuerrors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Kind classifies the general nature of an Error.
type Kind int

const (
	KindTodo Kind = iota
	KindHint
	KindLint
	KindSyntacticError
	KindStaticTypeWarning
	KindStaticWarning
	KindCompileTimeError
	KindRuntimeError
	KindExternalError
)

func (k Kind) String() string {
	switch k {
	case KindTodo:
		return "todo"
	case KindHint:
		return "hint"
	case KindLint:
		return "lint"
	case KindSyntacticError:
		return "syntacticError"
	case KindStaticTypeWarning:
		return "staticTypeWarning"
	case KindStaticWarning:
		return "staticWarning"
	case KindCompileTimeError:
		return "compileTimeError"
	case KindRuntimeError:
		return "runtimeError"
	case KindExternalError:
		return "externalError"
	default:
		return "unknown"
	}
}

// Code identifies a specific error condition. Many Codes map onto the
// same Kind (e.g. both an unclosed string and an unexpected token are
// KindSyntacticError).
type Code string

const (
	CodeUnexpectedToken      Code = "unexpectedToken"
	CodeUnclosedString       Code = "unclosedString"
	CodeInvalidNumber        Code = "invalidNumber"
	CodeInvalidAssignTarget  Code = "invalidAssignTarget"
	CodeUndefinedVariable    Code = "undefinedVariable"
	CodeUndefinedMember      Code = "undefinedMember"
	CodeArityMismatch        Code = "arityMismatch"
	CodeDuplicateDeclaration Code = "duplicateDeclaration"
	CodeNotCallable          Code = "notCallable"
	CodeModuleNotFound       Code = "moduleNotFound"
	CodeImportCycle          Code = "importCycle"
	CodeBadBytecode          Code = "badBytecode"
	CodeTypeMismatch         Code = "typeMismatch"
	CodeDivisionByZero       Code = "divisionByZero"
	CodeStackOverflow        Code = "stackOverflow"
	CodeExternalBinding      Code = "externalBinding"
	CodeSourceProviderError  Code = "sourceProviderError"
	CodeInvalidReturn        Code = "invalidReturn"
	CodeNamedArg             Code = "namedArg"
)

// Frame is one entry of an accumulated stack trace: the module the
// frame executed in, the routine name (or "<module>" for top level),
// and the position the frame was at when the error propagated through
// it.
type Frame struct {
	Module  string
	Routine string
	Line    int32
	Column  int
}

func (f Frame) String() string {
	return fmt.Sprintf("  at %s (%s:%d:%d)", f.Routine, f.Module, f.Line, f.Column)
}

// Error is the single error type produced anywhere in the pipeline.
type Error struct {
	Kind    Kind
	Code    Code
	Module  string
	Line    int32
	Column  int
	Offset  int
	Length  int
	Message string
	Trace   []Frame
}

// New constructs an Error with no stack trace yet attached.
func New(kind Kind, code Code, module string, line int32, column int, message string) *Error {
	return &Error{Kind: kind, Code: code, Module: module, Line: line, Column: column, Message: message}
}

// Syntactic is a convenience constructor matching the parser's old
// CreateSyntaxError signature.
func Syntactic(code Code, module string, line int32, column int, message string) *Error {
	return New(KindSyntacticError, code, module, line, column, message)
}

// CompileTime is a convenience constructor for compiler-stage errors.
func CompileTime(code Code, module string, line int32, column int, message string) *Error {
	return New(KindCompileTimeError, code, module, line, column, message)
}

// Runtime is a convenience constructor for VM-stage errors.
func Runtime(code Code, module string, line int32, column int, message string) *Error {
	return New(KindRuntimeError, code, module, line, column, message)
}

// External is a convenience constructor for errors raised by a host
// collaborator outside the pipeline proper - a source resolver failing
// to find an import, or an external binding's Go code returning an
// error.
func External(code Code, module string, line int32, column int, message string) *Error {
	return New(KindExternalError, code, module, line, column, message)
}

// WithFrame returns a copy of e with the given Frame appended to its
// trace, used by the VM to accumulate a stack trace as an error
// unwinds through nested calls.
func (e *Error) WithFrame(frame Frame) *Error {
	cp := *e
	cp.Trace = append(append([]Frame{}, e.Trace...), frame)
	return &cp
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s [%s]: %s (%s:%d:%d)", e.Kind, e.Code, e.Message, e.Module, e.Line, e.Column)
}

// Format renders a multi-line, colorized presentation of the error and
// its accumulated stack trace, the way a REPL or CLI would print it to
// a terminal (spec.md's "formatted multi-line presentation").
func (e *Error) Format(useColor bool) string {
	var b strings.Builder

	headline := fmt.Sprintf("%s: %s", strings.ToUpper(e.Kind.String()), e.Message)
	if useColor {
		headline = severityColor(e.Kind).Sprint(headline)
	}
	fmt.Fprintln(&b, headline)
	fmt.Fprintf(&b, "  --> %s:%d:%d\n", e.Module, e.Line, e.Column)
	for _, frame := range e.Trace {
		fmt.Fprintln(&b, frame.String())
	}
	return b.String()
}

func severityColor(k Kind) *color.Color {
	switch k {
	case KindHint, KindLint:
		return color.New(color.FgCyan)
	case KindStaticWarning, KindStaticTypeWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}

package vm

import "github.com/polotto/hetu-script/hetuerrors"

// runtimeError builds a hetuerrors.Error for the given module, replacing
// the teacher's standalone RuntimeError{Message string} type: every other
// pipeline stage already reports through hetuerrors, and a VM error needs
// to unify with those to produce one coherent stack trace (see
// hetuerrors' package doc).
//
// Bytecode carries no per-instruction source position, so Line/Column are
// always zero here; a host embedding the VM gets the failing module and
// message, not a precise source location.
func runtimeError(moduleKey string, code hetuerrors.Code, message string) *hetuerrors.Error {
	return hetuerrors.Runtime(code, moduleKey, int32(0), 0, message)
}

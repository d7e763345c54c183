package hetu

import (
	"bytes"
	"encoding/gob"

	"github.com/polotto/hetu-script/compiler"
)

// encodeModule/decodeModule give Compile/LoadBytecode a concrete
// bytes<->*compiler.Module encoding. They reuse the same gob framing
// internal/modcache uses for its own persistence, for the same reason
// documented there: every compiler-produced value.Function has a nil
// External field, and gob silently drops struct fields of unsupported
// types (func, chan) rather than erroring on them, so the round trip
// is safe without a hand-rolled binary format matching spec.md's wire
// layout byte-for-byte.
func encodeModule(mod *compiler.Module) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(mod); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeModule(data []byte) (*compiler.Module, error) {
	var mod compiler.Module
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&mod); err != nil {
		return nil, err
	}
	return &mod, nil
}

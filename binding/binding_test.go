package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polotto/hetu-script/value"
)

type fakeClass struct {
	statics map[string]any
}

func (f *fakeClass) MemberGet(name string) (any, bool) {
	v, ok := f.statics[name]
	return v, ok
}

func (f *fakeClass) InstanceMemberGet(instance any, name string) (any, bool) {
	if name == "describe" {
		return "an instance", true
	}
	return nil, false
}

func TestEngineRegisterAndFetchClass(t *testing.T) {
	engine := NewEngine()
	engine.RegisterClass("Point", &fakeClass{statics: map[string]any{"origin": "0,0"}})

	class, ok := engine.FetchExternalClass("Point")
	require.True(t, ok)

	v, ok := class.MemberGet("origin")
	require.True(t, ok)
	assert.Equal(t, "0,0", v)

	v2, err := engine.MemberGet("Point", "origin")
	require.NoError(t, err)
	assert.Equal(t, "0,0", v2)
}

func TestEngineMemberGetUnknownClass(t *testing.T) {
	engine := NewEngine()
	_, err := engine.MemberGet("Missing", "x")
	assert.Error(t, err)
}

func TestEngineRegisterAndFetchFunction(t *testing.T) {
	engine := NewEngine()
	called := false
	engine.RegisterFunction("double", func(this any, args []any, named map[string]any) (any, error) {
		called = true
		return args[0].(int64) * 2, nil
	})

	fn, ok := engine.FetchExternalFunction("double")
	require.True(t, ok)

	result, err := fn(nil, []any{int64(21)}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), result)
	assert.True(t, called)
}

type fakeCaller struct {
	gotCallee any
	gotArgs   []any
}

func (c *fakeCaller) Call(callee any, args []any, named map[string]any) (any, error) {
	c.gotCallee = callee
	c.gotArgs = args
	return "called", nil
}

func TestUnwrapExternalFunctionType(t *testing.T) {
	fn := &value.Function{Name: "greet"}
	caller := &fakeCaller{}
	wrapped := UnwrapExternalFunctionType(caller, fn)

	result, err := wrapped([]any{"sam"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "called", result)
	assert.Same(t, fn, caller.gotCallee)
	assert.Equal(t, []any{"sam"}, caller.gotArgs)
}

package modcache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polotto/hetu-script/compiler"
	"github.com/polotto/hetu-script/lexer"
	"github.com/polotto/hetu-script/parser"
)

func compile(t *testing.T, key, src string) *compiler.Module {
	t.Helper()
	tokens, err := lexer.New(src).Scan()
	require.NoError(t, err)
	stmts, errs := parser.Make(tokens, key).Parse()
	require.Empty(t, errs)
	mod, err := compiler.New(key).CompileModule(stmts)
	require.NoError(t, err)
	return mod
}

func openCache(t *testing.T) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modcache.db")
	cache, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestMissOnEmptyCache(t *testing.T) {
	cache := openCache(t)
	_, ok, err := cache.Get("main.ht", ContentHash("var x = 1;"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutThenGetRoundTrips(t *testing.T) {
	cache := openCache(t)
	src := "var x = 1 + 2;"
	hash := ContentHash(src)
	mod := compile(t, "main.ht", src)

	require.NoError(t, cache.Put("main.ht", hash, mod))

	got, ok, err := cache.Get("main.ht", hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mod.Key, got.Key)
	assert.Equal(t, mod.Instructions, got.Instructions)
	assert.Equal(t, mod.Constants.Ints, got.Constants.Ints)
}

func TestContentHashChangeIsAMiss(t *testing.T) {
	cache := openCache(t)
	mod := compile(t, "main.ht", "var x = 1;")
	require.NoError(t, cache.Put("main.ht", ContentHash("var x = 1;"), mod))

	_, ok, err := cache.Get("main.ht", ContentHash("var x = 2;"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutOverwritesSameKeyAndHash(t *testing.T) {
	cache := openCache(t)
	src := "var x = 1;"
	hash := ContentHash(src)
	first := compile(t, "main.ht", src)
	require.NoError(t, cache.Put("main.ht", hash, first))

	second := compile(t, "main.ht", src)
	require.NoError(t, cache.Put("main.ht", hash, second))

	got, ok, err := cache.Get("main.ht", hash)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.Key, got.Key)
}

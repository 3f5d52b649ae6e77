package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repositories.json")

	reg, err := New(path)
	require.NoError(t, err)
	require.NoError(t, reg.Put("ns1", "http://x"))

	// A fresh instance reading the same file sees the write.
	fresh, err := New(path)
	require.NoError(t, err)

	url, err := fresh.Get("ns1")
	require.NoError(t, err)
	assert.Equal(t, "http://x", url)
}

func TestGetUnknownNamespaceIsEmpty(t *testing.T) {
	reg, err := New(filepath.Join(t.TempDir(), "repositories.json"))
	require.NoError(t, err)

	url, err := reg.Get("absent")
	require.NoError(t, err)
	assert.Equal(t, "", url)
}

func TestDeleteIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repositories.json")
	reg, err := New(path)
	require.NoError(t, err)

	require.NoError(t, reg.Put("ns1", "http://x"))
	require.NoError(t, reg.Delete("ns1"))
	require.NoError(t, reg.Delete("ns1"))

	url, err := reg.Get("ns1")
	require.NoError(t, err)
	assert.Equal(t, "", url)
}

func TestAllReturnsCopy(t *testing.T) {
	reg, err := New(filepath.Join(t.TempDir(), "repositories.json"))
	require.NoError(t, err)

	require.NoError(t, reg.Put("a", "http://a"))
	require.NoError(t, reg.Put("b", "http://b"))

	all, err := reg.All()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "http://a", "b": "http://b"}, all)

	// Mutating the returned map must not affect stored state.
	all["c"] = "http://c"
	again, err := reg.All()
	require.NoError(t, err)
	assert.NotContains(t, again, "c")
}

func TestAbsentFileIsEmptyRegistry(t *testing.T) {
	reg, err := New(filepath.Join(t.TempDir(), "never-written.json"))
	require.NoError(t, err)

	all, err := reg.All()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCorruptFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repositories.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	reg, err := New(path)
	require.NoError(t, err)

	_, err = reg.All()
	assert.ErrorIs(t, err, ErrRegistryCorrupted)
}

func TestPersistedLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repositories.json")
	reg, err := New(path)
	require.NoError(t, err)
	require.NoError(t, reg.Put("myrepo", "https://github.com/user/myrepo"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"repositories"`)
	assert.Contains(t, string(raw), `"myrepo"`)
}

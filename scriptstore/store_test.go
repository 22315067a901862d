package scriptstore_test

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"scriptrun/scriptstore"
)

func newStore(t *testing.T) (*scriptstore.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := scriptstore.New(dir, log.New(io.Discard, "", 0))
	require.NoError(t, err)
	return store, dir
}

func put(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("echo hi\n"), 0o755))
}

func TestListFilters(t *testing.T) {
	store, dir := newStore(t)
	put(t, dir, "b.sh")
	put(t, dir, "a.py")
	put(t, dir, "_hidden.py")
	put(t, dir, "notes.txt")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub.py"), 0o755))
	require.NoError(t, store.Rescan())

	require.Equal(t, []string{"a.py", "b.sh"}, store.List())
}

func TestResolve(t *testing.T) {
	store, dir := newStore(t)
	put(t, dir, "good.sh")
	require.NoError(t, store.Rescan())

	path, err := store.Resolve("good.sh")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "good.sh"), path)

	cases := []struct {
		name string
		want error
	}{
		{"", scriptstore.ErrInvalidName},
		{"../evil.sh", scriptstore.ErrInvalidName},
		{"sub/dir.sh", scriptstore.ErrInvalidName},
		{"noext", scriptstore.ErrInvalidName},
		{"binary.exe", scriptstore.ErrInvalidName},
		{"missing.py", scriptstore.ErrNotFound},
	}
	for _, c := range cases {
		_, err := store.Resolve(c.name)
		require.ErrorIs(t, err, c.want, "name %q", c.name)
	}
}

func TestSaveAndDelete(t *testing.T) {
	store, dir := newStore(t)

	require.NoError(t, store.Save("fresh.py", []byte("print('hi')\n")))
	require.Equal(t, []string{"fresh.py"}, store.List())

	info, err := os.Stat(filepath.Join(dir, "fresh.py"))
	require.NoError(t, err)
	require.True(t, info.Mode().IsRegular())

	require.ErrorIs(t, store.Save("bad.txt", nil), scriptstore.ErrInvalidName)

	require.NoError(t, store.Delete("fresh.py"))
	require.Empty(t, store.List())
	require.ErrorIs(t, store.Delete("fresh.py"), scriptstore.ErrNotFound)
}

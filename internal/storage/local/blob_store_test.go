package local_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/vacancy-crawler/internal/storage/local"
)

func TestNew(t *testing.T) {
	t.Run("ValidConfig", func(t *testing.T) {
		store, err := local.New(local.Config{BaseDir: t.TempDir()})
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("CreatesMissingDir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "out")
		_, err := local.New(local.Config{BaseDir: dir})
		require.NoError(t, err)
		assert.DirExists(t, dir)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := local.New(local.Config{})
		assert.ErrorIs(t, err, local.ErrBaseDirRequired)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
		_, err := local.New(local.Config{BaseDir: file})
		assert.Error(t, err)
	})

	t.Run("BaseDirNotWritable", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores directory permissions")
		}
		dir := t.TempDir()
		// #nosec G302 -- directory permissions adjusted intentionally for test coverage.
		require.NoError(t, os.Chmod(dir, 0o500))
		t.Cleanup(func() { _ = os.Chmod(dir, 0o700) }) // #nosec G302

		_, err := local.New(local.Config{BaseDir: dir})
		assert.Error(t, err)
	})
}

func TestPutObject(t *testing.T) {
	dir := t.TempDir()
	store, err := local.New(local.Config{BaseDir: dir})
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("NestedPath", func(t *testing.T) {
		uri, err := store.PutObject(ctx, "pages/0001.html", "text/html", strings.NewReader("<html/>"))
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(dir, "pages/0001.html"), uri)

		// #nosec G304 -- test reads from the controlled temp directory.
		got, err := os.ReadFile(filepath.Join(dir, "pages", "0001.html"))
		require.NoError(t, err)
		assert.Equal(t, "<html/>", string(got))
	})

	t.Run("Overwrite", func(t *testing.T) {
		_, err := store.PutObject(ctx, "a.txt", "", strings.NewReader("first, longer"))
		require.NoError(t, err)
		_, err = store.PutObject(ctx, "a.txt", "", strings.NewReader("second"))
		require.NoError(t, err)
		got, err := os.ReadFile(filepath.Join(dir, "a.txt")) // #nosec G304
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})

	t.Run("EmptyPath", func(t *testing.T) {
		_, err := store.PutObject(ctx, " ", "text/plain", strings.NewReader("data"))
		assert.ErrorIs(t, err, local.ErrPathRequired)
	})

	t.Run("Traversal", func(t *testing.T) {
		_, err := store.PutObject(ctx, "../escape.txt", "text/plain", strings.NewReader("data"))
		assert.ErrorIs(t, err, local.ErrPathTraversal)
	})
}

func TestPrepareDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tmp")
	require.NoError(t, local.PrepareDir(dir, true))
	assert.DirExists(t, dir)

	stale := filepath.Join(dir, "job_offers.xlsx")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o600))

	require.NoError(t, local.PrepareDir(dir, false))
	assert.FileExists(t, stale)

	require.NoError(t, local.PrepareDir(dir, true))
	assert.NoFileExists(t, stale)
	assert.DirExists(t, dir)

	assert.ErrorIs(t, local.PrepareDir("", true), local.ErrBaseDirRequired)
}

func TestPrepareDirRefusesProtectedDirectories(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	keep := filepath.Join(home, "notes.txt")
	require.NoError(t, os.WriteFile(keep, []byte("keep"), 0o600))

	for _, dir := range []string{
		string(filepath.Separator),
		".",
		"..",
		home,
		filepath.Dir(home),
	} {
		err := local.PrepareDir(dir, true)
		assert.ErrorIs(t, err, local.ErrUnsafeClean, dir)
	}
	assert.FileExists(t, keep)

	require.NoError(t, local.PrepareDir(home, false))
	assert.FileExists(t, keep)

	out := filepath.Join(home, "tmp")
	require.NoError(t, local.PrepareDir(out, true))
	assert.DirExists(t, out)
}

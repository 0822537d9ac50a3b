package source_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shad/source"
)

func TestLoadVirtualSortsByPath(t *testing.T) {
	files := source.LoadVirtual(map[string][]byte{
		"b.shad": []byte("buf y = 2;\n"),
		"a.shad": []byte("buf x = 1;\n"),
	})
	require.Len(t, files, 2)
	assert.Equal(t, "a.shad", files[0].Path)
	assert.Equal(t, "b.shad", files[1].Path)
}

func TestLoadVirtualDecodesLossyUTF8(t *testing.T) {
	files := source.LoadVirtual(map[string][]byte{
		"bad.shad": {0xff, 0xfe, 'x'},
	})
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Text, "�")
}

func TestLoadDirFindsShadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.shad"), []byte("buf x = 1;\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignore.txt"), []byte("not shad"), 0o644))

	files, err := source.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.shad", files[0].Path)
}

func TestLoadDirMissingRootIsIOError(t *testing.T) {
	_, err := source.LoadDir(filepath.Join(t.TempDir(), "nonexistent"))
	require.Error(t, err)
	errs, ok := err.(source.Errors)
	require.True(t, ok)
	assert.NotEmpty(t, errs)
}

package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestZIP(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()
	zipPath := filepath.Join(dir, name)
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return zipPath
}

func TestFind_Single(t *testing.T) {
	dir := t.TempDir()
	want := createTestZIP(t, dir, "cases.zip", map[string]string{"a.xml": "<R/>"})

	got, err := Find(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFind_None(t *testing.T) {
	_, err := Find(t.TempDir())
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoArchive))
}

func TestFind_Ambiguous(t *testing.T) {
	dir := t.TempDir()
	createTestZIP(t, dir, "a.zip", map[string]string{"a.xml": "<R/>"})
	createTestZIP(t, dir, "b.zip", map[string]string{"b.xml": "<R/>"})

	_, err := Find(dir)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrAmbiguousArchive))
}

func TestExtract_ReturnsMarkupFilesSorted(t *testing.T) {
	dir := t.TempDir()
	zipPath := createTestZIP(t, dir, "cases.zip", map[string]string{
		"b.xml":        "<R/>",
		"sub/a.xml":    "<R/>",
		"readme.txt":   "ignore me",
		"sub/deep.XML": "<R/>",
	})

	extractDir := filepath.Join(dir, "extract")
	files, err := Extract(zipPath, extractDir)
	require.NoError(t, err)

	require.Len(t, files, 3)
	assert.Equal(t, filepath.Join(extractDir, "b.xml"), files[0])
	assert.Equal(t, filepath.Join(extractDir, "sub", "a.xml"), files[1])
	assert.Equal(t, filepath.Join(extractDir, "sub", "deep.XML"), files[2])
}

func TestExtract_ClearsPriorContents(t *testing.T) {
	dir := t.TempDir()
	extractDir := filepath.Join(dir, "extract")
	require.NoError(t, os.MkdirAll(extractDir, 0o755))
	stale := filepath.Join(extractDir, "stale.xml")
	require.NoError(t, os.WriteFile(stale, []byte("<R/>"), 0o644))

	zipPath := createTestZIP(t, dir, "cases.zip", map[string]string{"fresh.xml": "<R/>"})

	files, err := Extract(zipPath, extractDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(extractDir, "fresh.xml"), files[0])

	_, statErr := os.Stat(stale)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtract_RejectsZipSlip(t *testing.T) {
	dir := t.TempDir()
	zipPath := createTestZIP(t, dir, "evil.zip", map[string]string{
		"../escape.xml": "<R/>",
	})

	_, err := Extract(zipPath, filepath.Join(dir, "extract"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

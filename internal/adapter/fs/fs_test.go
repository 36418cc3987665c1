package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docingest/internal/domain"
)

func touch(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestIncludesFor(t *testing.T) {
	assert.Equal(t, []string{"**/*.txt", "**/*.pdf"}, IncludesFor([]string{".txt", "PDF"}))
}

func TestWalkerFiltersByExtensionAndExcludes(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.txt", "a")
	touch(t, root, "docs/b.md", "b")
	touch(t, root, "docs/Report.PDF", "c")
	touch(t, root, "docs/image.png", "d")
	touch(t, root, "node_modules/pkg/readme.md", "e")
	touch(t, root, ".git/notes.txt", "f")

	w := NewWalker(IncludesFor([]string{".txt", ".md", ".pdf"}), []string{"**/node_modules/**", "**/.git/**"})
	files, err := w.Walk(root)
	require.NoError(t, err)

	var rel []string
	for _, f := range files {
		r, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		rel = append(rel, filepath.ToSlash(r))
	}
	assert.Equal(t, []string{"a.txt", "docs/Report.PDF", "docs/b.md"}, rel)
	assert.Equal(t, int64(1), files[0].Size)
}

func TestWalkerDefaultsToEverything(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "x/y/z.bin", "z")

	files, err := NewWalker(nil, nil).Walk(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestUploadStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	u := NewUploadStore(dir, 1024)

	doc, err := u.Save("notes/report.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	assert.Equal(t, "report.txt", doc.Filename)
	assert.Equal(t, int64(5), doc.Size)
	assert.Equal(t, filepath.Join(dir, doc.ID+".txt"), doc.Path)
	assert.Len(t, doc.ID, 36)

	data, err := os.ReadFile(doc.Path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, u.Remove(doc))
	assert.NoFileExists(t, doc.Path)
	assert.NoError(t, u.Remove(doc))
}

func TestUploadStoreRejectsLargeFiles(t *testing.T) {
	dir := t.TempDir()
	u := NewUploadStore(dir, 4)

	_, err := u.Save("big.txt", strings.NewReader("12345"))
	require.ErrorIs(t, err, domain.ErrFileTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	src := filepath.Join(t.TempDir(), "big.md")
	require.NoError(t, os.WriteFile(src, []byte("123456"), 0644))
	_, err = u.SaveFile(src)
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	doc, err := u.Save("exact.txt", strings.NewReader("1234"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), doc.Size)
}

func TestUploadStoreSaveFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "paper.md")
	require.NoError(t, os.WriteFile(src, []byte("# paper"), 0644))

	u := NewUploadStore(t.TempDir(), 0)
	doc, err := u.SaveFile(src)
	require.NoError(t, err)
	assert.Equal(t, "paper.md", doc.Filename)
	assert.Equal(t, ".md", filepath.Ext(doc.Path))
	assert.NotEqual(t, src, doc.Path)
}

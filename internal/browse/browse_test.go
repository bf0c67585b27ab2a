package browse

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediacarousel/internal/model"
)

func writeFile(t *testing.T, fs billy.Filesystem, path string, content string) {
	t.Helper()
	f, err := fs.Create(path)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestListChildren_PartitionsAndFilters(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, "a.jpg", "x")
	writeFile(t, fs, "b.mp4", "x")
	writeFile(t, fs, "notes.txt", "x")
	writeFile(t, fs, ".hidden.jpg", "x")
	require.NoError(t, fs.MkdirAll("summer", 0o755))
	require.NoError(t, fs.MkdirAll(".thumbs", 0o755))
	writeFile(t, fs, "summer/c.png", "x")

	b, err := NewBillyBrowser(fs)
	require.NoError(t, err)

	root, err := b.ListChildren(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, root.Files, 2)
	assert.Equal(t, "a.jpg", root.Files[0].Name)
	assert.Equal(t, model.KindImage, root.Files[0].Kind)
	assert.Equal(t, "b.mp4", root.Files[1].Name)
	assert.Equal(t, model.KindVideo, root.Files[1].Kind)
	assert.Equal(t, []string{"summer"}, root.Folders)

	sub, err := b.ListChildren(context.Background(), "summer")
	require.NoError(t, err)
	require.Len(t, sub.Files, 1)
	assert.Equal(t, "c.png", sub.Files[0].Name)
}

func TestListChildren_MediaIgnore(t *testing.T) {
	fs := memfs.New()
	writeFile(t, fs, ".mediaignore", "raw/\n*.gif\n")
	writeFile(t, fs, "keep.jpg", "x")
	writeFile(t, fs, "skip.gif", "x")
	require.NoError(t, fs.MkdirAll("raw", 0o755))
	require.NoError(t, fs.MkdirAll("edited", 0o755))

	b, err := NewBillyBrowser(fs)
	require.NoError(t, err)

	root, err := b.ListChildren(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, root.Files, 1)
	assert.Equal(t, "keep.jpg", root.Files[0].Name)
	assert.Equal(t, []string{"edited"}, root.Folders)
}

func TestListChildren_MissingFolderFails(t *testing.T) {
	b, err := NewBillyBrowser(memfs.New())
	require.NoError(t, err)

	_, err = b.ListChildren(context.Background(), "nope")
	assert.Error(t, err)
}

func TestFileResolver(t *testing.T) {
	r := FileResolver{Root: "/media/photos"}
	u, err := r.ResolvePlayableURL(context.Background(), "summer/c.png")
	require.NoError(t, err)
	assert.Equal(t, "file:///media/photos/summer/c.png", u)

	_, err = r.ResolvePlayableURL(context.Background(), "")
	assert.Error(t, err)
}

package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediacarousel/internal/browse"
	"mediacarousel/internal/index/sqlite"
	"mediacarousel/internal/index/store"
)

func testTree(t *testing.T) browse.TreeBrowser {
	t.Helper()
	fs := memfs.New()
	for _, p := range []string{
		"a.jpg",
		"notes.txt",
		"photos/one.jpg",
		"photos/two.png",
		"photos/sub/deep.mp4",
	} {
		f, err := fs.Create(p)
		require.NoError(t, err)
		_, err = f.Write([]byte("x"))
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
	br, err := browse.NewBillyBrowser(fs)
	require.NoError(t, err)
	return br
}

func openStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBuildIngestsMediaOnly(t *testing.T) {
	br := testTree(t)
	st := openStore(t)

	n, err := Build(context.Background(), br, "root", st, Options{CollectionID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	count, err := st.CountItems("c1")
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	it, ok, err := st.GetMetadata("c1", "photos/sub/deep.mp4")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "video", it.Kind)
	assert.Equal(t, "photos/sub", it.Folder)
}

func TestBuildRespectsMaxDepth(t *testing.T) {
	br := testTree(t)
	st := openStore(t)

	n, err := Build(context.Background(), br, "root", st, Options{CollectionID: "c1", MaxDepth: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, n) // a.jpg + photos/{one,two}, not photos/sub

	_, ok, err := st.GetMetadata("c1", "photos/sub/deep.mp4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshFolderDropsStaleItems(t *testing.T) {
	fs := memfs.New()
	for _, p := range []string{"photos/one.jpg", "photos/two.png"} {
		f, err := fs.Create(p)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
	br, err := browse.NewBillyBrowser(fs)
	require.NoError(t, err)
	st := openStore(t)

	_, err = Build(context.Background(), br, "root", st, Options{CollectionID: "c1"})
	require.NoError(t, err)

	require.NoError(t, fs.Remove("photos/two.png"))
	require.NoError(t, RefreshFolder(context.Background(), br, "photos", st, "c1"))

	count, err := st.CountItems("c1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, ok, err := st.GetMetadata("c1", "photos/two.png")
	require.NoError(t, err)
	assert.False(t, ok)
}

package mcard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediacarousel/internal/index/sqlite"
	"mediacarousel/internal/index/store"
)

func startServer(t *testing.T) *Client {
	t.Helper()
	srv := NewServer(Options{Listen: "127.0.0.1:0"})
	go func() { _ = srv.Run() }()
	t.Cleanup(func() { _ = srv.Close() })

	require.Eventually(t, func() bool { return srv.Addr() != "" }, time.Second, 5*time.Millisecond)
	c, err := Dial(srv.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func mediaRoot(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	return root
}

func TestPingAndVersion(t *testing.T) {
	c := startServer(t)
	require.NoError(t, c.Ping())

	v, err := c.Version()
	require.NoError(t, err)
	assert.NotEmpty(t, v)
}

func TestInitNextStatusDetach(t *testing.T) {
	c := startServer(t)
	root := mediaRoot(t, "a.jpg", "b.jpg", "sub/c.mp4")

	res, err := c.Init(InitParams{Root: root, EstimatedTotal: 3})
	require.NoError(t, err)
	require.NotEmpty(t, res.ConsumerID)
	assert.False(t, res.Resumed)

	var got *string
	require.Eventually(t, func() bool {
		it, err := c.Next(res.ConsumerID)
		if err != nil || it == nil {
			return false
		}
		got = &it.ID
		return true
	}, 3*time.Second, 20*time.Millisecond)
	require.NotNil(t, got)

	st, err := c.Status(res.ConsumerID)
	require.NoError(t, err)
	assert.Equal(t, root, st.Root)
	assert.GreaterOrEqual(t, st.ShownLen, 1)

	require.NoError(t, c.Detach(res.ConsumerID))
	_, err = c.Status(res.ConsumerID)
	assert.Error(t, err)
}

func TestDetachThenInitResumesScanState(t *testing.T) {
	c := startServer(t)
	root := mediaRoot(t, "a.jpg", "b.jpg")

	res, err := c.Init(InitParams{Root: root, EstimatedTotal: 2})
	require.NoError(t, err)
	require.NoError(t, c.Detach(res.ConsumerID))

	res2, err := c.Init(InitParams{Root: root, EstimatedTotal: 2})
	require.NoError(t, err)
	assert.True(t, res2.Resumed)
	assert.NotEqual(t, res.ConsumerID, res2.ConsumerID)

	require.Eventually(t, func() bool {
		it, err := c.Next(res2.ConsumerID)
		return err == nil && it != nil
	}, 3*time.Second, 20*time.Millisecond)
}

func TestMetadataSurvivesDetachAndResume(t *testing.T) {
	c := startServer(t)
	root := mediaRoot(t, "img.jpg")

	indexPath := filepath.Join(t.TempDir(), "index.db")
	st, err := sqlite.Open(indexPath)
	require.NoError(t, err)
	require.NoError(t, st.EnsureCollection(root, root))
	require.NoError(t, st.UpsertItem(root, store.Item{
		ID:    "img.jpg",
		Name:  "img.jpg",
		Kind:  "image",
		Size:  1,
		MTime: 1234,
	}))
	require.NoError(t, st.Close())

	params := InitParams{
		Root:            root,
		MetadataBackend: "indexed",
		IndexBackend:    "sqlite",
		IndexPath:       indexPath,
		EstimatedTotal:  1,
	}
	res, err := c.Init(params)
	require.NoError(t, err)

	md, err := c.Metadata(res.ConsumerID, "img.jpg")
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, int64(1234), md.MTime)

	require.NoError(t, c.Detach(res.ConsumerID))

	res2, err := c.Init(params)
	require.NoError(t, err)
	require.True(t, res2.Resumed)

	md, err = c.Metadata(res2.ConsumerID, "img.jpg")
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, int64(1234), md.MTime)
}

func TestUnknownMethodAndMissingConsumer(t *testing.T) {
	c := startServer(t)

	err := c.call("carousel.rewind", nil, nil)
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)

	_, err = c.Next("nope")
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
}

func TestInitRejectsMissingRoot(t *testing.T) {
	c := startServer(t)
	_, err := c.Init(InitParams{})
	assert.Error(t, err)
}

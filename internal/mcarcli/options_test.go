package mcarcli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediacarousel/internal/config"
)

func TestFlagsMapIntoConfig(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{
		"--root", "/media",
		"--mode", "sequential",
		"--sort", "name",
		"--direction", "asc",
		"--target", "25",
		"--max-depth", "2",
		"--priority-path", "favorites",
	})
	_, opts, err := ExecuteForTest(cmd)
	require.NoError(t, err)

	cfg, err := opts.Config()
	require.NoError(t, err)
	assert.Equal(t, config.ModeSequential, cfg.Mode)
	assert.Equal(t, "name", cfg.SortField)
	assert.Equal(t, config.DirectionAsc, cfg.SortDirection)
	assert.Equal(t, 25, cfg.TargetQueueSize)
	assert.Equal(t, 2, cfg.ScanDepth())
	assert.Equal(t, []string{"favorites"}, cfg.PriorityPathPatterns)
}

func TestUnlimitedDepthIsDefault(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--root", "/media"})
	_, opts, err := ExecuteForTest(cmd)
	require.NoError(t, err)

	cfg, err := opts.Config()
	require.NoError(t, err)
	assert.Equal(t, config.UnlimitedDepth, cfg.ScanDepth())
}

func TestInvalidModeIsRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--root", "/media", "--mode", "shuffled"})
	out, _, err := ExecuteForTest(cmd)
	require.Error(t, err)
	assert.Contains(t, out+err.Error(), "invalid mode")
}

func TestScanCommandListsQueuedItems(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.jpg"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.mp4"), []byte("x"), 0o644))

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"scan", root, "--estimated-total", "2"})
	out, _, err := ExecuteForTest(cmd)
	require.NoError(t, err)
	assert.Contains(t, out, "discovered 2 files")
	assert.True(t, strings.Contains(out, "a.jpg") && strings.Contains(out, "b.mp4"))
}

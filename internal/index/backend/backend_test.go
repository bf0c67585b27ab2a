package backend

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "sqlite", NormalizeName(""))
	assert.Equal(t, "sqlite", NormalizeName("SQLite3"))
	assert.Equal(t, "sqlite", NormalizeName("fts5"))
	assert.Equal(t, "bleve", NormalizeName(" Bleve "))
	assert.Equal(t, "bogus", NormalizeName("bogus"))
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/media", ".mcar", "index.db"), DefaultPath("/media", "sqlite"))
	assert.Equal(t, filepath.Join("/media", ".mcar", "index.bleve"), DefaultPath("/media", "bleve"))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "", NormalizePath("sqlite", "  "))
	assert.Equal(t, filepath.Clean("/x/idx.db"), NormalizePath("sqlite", "/x/idx.db"))
	assert.Equal(t, filepath.Clean("/x/idx.bleve"), NormalizePath("bleve", "/x/idx"))
	assert.Equal(t, filepath.Clean("/x/idx.bleve"), NormalizePath("bleve", "/x/idx.db"))
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open("mongo", "/tmp/whatever")
	assert.Error(t, err)
}

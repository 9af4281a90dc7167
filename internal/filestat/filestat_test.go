package filestat

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatSmallFileWholeFileHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello world"), 0644))

	s := NewDefaultSupplier()
	stats, err := s.Stat(path)
	require.NoError(t, err)

	assert.EqualValues(t, 11, stats.Size)
	assert.NotEmpty(t, stats.ContentHash)
}

func TestStatIdenticalContentYieldsIdenticalHash(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.txt")
	p2 := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(p1, []byte("same bytes"), 0644))
	require.NoError(t, os.WriteFile(p2, []byte("same bytes"), 0644))

	s := NewDefaultSupplier()
	st1, err := s.Stat(p1)
	require.NoError(t, err)
	st2, err := s.Stat(p2)
	require.NoError(t, err)

	assert.Equal(t, st1.ContentHash, st2.ContentHash)
}

func TestStatDifferentContentYieldsDifferentHash(t *testing.T) {
	dir := t.TempDir()
	p1 := filepath.Join(dir, "a.txt")
	p2 := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(p1, []byte("content one"), 0644))
	require.NoError(t, os.WriteFile(p2, []byte("content two"), 0644))

	s := NewDefaultSupplier()
	st1, err := s.Stat(p1)
	require.NoError(t, err)
	st2, err := s.Stat(p2)
	require.NoError(t, err)

	assert.NotEqual(t, st1.ContentHash, st2.ContentHash)
}

func TestStatMissingFileErrors(t *testing.T) {
	s := NewDefaultSupplier()
	_, err := s.Stat("/no/such/file")
	require.Error(t, err)
}

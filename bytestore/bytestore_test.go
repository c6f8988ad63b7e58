package bytestore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partfs/go-partfs/bytestore"
)

func TestMemStore(t *testing.T) {
	t.Run("read write round trip", func(t *testing.T) {
		st := bytestore.NewMemStore(100, 512)
		assert.Equal(t, int64(100), st.TotalSectors())
		assert.Equal(t, 512, st.SectorSize())

		b := make([]byte, 1024)
		for i := range b {
			b[i] = byte(i)
		}
		require.NoError(t, st.WriteSectors(10, b))

		got, err := st.ReadSectors(10, 2)
		require.NoError(t, err)
		assert.Equal(t, b, got)
	})
	t.Run("read returns a copy", func(t *testing.T) {
		st := bytestore.NewMemStore(10, 512)
		b, err := st.ReadSectors(0, 1)
		require.NoError(t, err)
		b[0] = 0xff
		again, err := st.ReadSectors(0, 1)
		require.NoError(t, err)
		assert.Equal(t, byte(0), again[0])
	})
	t.Run("out of range", func(t *testing.T) {
		st := bytestore.NewMemStore(10, 512)
		_, err := st.ReadSectors(9, 2)
		assert.Error(t, err)
		_, err = st.ReadSectors(-1, 1)
		assert.Error(t, err)
		err = st.WriteSectors(10, make([]byte, 512))
		assert.Error(t, err)
	})
	t.Run("partial sector write rejected", func(t *testing.T) {
		st := bytestore.NewMemStore(10, 512)
		err := st.WriteSectors(0, make([]byte, 100))
		assert.Error(t, err)
	})
	t.Run("read only", func(t *testing.T) {
		st, err := bytestore.NewMemStoreFrom(make([]byte, 5120), 512, true)
		require.NoError(t, err)
		err = st.WriteSectors(0, make([]byte, 512))
		assert.ErrorIs(t, err, bytestore.ErrReadOnly)
	})
	t.Run("ragged buffer rejected", func(t *testing.T) {
		_, err := bytestore.NewMemStoreFrom(make([]byte, 5000), 512, false)
		assert.Error(t, err)
	})
}

func TestSubStore(t *testing.T) {
	parent := bytestore.NewMemStore(100, 512)
	b := make([]byte, 512)
	for i := range b {
		b[i] = 0xaa
	}
	require.NoError(t, parent.WriteSectors(50, b))

	sub, err := bytestore.Sub(parent, 50, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), sub.TotalSectors())

	got, err := sub.ReadSectors(0, 1)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	// writes land at the parent offset
	c := make([]byte, 512)
	for i := range c {
		c[i] = 0xbb
	}
	require.NoError(t, sub.WriteSectors(9, c))
	got, err = parent.ReadSectors(59, 1)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	// the window ends where it says
	_, err = sub.ReadSectors(10, 1)
	assert.Error(t, err)

	_, err = bytestore.Sub(parent, 95, 10)
	assert.Error(t, err)
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")

	st, err := bytestore.CreateFile(path, 1024*1024, 512)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), st.TotalSectors())

	b := make([]byte, 512)
	copy(b, "hello disk")
	require.NoError(t, st.WriteSectors(100, b))
	require.NoError(t, st.Sync())

	got, err := st.ReadSectors(100, 1)
	require.NoError(t, err)
	assert.Equal(t, b, got)
	require.NoError(t, st.Close())

	// reopen read-only
	ro, err := bytestore.OpenFile(path, true, 512, 512)
	require.NoError(t, err)
	got, err = ro.ReadSectors(100, 1)
	require.NoError(t, err)
	assert.Equal(t, b, got)
	err = ro.WriteSectors(0, make([]byte, 512))
	assert.Error(t, err)
	require.NoError(t, ro.Close())
}

func TestOpenImage(t *testing.T) {
	t.Run("plain image", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "plain.img")
		require.NoError(t, os.WriteFile(path, make([]byte, 512*100), 0o644))

		st, err := bytestore.OpenImage(path, false, 512)
		require.NoError(t, err)
		assert.Equal(t, int64(100), st.TotalSectors())
		assert.NoError(t, st.WriteSectors(0, make([]byte, 512)))
		require.NoError(t, st.Close())
	})
	t.Run("xz image", func(t *testing.T) {
		st, err := bytestore.OpenImage("./testdata/tiny.img.xz", false, 512)
		require.NoError(t, err)
		assert.Equal(t, int64(10), st.TotalSectors())

		got, err := st.ReadSectors(0, 1)
		require.NoError(t, err)
		assert.Equal(t, []byte("DISK"), got[:4])
		got, err = st.ReadSectors(9, 1)
		require.NoError(t, err)
		assert.Equal(t, []byte("END"), got[:3])

		// decompressed images are read-only
		err = st.WriteSectors(0, make([]byte, 512))
		assert.ErrorIs(t, err, bytestore.ErrReadOnly)
	})
	t.Run("missing image", func(t *testing.T) {
		_, err := bytestore.OpenImage(filepath.Join(t.TempDir(), "nope.img"), false, 512)
		assert.Error(t, err)
	})
}

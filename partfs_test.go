package partfs_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	partfs "github.com/partfs/go-partfs"
	"github.com/partfs/go-partfs/edit"
	"github.com/partfs/go-partfs/partition"
	"github.com/partfs/go-partfs/partition/gpt"
	"github.com/partfs/go-partfs/txn"
)

func TestCreateAndOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")

	d, err := partfs.Create(path, 512*1024*1024)
	require.NoError(t, err)
	assert.Equal(t, int64(1048576), d.TotalSectors())
	assert.Equal(t, partition.KindNone, d.Kind())

	tx, err := txn.BeginNew(d, partition.KindGPT)
	require.NoError(t, err)
	require.NoError(t, tx.Stage(edit.Create{
		Start:  2048,
		Length: 204800,
		Type:   string(gpt.LinuxFilesystem),
		Name:   "root",
	}))
	require.NoError(t, tx.Commit())
	require.NoError(t, d.Close())

	// reopen and find the committed table
	d, err = partfs.Open(path)
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, partition.KindGPT, d.Kind())
	infos, err := d.ListPartitions()
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "root", infos[0].Name)
}

func TestOpenErrors(t *testing.T) {
	_, err := partfs.Open("")
	assert.Error(t, err)

	_, err = partfs.Open(filepath.Join(t.TempDir(), "missing.img"))
	assert.Error(t, err)
}

func TestCreateErrors(t *testing.T) {
	_, err := partfs.Create("", 1024*1024)
	assert.Error(t, err)

	_, err = partfs.Create(filepath.Join(t.TempDir(), "disk.img"), 0)
	assert.Error(t, err)
}

func TestOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	d, err := partfs.Create(path, 64*1024*1024)
	require.NoError(t, err)
	tx, err := txn.BeginNew(d, partition.KindGPT)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, d.Close())

	ro, err := partfs.Open(path, partfs.WithReadOnly())
	require.NoError(t, err)
	defer ro.Close()

	// commits fail against a read-only store
	tx, err = txn.Begin(ro)
	require.NoError(t, err)
	require.NoError(t, tx.Stage(edit.Create{
		Start:  2048,
		Length: 2048,
		Type:   string(gpt.LinuxFilesystem),
	}))
	err = tx.Commit()
	require.Error(t, err)
	assert.Equal(t, txn.StateFailed, tx.State())
	require.NoError(t, tx.Rollback())
}

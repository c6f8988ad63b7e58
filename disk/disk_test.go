package disk_test

import (
	"encoding/binary"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partfs/go-partfs/bytestore"
	"github.com/partfs/go-partfs/disk"
	"github.com/partfs/go-partfs/geometry"
	"github.com/partfs/go-partfs/partition"
	"github.com/partfs/go-partfs/partition/gpt"
	"github.com/partfs/go-partfs/partition/mbr"
)

const diskSectors = 1048576

// gptDisk builds a disk with two partitions separated by a gap.
func gptDisk(t *testing.T) *disk.Disk {
	t.Helper()
	st := bytestore.NewMemStore(diskSectors, 512)
	table, err := gpt.New(diskSectors, 512, 512)
	require.NoError(t, err)
	_, err = table.CreatePartition(geometry.Geom{Start: 2048, Length: 4096}, gpt.EFISystemPartition, "esp")
	require.NoError(t, err)
	_, err = table.CreatePartition(geometry.Geom{Start: 8192, Length: 8192}, gpt.LinuxFilesystem, "root")
	require.NoError(t, err)
	require.NoError(t, table.Write(st))

	d, err := disk.New(st)
	require.NoError(t, err)
	return d
}

func TestNewProbes(t *testing.T) {
	d := gptDisk(t)
	assert.Equal(t, partition.KindGPT, d.Kind())
	assert.Equal(t, 512, d.LogicalSectorSize)
	assert.Equal(t, int64(diskSectors), d.TotalSectors())
	assert.Equal(t, int64(diskSectors)*512, d.Size)
	require.NotNil(t, d.Table())
}

func TestNewBlankDisk(t *testing.T) {
	st := bytestore.NewMemStore(2048, 512)
	d, err := disk.New(st)
	require.NoError(t, err)
	assert.Equal(t, partition.KindNone, d.Kind())
	assert.Nil(t, d.Table())

	gaps, err := d.FreeSpaceGaps()
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, geometry.Geom{Start: 0, Length: 2048}, gaps[0])
}

func TestListPartitions(t *testing.T) {
	d := gptDisk(t)
	infos, err := d.ListPartitions()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, "esp", infos[0].Name)
	assert.Equal(t, int64(4096*512), infos[0].SizeBytes)
	assert.Equal(t, "root", infos[1].Name)
	// blank partitions carry no filesystem hint
	assert.Empty(t, infos[0].FilesystemHint)
}

func TestListPartitionsFilesystemHint(t *testing.T) {
	d := gptDisk(t)
	st := d.Store()

	// plant an ext4 superblock in the second partition: magic 0xEF53 at
	// byte 1080, extents feature bit at byte 1120
	sb := make([]byte, 1024)
	binary.LittleEndian.PutUint16(sb[56:58], 0xef53)
	binary.LittleEndian.PutUint32(sb[96:100], 0x40)
	require.NoError(t, st.WriteSectors(8192+2, sb))

	infos, err := d.ListPartitions()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "ext4", infos[1].FilesystemHint)
	assert.Empty(t, infos[0].FilesystemHint)
}

func TestListPartitionsIncludesLogical(t *testing.T) {
	st := bytestore.NewMemStore(204800, 512)
	table := mbr.New(512, 512)
	table.Partitions[0] = &mbr.Partition{Type: mbr.Linux, Start: 2048, Size: 2048}
	table.Partitions[1] = &mbr.Partition{Type: mbr.ExtendedLBA, Start: 8192, Size: 16384}
	require.NoError(t, table.Write(st))

	// one EBR with a single logical partition
	ebr := make([]byte, 512)
	ebr[446+4] = 0x83
	binary.LittleEndian.PutUint32(ebr[446+8:], 2048)
	binary.LittleEndian.PutUint32(ebr[446+12:], 2048)
	ebr[510] = 0x55
	ebr[511] = 0xaa
	require.NoError(t, st.WriteSectors(8192, ebr))

	d, err := disk.New(st)
	require.NoError(t, err)
	infos, err := d.ListPartitions()
	require.NoError(t, err)
	require.Len(t, infos, 3)

	assert.Equal(t, 5, infos[2].Number)
	assert.True(t, infos[2].Logical)
	assert.Equal(t, geometry.Geom{Start: 8192 + 2048, Length: 2048}, infos[2].Geom)
}

func TestFreeSpaceGaps(t *testing.T) {
	d := gptDisk(t)
	gaps, err := d.FreeSpaceGaps()
	require.NoError(t, err)
	// usable range is 34-1048542: gap before the first partition, gap
	// between the two, gap after the last
	require.Len(t, gaps, 3)
	assert.Equal(t, geometry.Geom{Start: 34, Length: 2048 - 34}, gaps[0])
	assert.Equal(t, geometry.Geom{Start: 6144, Length: 2048}, gaps[1])
	assert.Equal(t, int64(16384), gaps[2].Start)
	// the last usable sector is diskSectors-2-32 for a 128x128 array
	lastUsable := int64(diskSectors - 2 - 32)
	assert.Equal(t, lastUsable-16384+1, gaps[2].Length)
}

func TestFreeSpaceGapsAdjacent(t *testing.T) {
	st := bytestore.NewMemStore(diskSectors, 512)
	table, err := gpt.New(diskSectors, 512, 512)
	require.NoError(t, err)
	_, err = table.CreatePartition(geometry.Geom{Start: 2048, Length: 2048}, gpt.LinuxFilesystem, "a")
	require.NoError(t, err)
	_, err = table.CreatePartition(geometry.Geom{Start: 4096, Length: 2048}, gpt.LinuxFilesystem, "b")
	require.NoError(t, err)
	require.NoError(t, table.Write(st))

	d, err := disk.New(st)
	require.NoError(t, err)
	gaps, err := d.FreeSpaceGaps()
	require.NoError(t, err)
	// adjacent partitions produce no gap between them
	require.Len(t, gaps, 2)
	assert.Equal(t, int64(34), gaps[0].Start)
	assert.Equal(t, int64(6144), gaps[1].Start)
}

func TestSummary(t *testing.T) {
	d := gptDisk(t)
	s, err := d.Summary()
	require.NoError(t, err)
	assert.Equal(t, partition.KindGPT, s.TableKind)
	assert.Equal(t, 512, s.LogicalSectorSize)
	assert.Equal(t, int64(diskSectors), s.TotalSectors)
	assert.Equal(t, 2, s.PartitionCount)
	assert.False(t, s.RecoveredFromBackup)
	assert.NotEmpty(t, s.TableUUID)

	var gapTotal int64
	gaps, err := d.FreeSpaceGaps()
	require.NoError(t, err)
	for _, g := range gaps {
		gapTotal += g.Length
	}
	assert.Equal(t, gapTotal, s.FreeSectors)
}

func TestSummaryRecovered(t *testing.T) {
	d := gptDisk(t)
	st := d.Store()
	// corrupt the primary header and re-probe
	b, err := st.ReadSectors(1, 1)
	require.NoError(t, err)
	b[25]++
	require.NoError(t, st.WriteSectors(1, b))

	recovered, err := disk.New(st)
	require.NoError(t, err)
	s, err := recovered.Summary()
	require.NoError(t, err)
	assert.True(t, s.RecoveredFromBackup)
}

func TestTxnSlot(t *testing.T) {
	d := gptDisk(t)
	require.NoError(t, d.AcquireTxn())
	err := d.AcquireTxn()
	var locked *disk.TableLockedError
	require.ErrorAs(t, err, &locked)
	d.ReleaseTxn()
	require.NoError(t, d.AcquireTxn())
	d.ReleaseTxn()
}

func TestDetermineDeviceType(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "disk")
	require.NoError(t, err)
	defer f.Close()

	dt, err := disk.DetermineDeviceType(f)
	require.NoError(t, err)
	assert.Equal(t, disk.DeviceTypeFile, dt)

	null, err := os.Open(os.DevNull)
	require.NoError(t, err)
	defer null.Close()

	dt, err = disk.DetermineDeviceType(null)
	require.NoError(t, err)
	assert.Equal(t, disk.DeviceTypeBlockDevice, dt)
}

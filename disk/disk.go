// Package disk provides the handle for a single disk: its geometry, its
// last-committed partition table, and the read-only query surface external
// tooling consumes. All mutation goes through a transaction, and a disk
// admits at most one open transaction at a time.
package disk

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/partfs/go-partfs/bytestore"
	"github.com/partfs/go-partfs/partition"
	"github.com/partfs/go-partfs/partition/gpt"
	"github.com/partfs/go-partfs/partition/part"
)

var log = logrus.WithField("component", "disk")

// Disk is a single block device or disk image with zero or one partition
// table. The table held here is always the last-committed state; staged
// edits live in the transaction until commit.
type Disk struct {
	store              bytestore.Store
	LogicalSectorSize  int
	PhysicalSectorSize int
	Size               int64

	mu      sync.RWMutex
	kind    partition.Kind
	table   part.Table
	txnHeld bool
}

// New probes the store for a partition table and returns a handle. A disk
// with no recognizable table is still usable; Kind is KindNone and queries
// report the whole disk as free.
func New(st bytestore.Store) (*Disk, error) {
	d := &Disk{
		store:              st,
		LogicalSectorSize:  st.SectorSize(),
		PhysicalSectorSize: st.PhysicalSectorSize(),
		Size:               st.TotalSectors() * int64(st.SectorSize()),
	}
	table, kind, err := partition.Read(st)
	if err == nil {
		d.table = table
		d.kind = kind
		if g, ok := table.(*gpt.Table); ok && g.Recovered() {
			log.WithField("disk", g.UUID()).Warn("primary GPT header invalid, recovered from backup")
		}
	}
	return d, nil
}

// Store returns the backing byte store.
func (d *Disk) Store() bytestore.Store {
	return d.store
}

// Table returns the last-committed partition table, or nil when the disk
// has none. The returned table must be treated as read-only; edits go
// through a transaction.
func (d *Disk) Table() part.Table {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.table
}

// Kind returns the kind of the last-committed partition table, KindNone
// when the disk has no table. Safe to call while a commit is swapping the
// table in.
func (d *Disk) Kind() partition.Kind {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.kind
}

// TotalSectors the disk size in logical sectors
func (d *Disk) TotalSectors() int64 {
	return d.store.TotalSectors()
}

// AcquireTxn takes the disk's single-writer transaction slot. A second
// acquisition before release fails with TableLocked.
func (d *Disk) AcquireTxn() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.txnHeld {
		return NewTableLockedError(d.describe())
	}
	d.txnHeld = true
	return nil
}

// ReleaseTxn releases the transaction slot.
func (d *Disk) ReleaseTxn() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txnHeld = false
}

// AdoptTable installs a newly committed table as the disk's active state.
// Called by the transaction engine after a successful commit.
func (d *Disk) AdoptTable(t part.Table, kind partition.Kind) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.table = t
	d.kind = kind
}

func recoveredFromBackup(t part.Table) bool {
	g, ok := t.(*gpt.Table)
	return ok && g.Recovered()
}

func (d *Disk) describe() string {
	return fmt.Sprintf("%d-sector disk", d.TotalSectors())
}

// Close closes the backing store.
func (d *Disk) Close() error {
	return d.store.Close()
}

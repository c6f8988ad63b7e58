// Package txn is the transaction engine: every change to a partition table
// goes through open, stage, commit. A disk admits one open transaction at
// a time; queries keep seeing the last-committed table until commit swaps
// it. Commit writes the backup copy of the table before the primary, so a
// crash mid-commit always leaves a parseable table on disk.
package txn

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/partfs/go-partfs/disk"
	"github.com/partfs/go-partfs/edit"
	"github.com/partfs/go-partfs/geometry"
	"github.com/partfs/go-partfs/partition"
	"github.com/partfs/go-partfs/partition/gpt"
	"github.com/partfs/go-partfs/partition/mbr"
	"github.com/partfs/go-partfs/partition/part"
)

var log = logrus.WithField("component", "txn")

// State is the transaction lifecycle state.
type State int

const (
	StateOpen State = iota
	StateValidating
	StateCommitted
	StateRolledBack
	// StateFailed means commit hit an I/O error after writes may have
	// started. The disk lock stays held until Rollback.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateValidating:
		return "validating"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled back"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type config struct {
	strict bool
	align  geometry.Alignment
}

// Option adjusts transaction policy.
type Option func(*config)

// WithLaxStaging defers all validation to commit time. By default every
// Stage validates the resulting layout and fails fast.
func WithLaxStaging() Option {
	return func(c *config) { c.strict = false }
}

// WithAlignment sets the alignment the validator checks partition starts
// against. The default is the 1 MiB grain; misalignment is a warning, not
// a commit blocker.
func WithAlignment(a geometry.Alignment) Option {
	return func(c *config) { c.align = a }
}

// Transaction is one staged edit session against a single disk.
type Transaction struct {
	d     *disk.Disk
	kind  partition.Kind
	base  part.Table
	work  part.Table
	ops   []edit.Op
	state State
	cfg   config
	// fresh marks a BeginNew transaction, which writes its table even
	// with zero staged edits.
	fresh bool
}

// Begin opens a transaction on the disk's current table. It takes the
// disk's single-writer slot; a second Begin before the first transaction
// finishes fails with TableLocked. A disk without a table cannot be edited
// in place, use BeginNew.
func Begin(d *disk.Disk, opts ...Option) (*Transaction, error) {
	if d.Table() == nil {
		return nil, disk.NewNoTableError()
	}
	if err := d.AcquireTxn(); err != nil {
		return nil, err
	}
	tx := newTransaction(d, d.Kind(), d.Table().Clone(), opts)
	log.WithFields(logrus.Fields{"kind": tx.kind, "strict": tx.cfg.strict}).Debug("transaction opened")
	return tx, nil
}

// BeginNew opens a transaction that replaces whatever the disk holds with
// a fresh empty table of the given kind. Committing with zero staged ops
// writes the new empty table.
func BeginNew(d *disk.Disk, kind partition.Kind, opts ...Option) (*Transaction, error) {
	var (
		table part.Table
		err   error
	)
	switch kind {
	case partition.KindMBR:
		table = mbr.New(d.LogicalSectorSize, d.PhysicalSectorSize)
	case partition.KindGPT:
		table, err = gpt.New(d.TotalSectors(), d.LogicalSectorSize, d.PhysicalSectorSize)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("cannot create a table of kind %q", kind)
	}
	if err := d.AcquireTxn(); err != nil {
		return nil, err
	}
	tx := newTransaction(d, kind, table, opts)
	tx.fresh = true
	log.WithFields(logrus.Fields{"kind": kind, "strict": tx.cfg.strict}).Debug("transaction opened on a fresh table")
	return tx, nil
}

func newTransaction(d *disk.Disk, kind partition.Kind, base part.Table, opts []Option) *Transaction {
	cfg := config{strict: true, align: geometry.OneMiB()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Transaction{
		d:     d,
		kind:  kind,
		base:  base,
		work:  base.Clone(),
		state: StateOpen,
		cfg:   cfg,
	}
}

// State returns the lifecycle state.
func (tx *Transaction) State() State {
	return tx.state
}

// Pending returns the staged operations in order.
func (tx *Transaction) Pending() []edit.Op {
	return append([]edit.Op(nil), tx.ops...)
}

// Table returns the staged view of the table: the base snapshot with every
// staged edit applied. In lax mode edits are not applied until commit, so
// the view lags the pending list. Read-only; queries on the disk itself
// never see this.
func (tx *Transaction) Table() part.Table {
	return tx.work
}

// Stage appends an edit. In strict mode the edit is applied immediately
// and the resulting layout validated as a whole; a failing edit is
// reported and not staged, and the transaction stays usable. In lax mode
// edits accumulate unchecked until Commit.
func (tx *Transaction) Stage(op edit.Op) error {
	if tx.state != StateOpen {
		return NewStateError("stage on", tx.state)
	}
	if tx.cfg.strict {
		next, id, err := edit.Apply(tx.work, op, tx.cfg.align, tx.d.TotalSectors())
		if err != nil {
			return err
		}
		tx.work = next
		log.WithFields(logrus.Fields{"op": op.String(), "partition": id}).Debug("edit staged")
	} else {
		log.WithField("op", op.String()).Debug("edit staged unchecked")
	}
	tx.ops = append(tx.ops, op)
	return nil
}

// Violations validates the staged table and returns every finding,
// warnings included. Useful before Commit in lax mode.
func (tx *Transaction) Violations() []geometry.Violation {
	return edit.Violations(tx.work, tx.cfg.align, tx.d.TotalSectors())
}

// Commit validates the staged table and writes it to the disk in a
// crash-safe order, verifying each phase by re-reading and re-parsing what
// was written. On success the disk adopts the new table and the lock is
// released. A validation failure leaves the transaction Open and the disk
// untouched; an I/O failure leaves it Failed holding the lock, and
// Rollback must be called to release it.
//
// A transaction with zero staged edits commits without touching the disk,
// unless it was opened with BeginNew.
func (tx *Transaction) Commit() error {
	if tx.state != StateOpen {
		return NewStateError("commit", tx.state)
	}
	tx.state = StateValidating

	final := tx.work
	if !tx.cfg.strict {
		// Lax staging: apply the whole sequence now, validating only
		// the final layout.
		f, err := edit.ApplyAll(tx.base, tx.ops, tx.cfg.align, tx.d.TotalSectors())
		if err != nil {
			tx.state = StateOpen
			return NewCommitError("validate", err)
		}
		final = f
		tx.work = f
	}
	if err := final.Verify(tx.d.TotalSectors()); err != nil {
		tx.state = StateOpen
		return NewCommitError("validate", err)
	}

	if len(tx.ops) == 0 && !tx.fresh {
		// Nothing staged; the bytes on disk already are the table.
		tx.state = StateCommitted
		tx.d.ReleaseTxn()
		log.Debug("empty transaction committed, disk untouched")
		return nil
	}

	if err := tx.writeAndVerify(final); err != nil {
		tx.state = StateFailed
		log.WithField("error", err).Error("commit failed, transaction must be rolled back")
		return err
	}

	tx.d.AdoptTable(final, tx.kind)
	tx.state = StateCommitted
	tx.d.ReleaseTxn()
	log.WithField("ops", len(tx.ops)).Debug("transaction committed")
	return nil
}

// writeAndVerify performs the write-ahead sequence. For a GPT the backup
// copy goes down first and is verified by re-parsing before the primary is
// written; the primary header lands last, making the new table live. For
// an MBR the single-sector table write is atomic at sector granularity.
// Either way the final state is re-read from the store and compared
// against what was staged.
func (tx *Transaction) writeAndVerify(final part.Table) error {
	st := tx.d.Store()
	switch table := final.(type) {
	case *gpt.Table:
		if err := table.WriteBackup(st); err != nil {
			return NewCommitError("backup write", err)
		}
		back, err := gpt.ReadBackup(st)
		if err != nil {
			return NewCommitError("backup verify", err)
		}
		if !table.Equal(back) {
			return NewCommitError("backup verify", fmt.Errorf("backup table re-read differs from staged table"))
		}
		log.Debug("backup GPT written and verified")
		if err := table.WritePrimary(st); err != nil {
			return NewCommitError("table write", err)
		}
		reread, err := gpt.Read(st)
		if err != nil {
			return NewCommitError("verify", err)
		}
		if !table.Equal(reread) {
			return NewCommitError("verify", fmt.Errorf("table re-read differs from staged table"))
		}
	case *mbr.Table:
		if err := table.Write(st); err != nil {
			return NewCommitError("table write", err)
		}
		reread, err := mbr.Read(st)
		if err != nil {
			return NewCommitError("verify", err)
		}
		if !table.Equal(reread) {
			return NewCommitError("verify", fmt.Errorf("table re-read differs from staged table"))
		}
	default:
		return NewCommitError("table write", fmt.Errorf("unsupported table type %q", final.Type()))
	}
	if err := st.Sync(); err != nil {
		return NewCommitError("verify", err)
	}
	return nil
}

// Rollback discards the staged edits without writing anything. It is
// always safe, releases the disk lock, and is the required way out of a
// Failed transaction. Rolling back a finished transaction is a no-op.
func (tx *Transaction) Rollback() error {
	switch tx.state {
	case StateCommitted, StateRolledBack:
		return nil
	case StateOpen, StateValidating, StateFailed:
		tx.state = StateRolledBack
		tx.work = nil
		tx.ops = nil
		tx.d.ReleaseTxn()
		log.Debug("transaction rolled back")
		return nil
	default:
		return NewStateError("roll back", tx.state)
	}
}

package gpt_test

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/partfs/go-partfs/bytestore"
	"github.com/partfs/go-partfs/geometry"
	"github.com/partfs/go-partfs/partition/gpt"
	"github.com/partfs/go-partfs/testhelper"
)

const (
	gptFile     = "./testdata/gpt.img"
	diskSectors = 20480
)

func fixtureStore(t *testing.T) *bytestore.MemStore {
	t.Helper()
	b, err := os.ReadFile(gptFile)
	if err != nil {
		t.Fatalf("unable to read test fixture file %s: %v", gptFile, err)
	}
	st, err := bytestore.NewMemStoreFrom(b, 512, false)
	if err != nil {
		t.Fatalf("unable to wrap fixture in memory store: %v", err)
	}
	return st
}

func TestTableType(t *testing.T) {
	expected := "gpt"
	table := gpt.GetValidTable()
	tableType := table.Type()
	if tableType != expected {
		t.Errorf("Type() returned unexpected table type, actual %s expected %s", tableType, expected)
	}
}

func TestTableRead(t *testing.T) {
	t.Run("error reading store", func(t *testing.T) {
		expected := "error reading GPT from store"
		st := &testhelper.StoreImpl{
			Sectors: diskSectors,
			Reader: func(start, count int64) ([]byte, error) {
				return nil, errors.New("read failure")
			},
		}
		table, err := gpt.Read(st)
		if table != nil {
			t.Errorf("returned table instead of nil")
		}
		if err == nil {
			t.Errorf("returned nil error instead of actual errors")
		}
		if !strings.HasPrefix(err.Error(), expected) {
			t.Errorf("error type %s instead of expected %s", err.Error(), expected)
		}
	})
	t.Run("successful read", func(t *testing.T) {
		st := fixtureStore(t)
		table, err := gpt.Read(st)
		if err != nil {
			t.Fatalf("returned error %v instead of nil", err)
		}
		expected := gpt.GetValidTable()
		if !table.Equal(expected) {
			t.Errorf("actual table was %v instead of expected %v", table, expected)
		}
		if table.Recovered() {
			t.Error("table marked recovered on a healthy read")
		}
	})
	t.Run("corrupt primary recovers from backup", func(t *testing.T) {
		st := fixtureStore(t)
		// break the primary header checksum
		b, _ := st.ReadSectors(1, 1)
		b[25]++
		if err := st.WriteSectors(1, b); err != nil {
			t.Fatal(err)
		}
		table, err := gpt.Read(st)
		if err != nil {
			t.Fatalf("returned error %v instead of nil", err)
		}
		if !table.Recovered() {
			t.Error("table not marked recovered")
		}
		expected := gpt.GetValidTable()
		if !table.Equal(expected) {
			t.Errorf("actual table was %v instead of expected %v", table, expected)
		}
	})
	t.Run("corrupt primary and backup", func(t *testing.T) {
		st := fixtureStore(t)
		for _, sector := range []int64{1, diskSectors - 1} {
			b, _ := st.ReadSectors(sector, 1)
			b[25]++
			if err := st.WriteSectors(sector, b); err != nil {
				t.Fatal(err)
			}
		}
		table, err := gpt.Read(st)
		if table != nil {
			t.Errorf("returned table instead of nil")
		}
		if err == nil {
			t.Errorf("returned nil error instead of actual errors")
		}
	})
}

func TestTableWrite(t *testing.T) {
	t.Run("error writing store", func(t *testing.T) {
		table := gpt.GetValidTable()
		st := &testhelper.StoreImpl{
			Sectors: diskSectors,
			Writer: func(start int64, b []byte) (int, error) {
				return 0, errors.New("write failure")
			},
		}
		err := table.Write(st)
		if err == nil {
			t.Errorf("returned nil error instead of actual errors")
		}
		expected := "error writing backup partition array to store"
		if !strings.HasPrefix(err.Error(), expected) {
			t.Errorf("error type %s instead of expected %s", err.Error(), expected)
		}
	})
	t.Run("backup written before primary", func(t *testing.T) {
		table := gpt.GetValidTable()
		var writes []int64
		st := &testhelper.StoreImpl{
			Sectors: diskSectors,
			Writer: func(start int64, b []byte) (int, error) {
				writes = append(writes, start)
				return len(b), nil
			},
		}
		if err := table.Write(st); err != nil {
			t.Fatalf("returned error %v instead of nil", err)
		}
		// backup array, backup header, protective MBR, primary array,
		// primary header
		expected := []int64{diskSectors - 1 - 32, diskSectors - 1, 0, 2, 1}
		if len(writes) != len(expected) {
			t.Fatalf("wrote %d times instead of %d: %v", len(writes), len(expected), writes)
		}
		for i := range writes {
			if writes[i] != expected[i] {
				t.Errorf("write %d went to sector %d instead of %d", i, writes[i], expected[i])
			}
		}
	})
	t.Run("read write round trip", func(t *testing.T) {
		st := fixtureStore(t)
		before := append([]byte(nil), st.Bytes()...)
		table, err := gpt.Read(st)
		if err != nil {
			t.Fatalf("read returned error: %v", err)
		}
		if err := table.Write(st); err != nil {
			t.Fatalf("write returned error: %v", err)
		}
		if different, diff := testhelper.DumpByteSlicesWithDiffs(before, st.Bytes(), 32); different {
			t.Fatalf("unedited rewrite changed bytes on disk:\n%s", diff)
		}
	})
	t.Run("write to blank disk and read back", func(t *testing.T) {
		st := bytestore.NewMemStore(diskSectors, 512)
		table, err := gpt.New(diskSectors, 512, 512)
		if err != nil {
			t.Fatalf("unable to create table: %v", err)
		}
		if _, err := table.CreatePartition(geometry.Geom{Start: 2048, Length: 2048}, gpt.LinuxFilesystem, "root"); err != nil {
			t.Fatalf("unable to create partition: %v", err)
		}
		if err := table.Write(st); err != nil {
			t.Fatalf("write returned error: %v", err)
		}
		reread, err := gpt.Read(st)
		if err != nil {
			t.Fatalf("read returned error: %v", err)
		}
		if !table.Equal(reread) {
			t.Errorf("re-read table %v differs from written table %v", reread, table)
		}
		if !reread.ProtectiveMBR {
			t.Error("protective MBR not written")
		}
	})
}

func TestCreateFindDelete(t *testing.T) {
	st := fixtureStore(t)
	table, err := gpt.Read(st)
	if err != nil {
		t.Fatalf("read returned error: %v", err)
	}

	p, err := table.CreatePartition(geometry.Geom{Start: 4096, Length: 1024}, gpt.LinuxFilesystem, "data")
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}
	if p.Index != 2 {
		t.Errorf("new partition got index %d instead of 2", p.Index)
	}
	if p.GUID == "" {
		t.Error("new partition has no GUID")
	}

	found := table.FindByGUID(p.GUID)
	if found == nil {
		t.Fatal("FindByGUID did not find the new partition")
	}
	if found.Name != "data" {
		t.Errorf("found partition named %q instead of %q", found.Name, "data")
	}

	if !table.DeletePartition(p.GUID) {
		t.Error("DeletePartition returned false for an existing partition")
	}
	if table.FindByGUID(p.GUID) != nil {
		t.Error("partition still present after delete")
	}
	if table.DeletePartition(p.GUID) {
		t.Error("DeletePartition returned true for an absent partition")
	}
}

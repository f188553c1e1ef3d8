package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/dealkit/core"
)

func TestMemoryTableStore_CellAndRowAccess(t *testing.T) {
	m := NewMemoryTableStore("")

	m.SetCell(core.TableDeals, "d1", "merchantName", "acme")
	m.SetCell(core.TableDeals, "d1", "cashback", 5.0)

	if v, ok := m.GetCell(core.TableDeals, "d1", "merchantName"); !ok || v != "acme" {
		t.Errorf("GetCell = %v %v, want acme true", v, ok)
	}
	if _, ok := m.GetCell(core.TableDeals, "d1", "missing"); ok {
		t.Error("missing column must report ok=false")
	}
	if _, ok := m.GetRow(core.TableDeals, "ghost"); ok {
		t.Error("missing row must report ok=false")
	}
	if _, ok := m.GetTable("ghost-table"); ok {
		t.Error("missing table must report ok=false")
	}

	row, ok := m.GetRow(core.TableDeals, "d1")
	if !ok || row["cashback"] != 5.0 {
		t.Fatalf("GetRow = %+v, want cashback 5.0", row)
	}
}

func TestMemoryTableStore_DefensiveCopies(t *testing.T) {
	m := NewMemoryTableStore("")
	m.SetRow(core.TableDeals, "d1", core.Row{"cashback": 1.0})

	row, _ := m.GetRow(core.TableDeals, "d1")
	row["cashback"] = 99.0

	again, _ := m.GetRow(core.TableDeals, "d1")
	if again["cashback"] != 1.0 {
		t.Error("mutating a returned row must not affect the store")
	}
}

func TestMemoryTableStore_SnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tables.json")

	m := NewMemoryTableStore(path)
	m.SetRow(core.TableProfiles, "u1", core.Row{"interests": []any{"tech"}})
	m.SetCell(core.TableGeolocation, core.RowUserGeo, "countryCode", "SE")
	if err := m.Save(context.Background()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	restored := NewMemoryTableStore(path)
	if err := restored.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v, ok := restored.GetCell(core.TableGeolocation, core.RowUserGeo, "countryCode"); !ok || v != "SE" {
		t.Errorf("countryCode = %v %v, want SE true", v, ok)
	}
}

func TestMemoryTableStore_LoadMissingFile(t *testing.T) {
	m := NewMemoryTableStore(filepath.Join(t.TempDir(), "nope.json"))
	if err := m.Load(context.Background()); !errors.Is(err, core.ErrStoreNotFound) {
		t.Errorf("err = %v, want ErrStoreNotFound", err)
	}
}

func TestMemoryTableStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewMemoryTableStore(path)
	err := m.Load(context.Background())
	if err == nil {
		t.Fatal("expected error for corrupt snapshot")
	}
	de := core.GetDomainError(err)
	if de == nil || de.Code != core.ErrorCodeInternalError {
		t.Errorf("err = %v, want INTERNAL_ERROR domain error", err)
	}
}

func TestMemoryTableStore_NoPathIsNoop(t *testing.T) {
	m := NewMemoryTableStore("")
	if err := m.Load(context.Background()); err != nil {
		t.Errorf("Load() error = %v, want nil", err)
	}
	if err := m.Save(context.Background()); err != nil {
		t.Errorf("Save() error = %v, want nil", err)
	}
}

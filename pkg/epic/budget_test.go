package epic

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBudget_CountsWithinMonth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_calls.json")
	b := NewBudget(path, 60, 58)

	jan := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	if got := b.Bump(jan); got != 1 {
		t.Fatalf("first bump = %d, want 1", got)
	}
	if got := b.Bump(jan.Add(24 * time.Hour)); got != 2 {
		t.Fatalf("second bump = %d, want 2", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("counter file not written: %v", err)
	}
	var rec budgetRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("counter file not JSON: %v", err)
	}
	if rec.Count != 2 || rec.Month != "2026-01" {
		t.Errorf("persisted record = %+v", rec)
	}
}

func TestBudget_MonthRolloverResets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_calls.json")
	b := NewBudget(path, 60, 58)

	jan := time.Date(2026, 1, 31, 23, 0, 0, 0, time.UTC)
	b.Bump(jan)
	b.Bump(jan)

	feb := time.Date(2026, 2, 1, 1, 0, 0, 0, time.UTC)
	if got := b.Bump(feb); got != 1 {
		t.Fatalf("bump after rollover = %d, want 1", got)
	}
}

func TestBudget_UnwritableCounterStillCounts(t *testing.T) {
	// Counter persistence is informational; a bad path must not break the
	// call accounting for this invocation.
	b := NewBudget(filepath.Join(t.TempDir(), "missing", "api_calls.json"), 60, 58)
	if got := b.Bump(time.Now()); got != 1 {
		t.Fatalf("bump = %d, want 1", got)
	}
}

func TestBudget_CorruptFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api_calls.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := NewBudget(path, 60, 58)
	if got := b.Bump(time.Now()); got != 1 {
		t.Fatalf("bump = %d, want 1", got)
	}
}

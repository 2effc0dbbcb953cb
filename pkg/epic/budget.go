package epic

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/fredbot/fred/internal/utils"
)

// Budget counts upstream calls per calendar month. The counter is purely
// informational: it warns when the free RapidAPI tier is nearly used up,
// but never blocks a call and never fails a fetch.
type Budget struct {
	mu     sync.Mutex
	path   string
	limit  int
	warnAt int
}

type budgetRecord struct {
	Count int    `json:"count"`
	Month string `json:"month"`
}

func NewBudget(path string, limit, warnAt int) *Budget {
	if limit <= 0 {
		limit = 60
	}
	if warnAt <= 0 {
		warnAt = limit - 2
	}
	return &Budget{path: path, limit: limit, warnAt: warnAt}
}

// Bump records one call attempt and returns the count for the current
// month. The stored count resets whenever the month rolls over.
func (b *Budget) Bump(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.load()
	month := now.Format("2006-01")
	if rec.Month != month {
		rec.Count = 0
	}
	rec.Count++
	rec.Month = month

	if err := b.save(rec); err != nil {
		utils.Log.Warnf("Could not persist API call counter: %v", err)
	}
	if rec.Count > b.warnAt {
		utils.Log.Warnf("API call #%d/%d this month, approaching the monthly limit", rec.Count, b.limit)
	}
	return rec.Count
}

// Missing or unreadable counter files start a fresh month.
func (b *Budget) load() budgetRecord {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return budgetRecord{}
	}
	var rec budgetRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return budgetRecord{}
	}
	return rec
}

func (b *Budget) save(rec budgetRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, data, 0o644)
}

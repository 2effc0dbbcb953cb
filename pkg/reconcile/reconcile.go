// Package reconcile decides whether a freshly fetched snapshot differs from
// the last announced one, what to persist, and what to announce.
package reconcile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fredbot/fred/pkg/epic"
	"github.com/fredbot/fred/pkg/state"
)

const dateLayout = "2006-01-02"

// Trigger identifies what started a reconciliation.
type Trigger int

const (
	// Scheduled runs come from the daily scheduler tick.
	Scheduled Trigger = iota
	// Manual runs come from an explicit requester.
	Manual
	// Forced runs re-announce even when nothing changed.
	Forced
)

// Outcome of a completed (non-failed) reconciliation.
type Outcome int

const (
	Unchanged Outcome = iota
	Changed
)

// Fetcher is satisfied by the Epic catalog client.
type Fetcher interface {
	Fetch(ctx context.Context) (*epic.Snapshot, error)
}

// Result is the announcement payload of one reconciliation.
type Result struct {
	Outcome Outcome

	// Current is the full current set; it is re-announced whole on every
	// change. NewUpcoming carries only upcoming entries not seen before,
	// never the retained backlog.
	Current     []epic.Game
	NewUpcoming []epic.Game

	// ConfirmationArmed is set when an unchanged manual check granted the
	// requester a re-display window.
	ConfirmationArmed bool
	RequestedBy       string
}

// Engine compares snapshots against the store and owns all writes to it.
// Reconciliations are mutually exclusive: a manual trigger arriving during
// a scheduled run waits its turn rather than interleaving.
type Engine struct {
	mu      sync.Mutex
	fetcher Fetcher
	store   *state.Store
	confirm *Confirmations
	loc     *time.Location
	now     func() time.Time
}

func NewEngine(fetcher Fetcher, store *state.Store, confirm *Confirmations, loc *time.Location) *Engine {
	return &Engine{
		fetcher: fetcher,
		store:   store,
		confirm: confirm,
		loc:     loc,
		now:     time.Now,
	}
}

// Reconcile runs one compare-and-update cycle. A fetch failure returns an
// error with no state touched, so the scheduler's next tick retries. A
// persistence failure also aborts the attempt: no success is reported and
// the daily-run date does not advance.
func (e *Engine) Reconcile(ctx context.Context, trigger Trigger, requester string) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching free games: %w", err)
	}

	today := e.now().In(e.loc).Format(dateLayout)

	if sameTitles(snap.Current, e.store.Current()) && trigger != Forced {
		res := &Result{Outcome: Unchanged, RequestedBy: requester}
		if trigger == Manual && requester != "" {
			e.confirm.Arm(requester, e.now())
			res.ConfirmationArmed = true
		}
		if trigger == Scheduled {
			// A confirmed "nothing new" still counts as today's run, or
			// the scheduler would poll the API again every tick until
			// midnight.
			if err := e.store.MarkDailyRun(today); err != nil {
				return nil, fmt.Errorf("recording daily run: %w", err)
			}
		}
		return res, nil
	}

	current := snap.Current
	currentTitles := titleSet(current)

	// Games that went live drop off the upcoming backlog.
	var retained []epic.Game
	for _, g := range e.store.Upcoming() {
		if inSet(currentTitles, g.Title) {
			continue
		}
		retained = append(retained, g)
	}

	retainedTitles := titleSet(retained)
	var newUpcoming []epic.Game
	for _, g := range snap.Upcoming {
		if inSet(currentTitles, g.Title) || inSet(retainedTitles, g.Title) {
			continue
		}
		newUpcoming = append(newUpcoming, g)
	}

	if err := e.store.Replace(current, append(retained, newUpcoming...), today); err != nil {
		return nil, fmt.Errorf("persisting free games state: %w", err)
	}

	return &Result{
		Outcome:     Changed,
		Current:     current,
		NewUpcoming: newUpcoming,
		RequestedBy: requester,
	}, nil
}

// sameTitles compares the title sets of two game lists. The title is the
// only identity the feed gives us.
func sameTitles(a, b []epic.Game) bool {
	as := make(map[string]bool, len(a))
	for _, g := range a {
		as[g.Title] = true
	}
	bs := make(map[string]bool, len(b))
	for _, g := range b {
		bs[g.Title] = true
	}
	if len(as) != len(bs) {
		return false
	}
	for t := range as {
		if !bs[t] {
			return false
		}
	}
	return true
}

func titleSet(games []epic.Game) map[string]bool {
	set := make(map[string]bool, len(games))
	for _, g := range games {
		if g.Title == "" {
			// Untitled entries carry no identity and never join the set;
			// they are treated as new every time.
			continue
		}
		set[g.Title] = true
	}
	return set
}

func inSet(set map[string]bool, title string) bool {
	if title == "" {
		return false
	}
	return set[title]
}

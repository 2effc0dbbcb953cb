package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fredbot/fred/pkg/reconcile"
	"github.com/fredbot/fred/pkg/state"
)

// fakeEngine mimics the real engine's contract: any non-failed run
// advances the store's daily-run date.
type fakeEngine struct {
	store   *state.Store
	outcome reconcile.Outcome
	err     error
	runDate string
	calls   int
}

func (f *fakeEngine) Reconcile(ctx context.Context, trigger reconcile.Trigger, requester string) (*reconcile.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if err := f.store.MarkDailyRun(f.runDate); err != nil {
		return nil, err
	}
	return &reconcile.Result{Outcome: f.outcome}, nil
}

func newTestScheduler(t *testing.T, engine *fakeEngine, announce func(*reconcile.Result)) *Scheduler {
	t.Helper()
	s, err := New(engine, engine.store, announce, Config{
		Interval: 15 * time.Minute,
		At:       "17:01",
		Location: time.UTC,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func openStore(t *testing.T) *state.Store {
	t.Helper()
	store, err := state.Open(t.TempDir())
	if err != nil {
		t.Fatalf("state.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestTick_FiresOncePerDay(t *testing.T) {
	engine := &fakeEngine{store: openStore(t), outcome: reconcile.Unchanged, runDate: "2026-08-29"}
	s := newTestScheduler(t, engine, nil)

	now := time.Date(2026, 8, 29, 17, 16, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		s.tick()
		now = now.Add(15 * time.Minute)
	}
	if engine.calls != 1 {
		t.Errorf("engine invoked %d times, want 1", engine.calls)
	}
}

func TestTick_BeforeTriggerTimeDoesNothing(t *testing.T) {
	engine := &fakeEngine{store: openStore(t), outcome: reconcile.Unchanged, runDate: "2026-08-29"}
	s := newTestScheduler(t, engine, nil)

	s.now = func() time.Time { return time.Date(2026, 8, 29, 16, 59, 0, 0, time.UTC) }
	s.tick()
	if engine.calls != 0 {
		t.Errorf("engine invoked %d times before trigger time", engine.calls)
	}
}

func TestTick_AlreadyRanTodayDoesNothing(t *testing.T) {
	store := openStore(t)
	if err := store.MarkDailyRun("2026-08-29"); err != nil {
		t.Fatal(err)
	}
	engine := &fakeEngine{store: store, outcome: reconcile.Changed, runDate: "2026-08-29"}
	s := newTestScheduler(t, engine, nil)

	s.now = func() time.Time { return time.Date(2026, 8, 29, 18, 0, 0, 0, time.UTC) }
	s.tick()
	if engine.calls != 0 {
		t.Errorf("engine invoked %d times though today already ran", engine.calls)
	}
}

func TestTick_FailureRetriesNextTick(t *testing.T) {
	engine := &fakeEngine{store: openStore(t), err: errors.New("api down"), runDate: "2026-08-29"}
	s := newTestScheduler(t, engine, nil)

	s.now = func() time.Time { return time.Date(2026, 8, 29, 17, 16, 0, 0, time.UTC) }
	s.tick()
	s.tick()
	if engine.calls != 2 {
		t.Fatalf("engine invoked %d times, failed runs should retry", engine.calls)
	}

	// Recovery: the next tick succeeds and the one after stays quiet.
	engine.err = nil
	engine.outcome = reconcile.Unchanged
	s.tick()
	s.tick()
	if engine.calls != 3 {
		t.Errorf("engine invoked %d times, want 3 (one successful run)", engine.calls)
	}
}

func TestTick_AnnouncesOnlyChanged(t *testing.T) {
	announced := 0
	engine := &fakeEngine{store: openStore(t), outcome: reconcile.Unchanged, runDate: "2026-08-29"}
	s := newTestScheduler(t, engine, func(*reconcile.Result) { announced++ })

	s.now = func() time.Time { return time.Date(2026, 8, 29, 17, 16, 0, 0, time.UTC) }
	s.tick()
	if announced != 0 {
		t.Fatal("unchanged result must not be announced")
	}

	engine.outcome = reconcile.Changed
	engine.runDate = "2026-08-30"
	s.now = func() time.Time { return time.Date(2026, 8, 30, 17, 16, 0, 0, time.UTC) }
	s.tick()
	if announced != 1 {
		t.Errorf("announced %d times, want 1", announced)
	}
}

func TestNextRun(t *testing.T) {
	engine := &fakeEngine{store: openStore(t)}
	s := newTestScheduler(t, engine, nil)

	morning := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	if got := s.NextRun(morning); !got.Equal(time.Date(2026, 8, 29, 17, 1, 0, 0, time.UTC)) {
		t.Errorf("NextRun before trigger = %v", got)
	}

	evening := time.Date(2026, 8, 29, 18, 0, 0, 0, time.UTC)
	if got := s.NextRun(evening); !got.Equal(time.Date(2026, 8, 30, 17, 1, 0, 0, time.UTC)) {
		t.Errorf("NextRun after trigger = %v", got)
	}

	exactly := time.Date(2026, 8, 29, 17, 1, 0, 0, time.UTC)
	if got := s.NextRun(exactly); !got.Equal(time.Date(2026, 8, 30, 17, 1, 0, 0, time.UTC)) {
		t.Errorf("NextRun at trigger instant = %v, should roll to tomorrow", got)
	}
}

func TestNew_BadTriggerTime(t *testing.T) {
	engine := &fakeEngine{store: openStore(t)}
	if _, err := New(engine, engine.store, nil, Config{At: "25:99"}); err == nil {
		t.Fatal("expected error for invalid trigger time")
	}
}

func TestStartStop(t *testing.T) {
	engine := &fakeEngine{store: openStore(t), outcome: reconcile.Unchanged, runDate: "2026-08-29"}
	s := newTestScheduler(t, engine, nil)
	s.interval = 10 * time.Millisecond
	s.now = func() time.Time { return time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC) }

	s.Start()
	s.Start() // second Start is a no-op
	time.Sleep(35 * time.Millisecond)
	s.Stop()
	s.Stop() // second Stop is a no-op
}

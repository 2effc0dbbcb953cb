// Package schedule gates the daily reconciliation: a low-frequency tick
// samples the wall clock and fires at most once per calendar day.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fredbot/fred/internal/utils"
	"github.com/fredbot/fred/pkg/reconcile"
	"github.com/fredbot/fred/pkg/state"
)

const dateLayout = "2006-01-02"

// Reconciler is satisfied by *reconcile.Engine.
type Reconciler interface {
	Reconcile(ctx context.Context, trigger reconcile.Trigger, requester string) (*reconcile.Result, error)
}

// Config for a Scheduler.
type Config struct {
	Interval time.Duration  // tick spacing; default 15m
	At       string         // daily trigger time of day, "HH:MM"
	Location *time.Location // local timezone for the trigger
}

// Scheduler ticks every Interval and invokes the engine once local time
// passes the trigger time, as long as the store's daily-run date is not
// today. The engine advances that date on any non-failed run, so a failed
// fetch retries on the next tick while a completed one stays quiet until
// tomorrow.
type Scheduler struct {
	engine   Reconciler
	store    *state.Store
	announce func(*reconcile.Result)

	interval     time.Duration
	hour, minute int
	loc          *time.Location
	now          func() time.Time

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New builds a Scheduler. announce receives every Changed result and may be
// nil.
func New(engine Reconciler, store *state.Store, announce func(*reconcile.Result), cfg Config) (*Scheduler, error) {
	at, err := time.Parse("15:04", cfg.At)
	if err != nil {
		return nil, fmt.Errorf("bad trigger time %q: %w", cfg.At, err)
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		engine:   engine,
		store:    store,
		announce: announce,
		interval: interval,
		hour:     at.Hour(),
		minute:   at.Minute(),
		loc:      loc,
		now:      time.Now,
	}, nil
}

func (s *Scheduler) Start() {
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.wg.Add(1)
	go s.loop()
	utils.Log.Infof("Daily check armed for %02d:%02d %s, ticking every %v", s.hour, s.minute, s.loc, s.interval)
}

func (s *Scheduler) Stop() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	s.wg.Wait()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.tick()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Scheduler) tick() {
	now := s.now().In(s.loc)
	if now.Before(s.triggerAt(now)) || s.store.LastDailyRun() == now.Format(dateLayout) {
		return
	}

	utils.Log.Infof("Running daily check at %s", now.Format("2006-01-02 15:04:05"))
	res, err := s.engine.Reconcile(context.Background(), reconcile.Scheduled, "")
	if err != nil {
		utils.Log.Warnf("Daily check failed, will retry next tick: %v", err)
		return
	}
	if res.Outcome == reconcile.Changed && s.announce != nil {
		s.announce(res)
	}
}

func (s *Scheduler) triggerAt(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), s.hour, s.minute, 0, 0, s.loc)
}

// TriggerLabel renders the daily trigger time for display, e.g.
// "17:01 Europe/Warsaw".
func (s *Scheduler) TriggerLabel() string {
	return fmt.Sprintf("%02d:%02d %s", s.hour, s.minute, s.loc)
}

// NextRun reports the next instant the daily check can fire, rolling over
// to tomorrow when today's trigger time has passed.
func (s *Scheduler) NextRun(now time.Time) time.Time {
	now = now.In(s.loc)
	target := s.triggerAt(now)
	if !now.Before(target) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

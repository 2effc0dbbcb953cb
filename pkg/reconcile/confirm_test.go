package reconcile

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 8, 29, 17, 30, 0, 0, time.UTC)

func TestConfirm_ConsumeWithinWindow(t *testing.T) {
	c := NewConfirmations(time.Minute)
	c.Arm("@user", t0)

	if !c.TryConsume("@user", t0.Add(30*time.Second)) {
		t.Fatal("consume within the window should succeed")
	}
	if c.TryConsume("@user", t0.Add(31*time.Second)) {
		t.Fatal("second consume should fail, token already spent")
	}
}

func TestConfirm_Expired(t *testing.T) {
	c := NewConfirmations(time.Minute)
	c.Arm("@user", t0)

	if c.TryConsume("@user", t0.Add(61*time.Second)) {
		t.Fatal("consume past the window should fail")
	}
	// The stale token is gone even though consumption failed.
	if c.TryConsume("@user", t0.Add(5*time.Second)) {
		t.Fatal("expired token must be deleted at lookup")
	}
}

func TestConfirm_AbsentRequester(t *testing.T) {
	c := NewConfirmations(time.Minute)
	if c.TryConsume("@nobody", t0) {
		t.Fatal("consume with no token should fail")
	}
}

func TestConfirm_RearmReplaces(t *testing.T) {
	c := NewConfirmations(time.Minute)
	c.Arm("@user", t0)
	c.Arm("@user", t0.Add(2*time.Minute))

	// The first token's expiry no longer applies.
	if !c.TryConsume("@user", t0.Add(150*time.Second)) {
		t.Fatal("re-armed token should honor the newer expiry")
	}
}

func TestConfirm_PerRequesterIsolation(t *testing.T) {
	c := NewConfirmations(time.Minute)
	c.Arm("@a", t0)
	c.Arm("@b", t0)

	if !c.TryConsume("@a", t0.Add(time.Second)) {
		t.Fatal("@a token should be live")
	}
	if !c.TryConsume("@b", t0.Add(time.Second)) {
		t.Fatal("consuming @a must not touch @b")
	}
}

func TestConfirm_DefaultWindow(t *testing.T) {
	c := NewConfirmations(0)
	if c.Window() != DefaultConfirmWindow {
		t.Errorf("Window = %v, want %v", c.Window(), DefaultConfirmWindow)
	}
}

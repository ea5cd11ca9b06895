package clock

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualFiresInDeadlineOrder(t *testing.T) {
	clk := NewManual(epoch)

	var fired []string
	clk.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
	clk.AfterFunc(1*time.Second, func() { fired = append(fired, "a") })
	clk.AfterFunc(2*time.Second, func() { fired = append(fired, "b") })
	clk.AfterFunc(10*time.Second, func() { fired = append(fired, "late") })

	clk.Advance(3 * time.Second)

	if diff := cmp.Diff([]string{"a", "b", "c"}, fired); diff != "" {
		t.Errorf("Unexpected firing order (-want +got):\n%s", diff)
	}
	if got := clk.Pending(); got != 1 {
		t.Errorf("Expected 1 pending timer, got %d", got)
	}
	if got := clk.Now(); !got.Equal(epoch.Add(3 * time.Second)) {
		t.Errorf("Expected clock at +3s, got %v", got)
	}
}

func TestManualCallbackSeesDeadline(t *testing.T) {
	clk := NewManual(epoch)

	var at time.Time
	clk.AfterFunc(time.Second, func() { at = clk.Now() })
	clk.Advance(5 * time.Second)

	if !at.Equal(epoch.Add(time.Second)) {
		t.Errorf("Expected callback to run at +1s, got %v", at)
	}
}

func TestManualRearmFromCallback(t *testing.T) {
	clk := NewManual(epoch)

	count := 0
	var tick func()
	tick = func() {
		count++
		clk.AfterFunc(time.Second, tick)
	}
	clk.AfterFunc(time.Second, tick)

	clk.Advance(3 * time.Second)
	if count != 3 {
		t.Errorf("Expected 3 ticks, got %d", count)
	}
	if got := clk.Pending(); got != 1 {
		t.Errorf("Expected the next tick to be pending, got %d timers", got)
	}
}

func TestManualStop(t *testing.T) {
	clk := NewManual(epoch)

	fired := false
	timer := clk.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Error("Expected Stop to report that it prevented the call")
	}
	if timer.Stop() {
		t.Error("Expected second Stop to report false")
	}

	clk.Advance(time.Minute)
	if fired {
		t.Error("Expected stopped timer not to fire")
	}

	timer = clk.AfterFunc(time.Second, func() {})
	clk.Advance(time.Second)
	if timer.Stop() {
		t.Error("Expected Stop after firing to report false")
	}
}

func TestRealAfterFunc(t *testing.T) {
	done := make(chan struct{})
	Real{}.AfterFunc(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Real timer did not fire")
	}
}

// ABOUTME: Tests for the rolling-window arrival-rate monitor
// ABOUTME: Uses a stepped fake clock for deterministic window expiry

package rate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock steps time manually.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time          { return f.now }
func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func TestMonitor_QuietStreamIsLive(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	m := NewWithClock(250*time.Millisecond, 3, clk.Now)

	assert.False(t, m.IsUnderThreshold())

	m.Record()
	clk.Advance(100 * time.Millisecond)
	m.Record()

	assert.False(t, m.IsUnderThreshold(), "two arrivals do not exceed burst of three")
}

func TestMonitor_BurstTripsThreshold(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	m := NewWithClock(250*time.Millisecond, 3, clk.Now)

	for i := 0; i < 4; i++ {
		m.Record()
		clk.Advance(10 * time.Millisecond)
	}

	assert.True(t, m.IsUnderThreshold(), "more than burst arrivals inside the window")
}

func TestMonitor_WindowExpiryResets(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	m := NewWithClock(250*time.Millisecond, 3, clk.Now)

	for i := 0; i < 10; i++ {
		m.Record()
	}
	assert.True(t, m.IsUnderThreshold())

	clk.Advance(300 * time.Millisecond)
	assert.False(t, m.IsUnderThreshold(), "window elapsed with no further arrivals")
}

func TestMonitor_SlidingWindow(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	m := NewWithClock(250*time.Millisecond, 2, clk.Now)

	m.Record()
	m.Record()
	clk.Advance(200 * time.Millisecond)
	m.Record()
	assert.True(t, m.IsUnderThreshold())

	// First two samples age out; only one remains in the window.
	clk.Advance(100 * time.Millisecond)
	assert.False(t, m.IsUnderThreshold())
}

func TestMonitor_Defaults(t *testing.T) {
	m := New(0, 0)
	assert.Equal(t, DefaultWindow, m.window)
	assert.Equal(t, DefaultBurst, m.burst)
}

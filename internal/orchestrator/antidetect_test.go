package orchestrator

import (
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time            { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestAnti(c *fakeClock) *AntiDetection {
	a := NewAntiDetection()
	a.now = c.now
	a.rnd = rand.New(rand.NewPCG(1, 2))
	return a
}

func inRange(t *testing.T, name string, d, lo, hi time.Duration) {
	t.Helper()
	if d < lo || d > hi {
		t.Errorf("%s = %v, want within [%v, %v]", name, d, lo, hi)
	}
}

func TestCalculateDelay(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	a := newTestAnti(clock)

	inRange(t, "first", a.CalculateDelay(), time.Second, 3*time.Second)

	// 1s later: burst penalty plus short-average penalty.
	clock.advance(time.Second)
	inRange(t, "burst", a.CalculateDelay(), 4*time.Second, 11*time.Second)

	// 20s later: average of (1s, 20s) is over 3s, so only the base delay.
	clock.advance(20 * time.Second)
	inRange(t, "calm", a.CalculateDelay(), time.Second, 3*time.Second)
}

func TestCalculateDelayKeepsTenIntervals(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	a := newTestAnti(clock)
	for range 15 {
		a.CalculateDelay()
		clock.advance(10 * time.Second)
	}
	if len(a.intervals) != maxIntervals {
		t.Fatalf("intervals = %d, want %d", len(a.intervals), maxIntervals)
	}
}

func TestHumanBehavior(t *testing.T) {
	a := newTestAnti(&fakeClock{t: time.Now()})
	for range 50 {
		p := a.HumanBehavior()
		if p.ScrollCount < 2 || p.ScrollCount > 5 {
			t.Fatalf("scroll count %d", p.ScrollCount)
		}
		if p.RandomPauses < 1 || p.RandomPauses > 3 {
			t.Fatalf("pauses %d", p.RandomPauses)
		}
		if p.MouseMoves < 3 || p.MouseMoves > 8 {
			t.Fatalf("mouse moves %d", p.MouseMoves)
		}
		inRange(t, "scroll delay", p.ScrollDelay, 500*time.Millisecond, 2*time.Second)
		inRange(t, "mouse delay", p.MouseDelay, 100*time.Millisecond, 500*time.Millisecond)
		inRange(t, "reading", p.ReadingTime, 5*time.Second, 15*time.Second)
	}
}

func TestUserAgentConcurrent(t *testing.T) {
	a := NewAntiDetection()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				if ua := a.UserAgent(); strings.TrimSpace(ua) == "" {
					t.Errorf("unexpected UA %q", ua)
				}
				a.CalculateDelay()
			}
		}()
	}
	wg.Wait()
}

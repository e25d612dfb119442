package orchestrator

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/anatolykoptev/go_resume/internal/engine"
	"github.com/anatolykoptev/go_resume/internal/scraper"
)

var fallbackUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

const maxIntervals = 10

// AntiDetection paces requests so traffic looks less like a bot.
type AntiDetection struct {
	mu        sync.Mutex
	now       func() time.Time
	rnd       *rand.Rand
	agents    []string
	last      time.Time
	intervals []time.Duration
}

// NewAntiDetection seeds the UA pool with the fixed list plus generated ones.
func NewAntiDetection() *AntiDetection {
	agents := append([]string{}, fallbackUserAgents...)
	for range 6 {
		if ua := engine.RandomUserAgent(); ua != "" {
			agents = append(agents, ua)
		}
	}
	return &AntiDetection{
		now:    time.Now,
		rnd:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		agents: agents,
	}
}

// UserAgent returns a random UA from the pool.
func (a *AntiDetection) UserAgent() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.agents[a.rnd.IntN(len(a.agents))]
}

func (a *AntiDetection) uniform(lo, hi float64) time.Duration {
	return time.Duration((lo + a.rnd.Float64()*(hi-lo)) * float64(time.Second))
}

// CalculateDelay returns the wait before the next request. Bursts of
// requests (under 2s apart, or averaging under 3s) lengthen it.
func (a *AntiDetection) CalculateDelay() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()

	delay := a.uniform(1, 3)
	now := a.now()
	hasLast := !a.last.IsZero()

	if hasLast && now.Sub(a.last) < 2*time.Second {
		delay += a.uniform(2, 5)
	}

	if len(a.intervals) >= maxIntervals {
		a.intervals = a.intervals[1:]
	}
	if hasLast {
		a.intervals = append(a.intervals, now.Sub(a.last))
		var sum time.Duration
		for _, iv := range a.intervals {
			sum += iv
		}
		if sum/time.Duration(len(a.intervals)) < 3*time.Second {
			delay += a.uniform(1, 3)
		}
	}

	a.last = now
	return delay
}

// BehaviorPlan describes one simulated reading session.
type BehaviorPlan = scraper.BehaviorPlan

// HumanBehavior draws a randomized browsing plan.
func (a *AntiDetection) HumanBehavior() BehaviorPlan {
	a.mu.Lock()
	defer a.mu.Unlock()
	return BehaviorPlan{
		ScrollCount:  2 + a.rnd.IntN(4),
		ScrollDelay:  a.uniform(0.5, 2),
		RandomPauses: 1 + a.rnd.IntN(3),
		MouseMoves:   3 + a.rnd.IntN(6),
		MouseDelay:   a.uniform(0.1, 0.5),
		ReadingTime:  a.uniform(5, 15),
	}
}

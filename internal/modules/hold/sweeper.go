package hold

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// SweepStep is one cleanup pass run on every sweeper tick.
type SweepStep struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// Sweeper runs the expiry steps on a fixed interval. Reads never depend on
// it: expired holds are already ignored by accounting, the sweep only
// reclaims rows and cancels stale pending bookings.
type Sweeper struct {
	interval  time.Duration
	steps     []SweepStep
	scheduler gocron.Scheduler

	mu     sync.Mutex
	cancel context.CancelFunc
}

func NewSweeper(interval time.Duration, steps ...SweepStep) *Sweeper {
	return &Sweeper{interval: interval, steps: steps}
}

// Start schedules RunOnce every interval. Overlapping ticks are skipped.
func (s *Sweeper) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	_, err = sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() { s.RunOnce(runCtx) }),
		gocron.WithName("hold-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		_ = sched.Shutdown()
		return err
	}

	s.mu.Lock()
	s.scheduler = sched
	s.cancel = cancel
	s.mu.Unlock()

	sched.Start()
	log.Printf("hold sweeper started interval=%s steps=%d", s.interval, len(s.steps))
	return nil
}

// RunOnce executes every step in order and returns the per-step counts. A
// failing step is logged and does not stop later steps.
func (s *Sweeper) RunOnce(ctx context.Context) map[string]int {
	out := make(map[string]int, len(s.steps))
	for _, step := range s.steps {
		n, err := step.Run(ctx)
		out[step.Name] = n
		if err != nil {
			log.Printf("hold_sweep_error step=%s affected=%d error=%q", step.Name, n, err)
		}
	}
	return out
}

func (s *Sweeper) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.scheduler == nil {
		return nil
	}
	err := s.scheduler.Shutdown()
	s.scheduler = nil
	return err
}

// Package scheduler runs the game's periodic jobs: egg progress reports,
// auto-save, the breeding cooldown sweep, and capsule regeneration.
package scheduler

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/critter/internal/config"
	"github.com/hpungsan/critter/internal/creature"
	"github.com/hpungsan/critter/internal/incubation"
	"github.com/hpungsan/critter/internal/persist"
	"github.com/hpungsan/critter/internal/state"
)

// Job names.
const (
	JobProgress = "egg-progress"
	JobAutoSave = "auto-save"
	JobCooldown = "cooldown-sweep"
	JobRegen    = "capsule-regen"
)

// Job is one periodic task. Errors are logged and the job keeps running.
type Job struct {
	Name     string
	Interval time.Duration
	// Immediate runs the job once before the first tick.
	Immediate bool
	Run       func(ctx context.Context) error
}

// Saver persists the game. The snapshot is taken by the saver so that
// concurrent saves stay ordered.
type Saver interface {
	SaveFrom(ctx context.Context, src persist.Source) error
}

// EggProgress is one egg in a progress report.
type EggProgress struct {
	Index    int                 `json:"index"`
	EggID    string              `json:"egg_id"`
	Progress incubation.Progress `json:"progress"`
}

// ProgressSink receives egg progress on every progress tick.
type ProgressSink func(at time.Time, eggs []EggProgress)

// Options configure a Scheduler. Saver and Sink are optional.
type Options struct {
	State  *state.GameState
	Saver  Saver
	Sink   ProgressSink
	Config *config.Config
	Logger *log.Logger
}

// Scheduler owns the periodic jobs of one game.
type Scheduler struct {
	jobs   []Job
	logger *log.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// New builds the standard job set from the configured intervals.
func New(opts Options) *Scheduler {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	gs := opts.State

	jobs := []Job{
		{
			Name:     JobCooldown,
			Interval: cfg.CooldownSweep(),
			Run: func(context.Context) error {
				gs.CleanExpiredCooldowns()
				return nil
			},
		},
		{
			Name:      JobRegen,
			Interval:  cfg.RegenCheck(),
			Immediate: true,
			Run: func(context.Context) error {
				if n := gs.RegenerateCapsules(); n > 0 {
					logger.Printf("regenerated %d capsule(s)", n)
				}
				return nil
			},
		},
	}
	if opts.Sink != nil {
		sink := opts.Sink
		jobs = append(jobs, Job{
			Name:     JobProgress,
			Interval: cfg.ProgressTick(),
			Run: func(context.Context) error {
				at, eggs := Progress(gs)
				if len(eggs) > 0 {
					sink(at, eggs)
				}
				return nil
			},
		})
	}
	if opts.Saver != nil {
		saver := opts.Saver
		jobs = append(jobs, Job{
			Name:     JobAutoSave,
			Interval: cfg.AutoSave(),
			Run: func(ctx context.Context) error {
				return saver.SaveFrom(ctx, gs)
			},
		})
	}
	return NewWithJobs(logger, jobs...)
}

// NewWithJobs creates a scheduler for arbitrary jobs.
func NewWithJobs(logger *log.Logger, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Scheduler{jobs: jobs, logger: logger}
}

// Jobs returns the configured jobs.
func (s *Scheduler) Jobs() []Job {
	return s.jobs
}

// Progress reads every egg's progress in one consistent view.
func Progress(gs *state.GameState) (time.Time, []EggProgress) {
	var at time.Time
	var out []EggProgress
	gs.View(func(v *state.Reader) {
		at = v.Now()
		out = progressOf(v.Eggs(), at)
	})
	return at, out
}

func progressOf(eggs []creature.Egg, now time.Time) []EggProgress {
	out := make([]EggProgress, 0, len(eggs))
	for i, e := range eggs {
		out = append(out, EggProgress{Index: i, EggID: e.InstanceID, Progress: incubation.CalculateProgress(e, now)})
	}
	return out
}

// Run starts every job and blocks until ctx is canceled or Stop is called.
// After Stop, Run returns immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.cancel = cancel
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		if job.Interval <= 0 || job.Run == nil {
			continue
		}
		g.Go(func() error {
			s.loop(gctx, job)
			return nil
		})
	}
	return g.Wait()
}

// Stop cancels a running Run and keeps any later Run from starting. It is
// safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	if job.Immediate {
		s.runOnce(ctx, job)
	}
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, job)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Printf("job %s panicked: %v", job.Name, r)
		}
	}()
	if err := job.Run(ctx); err != nil {
		s.logger.Printf("job %s failed: %v", job.Name, err)
	}
}

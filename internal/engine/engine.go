// Package engine assembles one game: the database, the persisted state, the
// catalog, the use cases, and the periodic jobs.
package engine

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/hpungsan/critter/internal/catalog"
	"github.com/hpungsan/critter/internal/clock"
	"github.com/hpungsan/critter/internal/config"
	"github.com/hpungsan/critter/internal/db"
	"github.com/hpungsan/critter/internal/ops"
	"github.com/hpungsan/critter/internal/persist"
	"github.com/hpungsan/critter/internal/random"
	"github.com/hpungsan/critter/internal/scheduler"
	"github.com/hpungsan/critter/internal/state"
)

// Options override collaborators Open would otherwise build itself.
type Options struct {
	Logger  *log.Logger
	Clock   clock.Clock
	Random  random.Source
	Catalog catalog.Catalog
}

// Engine owns one game for the lifetime of the process.
type Engine struct {
	cfg       *config.Config
	db        *sql.DB
	gateway   *persist.Gateway
	state     *state.GameState
	catalog   catalog.Catalog
	presenter *ops.Presenter
	logger    *log.Logger

	mu      sync.Mutex
	sinks   []scheduler.ProgressSink
	cancel  context.CancelFunc
	done    chan struct{}
	closed  bool
	restore bool
}

// Open initializes the database under baseDir, restores the saved game, and
// wires persistence, the catalog and the use cases. Timers do not run until
// Start.
func Open(ctx context.Context, baseDir string, cfg *config.Config, opts Options) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real{}
	}
	src := opts.Random
	if src == nil {
		var err error
		if src, err = random.New(); err != nil {
			return nil, fmt.Errorf("seed random source: %w", err)
		}
	}

	database, err := db.Init(baseDir)
	if err != nil {
		return nil, err
	}
	db.ConfigurePool(database, cfg)

	store := db.NewStore(database)
	gw := persist.New(store, logger)
	gs := state.New(state.SettingsFrom(cfg), clk, logger)

	restored, err := gw.Restore(ctx, gs)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("restore game: %w", err)
	}
	if n := gs.RegenerateCapsules(); n > 0 {
		logger.Printf("regenerated %d capsule(s) while away", n)
	}
	gs.AddObserver(gw.Observer(gs))

	cat := opts.Catalog
	if cat == nil {
		if cat, err = buildCatalog(cfg, store, logger); err != nil {
			database.Close()
			return nil, err
		}
	}

	return &Engine{
		cfg:     cfg,
		db:      database,
		gateway: gw,
		state:   gs,
		catalog: cat,
		presenter: ops.New(ops.Deps{
			State:   gs,
			Catalog: cat,
			Random:  src,
			Config:  cfg,
			Clock:   clk,
			Logger:  logger,
		}),
		logger:  logger,
		restore: restored,
	}, nil
}

// buildCatalog prefers a configured static file over the HTTP catalog. The
// HTTP catalog is cached in the game database.
func buildCatalog(cfg *config.Config, store *db.Store, logger *log.Logger) (catalog.Catalog, error) {
	if cfg.CatalogFile != "" {
		static, err := catalog.LoadStatic(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load catalog file: %w", err)
		}
		return static, nil
	}
	client := catalog.NewHTTPClient(cfg.CatalogURL, cfg.CatalogTimeout(), nil)
	return catalog.NewCached(client, store, catalog.DefaultCacheTTL, logger), nil
}

// Presenter returns the game's use cases.
func (e *Engine) Presenter() *ops.Presenter { return e.presenter }

// State returns the game state.
func (e *Engine) State() *state.GameState { return e.state }

// Config returns the effective configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// Catalog returns the species catalog in use.
func (e *Engine) Catalog() catalog.Catalog { return e.catalog }

// Restored reports whether Open found a saved game.
func (e *Engine) Restored() bool { return e.restore }

// OnProgress registers a sink for egg progress reports. Sinks added after
// Start receive the next tick.
func (e *Engine) OnProgress(sink scheduler.ProgressSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sinks = append(e.sinks, sink)
}

func (e *Engine) fanOut(at time.Time, eggs []scheduler.EggProgress) {
	e.mu.Lock()
	sinks := append([]scheduler.ProgressSink(nil), e.sinks...)
	e.mu.Unlock()
	for _, sink := range sinks {
		sink(at, eggs)
	}
}

// Start launches the periodic jobs in the background. Calling it again
// while running is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return stderrors.New("engine closed")
	}
	if e.done != nil {
		return nil
	}
	sched := scheduler.New(scheduler.Options{
		State:  e.state,
		Saver:  e.gateway,
		Sink:   e.fanOut,
		Config: e.cfg,
		Logger: e.logger,
	})
	ctx, e.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	e.done = done
	go func() {
		defer close(done)
		if err := sched.Run(ctx); err != nil {
			e.logger.Printf("scheduler stopped: %v", err)
		}
	}()
	return nil
}

// Close stops the jobs, saves the game one last time, and closes the
// database. It is safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	cancel, done := e.cancel, e.done
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	saveErr := e.gateway.SaveFrom(context.Background(), e.state)
	if saveErr != nil {
		e.logger.Printf("final save failed: %v", saveErr)
	}
	return stderrors.Join(saveErr, e.db.Close())
}

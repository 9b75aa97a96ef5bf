// Package persist stores the game as one JSON document in a durable
// key-value store and keeps storage failures away from the game logic.
package persist

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"

	"github.com/hpungsan/critter/internal/db"
	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/state"
)

const (
	// Key is the fixed storage key of the game document.
	Key = "game_state"
	// CorruptKey holds the last document that failed to parse.
	CorruptKey = "game_state.corrupt"
)

// Store is the durable key-value store. Get returns a NOT_FOUND error for
// a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// CacheClearer is implemented by stores that hold non-essential cached data
// which can be dropped to make room for the game document.
type CacheClearer interface {
	ClearCache(ctx context.Context) (int64, error)
}

// Source produces the snapshot to save.
type Source interface {
	Serialize() state.Snapshot
}

// Gateway reads and writes the game document.
type Gateway struct {
	store  Store
	logger *log.Logger

	// mu is held from Serialize until the write completes, so snapshots
	// reach the store in the order they were taken.
	mu sync.Mutex
}

// New creates a Gateway. A nil logger discards output.
func New(store Store, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Gateway{store: store, logger: logger}
}

// Save writes snap under Key. When the store is full, cached catalog data is
// cleared and the write is retried once. Failures are STORAGE_WRITE errors.
// Save is for snapshots the caller already owns; saving live state goes
// through SaveFrom.
func (g *Gateway) Save(ctx context.Context, snap state.Snapshot) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.putLocked(ctx, snap)
}

// SaveFrom serializes src under the write lock and saves the result.
func (g *Gateway) SaveFrom(ctx context.Context, src Source) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.putLocked(ctx, src.Serialize())
}

func (g *Gateway) putLocked(ctx context.Context, snap state.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return errors.NewInternal(err)
	}

	err = g.store.Put(ctx, Key, raw)
	if err != nil && errors.Is(err, db.CodeStorageFull) {
		if clearer, ok := g.store.(CacheClearer); ok {
			n, cerr := clearer.ClearCache(ctx)
			if cerr != nil {
				g.logger.Printf("persist: clear cache after quota error: %v", cerr)
			} else {
				g.logger.Printf("persist: storage full, cleared %d cached entries, retrying", n)
				err = g.store.Put(ctx, Key, raw)
			}
		}
	}
	if err != nil {
		return errors.NewStorageWrite(err)
	}
	return nil
}

// Load reads the game document. A missing document returns (nil, nil). An
// unparseable one is logged, copied to CorruptKey, and also returns
// (nil, nil) so startup falls back to a fresh state.
func (g *Gateway) Load(ctx context.Context) (*state.Snapshot, error) {
	raw, err := g.store.Get(ctx, Key)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var snap state.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		g.logger.Printf("persist: discarding unreadable game state: %v", err)
		if perr := g.store.Put(ctx, CorruptKey, raw); perr != nil {
			g.logger.Printf("persist: keep corrupt copy: %v", perr)
		}
		return nil, nil
	}
	return &snap, nil
}

// Restore loads the saved document into gs. It reports whether a document
// was found; without one gs keeps its initial state.
func (g *Gateway) Restore(ctx context.Context, gs *state.GameState) (bool, error) {
	snap, err := g.Load(ctx)
	if err != nil {
		return false, err
	}
	if snap == nil {
		return false, nil
	}
	if err := gs.Hydrate(*snap); err != nil {
		return false, err
	}
	return true, nil
}

// Observer returns a state observer that saves src after every event.
// Failures are returned to the notifier, which logs them; the in-memory
// state stays authoritative and the next save retries.
func (g *Gateway) Observer(src Source) state.Observer {
	return state.ObserverFunc(func(ev state.Event) error {
		return g.SaveFrom(context.Background(), src)
	})
}

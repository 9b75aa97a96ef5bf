// Package ops implements the game's use cases: opening capsules, hatching
// and warming eggs, evolution, breeding, recycling, the shop, photos, and
// the read models the CLI, MCP and web surfaces share.
//
// Every mutating use case validates against a consistent view, performs any
// catalog call outside the state lock, and commits in a single transaction
// that re-reads the state it depends on. Resources are only debited in that
// final transaction, so a failed catalog call costs nothing.
package ops

import (
	"io"
	"log"
	"slices"
	"strings"

	"github.com/hpungsan/critter/internal/catalog"
	"github.com/hpungsan/critter/internal/clock"
	"github.com/hpungsan/critter/internal/config"
	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/incubation"
	"github.com/hpungsan/critter/internal/random"
	"github.com/hpungsan/critter/internal/state"
)

// List limits
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// Deps are the collaborators a Presenter needs.
type Deps struct {
	State     *state.GameState
	Catalog   catalog.Catalog
	Incubator *incubation.Engine
	Random    random.Source
	Config    *config.Config
	Clock     clock.Clock
	Logger    *log.Logger
}

// Presenter runs use cases against one game.
type Presenter struct {
	state     *state.GameState
	catalog   catalog.Catalog
	incubator *incubation.Engine
	rand      random.Source
	cfg       *config.Config
	clock     clock.Clock
	logger    *log.Logger
}

// New creates a Presenter. Missing optional collaborators get defaults:
// the real clock, the default config, an incubator built from the config,
// and a discarding logger.
func New(d Deps) *Presenter {
	p := &Presenter{
		state:     d.State,
		catalog:   d.Catalog,
		incubator: d.Incubator,
		rand:      d.Random,
		cfg:       d.Config,
		clock:     d.Clock,
		logger:    d.Logger,
	}
	if p.cfg == nil {
		p.cfg = config.DefaultConfig()
	}
	if p.clock == nil {
		p.clock = clock.Real{}
	}
	if p.incubator == nil {
		p.incubator = incubation.New(incubation.SettingsFrom(p.cfg), p.clock, p.rand)
	}
	if p.logger == nil {
		p.logger = log.New(io.Discard, "", 0)
	}
	return p
}

// State returns the game the presenter operates on.
func (p *Presenter) State() *state.GameState {
	return p.state
}

// Config returns the presenter's configuration.
func (p *Presenter) Config() *config.Config {
	return p.cfg
}

// normalizeSelection trims IDs and rejects empty or repeated entries.
func normalizeSelection(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, errors.NewInvalidInput("instance id must not be empty")
		}
		if slices.Contains(out, id) {
			return nil, errors.NewInvalidInput("instance id selected twice: " + id)
		}
		out = append(out, id)
	}
	return out, nil
}

// eggRef addresses an egg by ID or, when ID is empty, by index.
type eggRef struct {
	Index int
	ID    string
}

// resolve returns the egg's current index. Addressing by ID survives other
// eggs being added or removed while a catalog call is in flight.
func (r eggRef) resolve(v *state.Reader) (int, error) {
	if r.ID != "" {
		i := v.EggIndex(r.ID)
		if i < 0 {
			return -1, errors.NewNotFound("egg", r.ID)
		}
		return i, nil
	}
	if _, err := v.Egg(r.Index); err != nil {
		return -1, err
	}
	return r.Index, nil
}

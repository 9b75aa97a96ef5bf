package catalog

import (
	"context"
	"fmt"

	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/random"
)

// RandomID draws a species ID. Catalogs that enumerate their IDs are drawn
// from that list; otherwise the range is [1, maxID].
func RandomID(cat Catalog, src random.Source, maxID int) (int, error) {
	if e, ok := cat.(Enumerator); ok {
		if ids := e.SpeciesIDs(); len(ids) > 0 {
			return ids[src.IntN(len(ids))], nil
		}
	}
	if maxID <= 0 {
		return 0, errors.NewInvalidInput("catalog has no species to draw from")
	}
	return 1 + src.IntN(maxID), nil
}

// RandomCreature fetches a uniformly drawn creature document.
func RandomCreature(ctx context.Context, cat Catalog, src random.Source, maxID int) (*CreatureDoc, error) {
	id, err := RandomID(cat, src, maxID)
	if err != nil {
		return nil, err
	}
	return cat.FetchCreature(ctx, id)
}

// NextEvolution returns the creature the species evolves into. It walks the
// species' evolution chain to the node for speciesID and takes its first
// child. A species without a chain, missing from its chain, or at the end of
// it yields NO_EVOLUTION_AVAILABLE.
func NextEvolution(ctx context.Context, cat Catalog, speciesID int, name string) (*CreatureDoc, error) {
	species, err := cat.FetchSpecies(ctx, speciesID)
	if err != nil {
		return nil, err
	}
	if species.Name != "" {
		name = species.Name
	}
	if species.EvolutionChain == nil || species.EvolutionChain.URL == "" {
		return nil, errors.NewNoEvolution(speciesID, name)
	}

	chain, err := cat.FetchEvolutionChain(ctx, species.EvolutionChain.URL)
	if err != nil {
		return nil, err
	}

	node := findLink(&chain.Chain, speciesID, species.Name)
	if node == nil || len(node.EvolvesTo) == 0 {
		return nil, errors.NewNoEvolution(speciesID, name)
	}

	next := node.EvolvesTo[0].Species
	nextID := IDFromURL(next.URL)
	if nextID <= 0 {
		return nil, errors.NewCatalogUnavailable(fmt.Sprintf("evolution of %s", name),
			fmt.Errorf("no id in species url %q", next.URL))
	}
	return cat.FetchCreature(ctx, nextID)
}

// findLink returns the node for the species, matched by ID when the node URL
// carries one and by name otherwise.
func findLink(l *ChainLink, speciesID int, name string) *ChainLink {
	if id := IDFromURL(l.Species.URL); id > 0 {
		if id == speciesID {
			return l
		}
	} else if name != "" && l.Species.Name == name {
		return l
	}
	for i := range l.EvolvesTo {
		if found := findLink(&l.EvolvesTo[i], speciesID, name); found != nil {
			return found
		}
	}
	return nil
}

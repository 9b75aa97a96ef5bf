// Package catalog reads species data from the external creature catalog.
//
// The catalog is read-only and keyed by integer ID. HTTPClient talks to a
// PokeAPI-shaped REST service, Static serves a YAML file for offline play,
// and Cached keeps fetched documents in the local database. ToCandidate is
// the single place where catalog documents become game creatures.
package catalog

import (
	"context"
	"strconv"
	"strings"
)

// Catalog is the read-only species source.
type Catalog interface {
	FetchCreature(ctx context.Context, id int) (*CreatureDoc, error)
	FetchSpecies(ctx context.Context, id int) (*SpeciesDoc, error)
	FetchEvolutionChain(ctx context.Context, url string) (*EvolutionChainDoc, error)
}

// Enumerator is implemented by catalogs that only know a subset of IDs.
type Enumerator interface {
	SpeciesIDs() []int
}

// NamedResource is a name plus the URL of the full document.
type NamedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// TypeSlot is one entry of a creature's type list.
type TypeSlot struct {
	Slot int           `json:"slot"`
	Type NamedResource `json:"type"`
}

// AbilitySlot is one entry of a creature's ability list.
type AbilitySlot struct {
	Slot     int           `json:"slot"`
	IsHidden bool          `json:"is_hidden"`
	Ability  NamedResource `json:"ability"`
}

// SpriteSet holds image URLs. A null sprite decodes as "".
type SpriteSet struct {
	FrontDefault string `json:"front_default"`
	FrontShiny   string `json:"front_shiny"`
}

// CreatureDoc is the catalog's creature document.
type CreatureDoc struct {
	ID        int           `json:"id"`
	Name      string        `json:"name"`
	Height    int           `json:"height"`
	Weight    int           `json:"weight"`
	Types     []TypeSlot    `json:"types"`
	Abilities []AbilitySlot `json:"abilities"`
	Sprites   SpriteSet     `json:"sprites"`
	Species   NamedResource `json:"species"`
}

// HasRareVariant reports whether the species has a rare-variant sprite.
func (d *CreatureDoc) HasRareVariant() bool {
	return strings.TrimSpace(d.Sprites.FrontShiny) != ""
}

// SpeciesDoc is the catalog's species document.
type SpeciesDoc struct {
	ID             int            `json:"id"`
	Name           string         `json:"name"`
	EvolutionChain *NamedResource `json:"evolution_chain"`
}

// EvolutionChainDoc is the catalog's evolution tree for one family.
type EvolutionChainDoc struct {
	ID    int       `json:"id"`
	Chain ChainLink `json:"chain"`
}

// ChainLink is one node of an evolution tree.
type ChainLink struct {
	Species   NamedResource `json:"species"`
	EvolvesTo []ChainLink   `json:"evolves_to"`
}

// IDFromURL returns the trailing integer path segment of a catalog URL,
// or 0 when there is none.
func IDFromURL(url string) int {
	url = strings.TrimRight(url, "/")
	i := strings.LastIndexAny(url, "/:")
	id, err := strconv.Atoi(url[i+1:])
	if err != nil || id < 0 {
		return 0
	}
	return id
}

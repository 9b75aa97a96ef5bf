package catalog

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hpungsan/critter/internal/errors"
)

// StaticEntry is one species in a YAML catalog file.
type StaticEntry struct {
	ID         int      `yaml:"id" json:"id"`
	Name       string   `yaml:"name" json:"name"`
	Types      []string `yaml:"types" json:"types"`
	Abilities  []string `yaml:"abilities" json:"abilities"`
	Height     int      `yaml:"height" json:"height"`
	Weight     int      `yaml:"weight" json:"weight"`
	Sprite     string   `yaml:"sprite" json:"sprite"`
	RareSprite string   `yaml:"rare_sprite" json:"rare_sprite"`
	EvolvesTo  []int    `yaml:"evolves_to" json:"evolves_to"`
}

// StaticFile is the YAML catalog document.
type StaticFile struct {
	Species []StaticEntry `yaml:"species" json:"species"`
}

// Static is an in-memory catalog. Evolution chains are derived from the
// evolves_to lists; a species listed by no other species is a chain root.
type Static struct {
	entries map[int]StaticEntry
	parent  map[int]int
	ids     []int
}

// LoadStatic reads a YAML catalog file.
func LoadStatic(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseStatic(data)
}

// ParseStatic builds a catalog from YAML bytes.
func ParseStatic(data []byte) (*Static, error) {
	var f StaticFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid catalog file: %w", err)
	}
	return NewStatic(f.Species)
}

// NewStatic builds a catalog from entries. IDs must be positive and unique,
// and every evolves_to target must exist.
func NewStatic(entries []StaticEntry) (*Static, error) {
	s := &Static{
		entries: make(map[int]StaticEntry, len(entries)),
		parent:  make(map[int]int),
	}
	for _, e := range entries {
		if e.ID <= 0 {
			return nil, fmt.Errorf("invalid catalog file: species %q has no id", e.Name)
		}
		if _, dup := s.entries[e.ID]; dup {
			return nil, fmt.Errorf("invalid catalog file: duplicate id %d", e.ID)
		}
		s.entries[e.ID] = e
		s.ids = append(s.ids, e.ID)
	}
	for _, e := range entries {
		for _, child := range e.EvolvesTo {
			if _, ok := s.entries[child]; !ok {
				return nil, fmt.Errorf("invalid catalog file: %s evolves to unknown id %d", e.Name, child)
			}
			if p, taken := s.parent[child]; taken && p != e.ID {
				return nil, fmt.Errorf("invalid catalog file: id %d has two parents", child)
			}
			s.parent[child] = e.ID
		}
	}
	for _, id := range s.ids {
		seen := map[int]bool{id: true}
		for p, ok := s.parent[id]; ok; p, ok = s.parent[p] {
			if seen[p] {
				return nil, fmt.Errorf("invalid catalog file: evolution cycle through id %d", id)
			}
			seen[p] = true
		}
	}
	slices.Sort(s.ids)
	return s, nil
}

// SpeciesIDs returns the known IDs in ascending order.
func (s *Static) SpeciesIDs() []int {
	return slices.Clone(s.ids)
}

func (s *Static) FetchCreature(_ context.Context, id int) (*CreatureDoc, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, errors.NewCatalogNotFound(fmt.Sprintf("pokemon/%d", id))
	}
	doc := &CreatureDoc{
		ID:      e.ID,
		Name:    e.Name,
		Height:  e.Height,
		Weight:  e.Weight,
		Sprites: SpriteSet{FrontDefault: e.Sprite, FrontShiny: e.RareSprite},
		Species: speciesRef(e),
	}
	for i, t := range e.Types {
		doc.Types = append(doc.Types, TypeSlot{Slot: i + 1, Type: NamedResource{Name: t}})
	}
	for i, a := range e.Abilities {
		doc.Abilities = append(doc.Abilities, AbilitySlot{Slot: i + 1, Ability: NamedResource{Name: a}})
	}
	return doc, nil
}

func (s *Static) FetchSpecies(_ context.Context, id int) (*SpeciesDoc, error) {
	e, ok := s.entries[id]
	if !ok {
		return nil, errors.NewCatalogNotFound(fmt.Sprintf("pokemon-species/%d", id))
	}
	return &SpeciesDoc{
		ID:             e.ID,
		Name:           e.Name,
		EvolutionChain: &NamedResource{URL: fmt.Sprintf("static:evolution-chain/%d", s.root(id))},
	}, nil
}

func (s *Static) FetchEvolutionChain(_ context.Context, url string) (*EvolutionChainDoc, error) {
	root := IDFromURL(url)
	if _, ok := s.entries[root]; !ok || !strings.HasPrefix(url, "static:") {
		return nil, errors.NewCatalogNotFound(chainResource(url))
	}
	return &EvolutionChainDoc{ID: root, Chain: s.link(root)}, nil
}

func (s *Static) root(id int) int {
	seen := map[int]bool{}
	for {
		p, ok := s.parent[id]
		if !ok || seen[p] {
			return id
		}
		seen[id] = true
		id = p
	}
}

func (s *Static) link(id int) ChainLink {
	e := s.entries[id]
	l := ChainLink{Species: speciesRef(e)}
	for _, child := range e.EvolvesTo {
		if child == id {
			continue
		}
		l.EvolvesTo = append(l.EvolvesTo, s.link(child))
	}
	return l
}

func speciesRef(e StaticEntry) NamedResource {
	return NamedResource{Name: e.Name, URL: fmt.Sprintf("static:pokemon-species/%d", e.ID)}
}

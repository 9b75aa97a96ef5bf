package catalog

import (
	"slices"

	"github.com/hpungsan/critter/internal/creature"
)

// ToCandidate maps a catalog document to a creature candidate. Types and
// abilities keep slot order. rare is honoured only when the species has a
// rare-variant sprite.
func ToCandidate(doc *CreatureDoc, rare bool) creature.Candidate {
	if doc == nil {
		return creature.Candidate{}
	}

	types := slices.Clone(doc.Types)
	slices.SortStableFunc(types, func(a, b TypeSlot) int { return a.Slot - b.Slot })
	abilities := slices.Clone(doc.Abilities)
	slices.SortStableFunc(abilities, func(a, b AbilitySlot) int { return a.Slot - b.Slot })

	c := creature.Candidate{
		SpeciesID:     doc.ID,
		Name:          doc.Name,
		Height:        doc.Height,
		Weight:        doc.Weight,
		SpeciesName:   doc.Species.Name,
		SpeciesURL:    doc.Species.URL,
		IsRareVariant: rare && doc.HasRareVariant(),
		Sprites: creature.Sprites{
			Normal: doc.Sprites.FrontDefault,
			Rare:   doc.Sprites.FrontShiny,
		},
	}
	for _, t := range types {
		c.Types = append(c.Types, t.Type.Name)
	}
	for _, a := range abilities {
		c.Abilities = append(c.Abilities, a.Ability.Name)
	}
	return c
}

package creature

import (
	"strings"

	"github.com/hpungsan/critter/internal/errors"
)

// Candidate is a partially populated creature as it arrives from the catalog
// boundary. Any field may be missing.
type Candidate struct {
	SpeciesID     int
	Name          string
	Types         []string
	Abilities     []string
	Sprites       Sprites
	Height        int
	Weight        int
	SpeciesName   string
	SpeciesURL    string
	IsRareVariant bool
	Level         int
}

// Normalize maps a candidate onto a fully populated Creature.
// Missing names, types and abilities become Unknown. The only rejection is
// a candidate with no type information at all.
// InstanceID and AddedAt are left for the collection to assign.
func Normalize(c Candidate) (Creature, error) {
	if len(c.Types) == 0 {
		return Creature{}, errors.NewInvalidInput("creature has no type information")
	}

	out := Creature{
		SpeciesID:     c.SpeciesID,
		Name:          orUnknown(c.Name),
		Types:         fillUnknown(c.Types),
		Abilities:     fillUnknown(c.Abilities),
		Sprites:       c.Sprites,
		Height:        max(c.Height, 0),
		Weight:        max(c.Weight, 0),
		SpeciesName:   orUnknown(c.SpeciesName),
		SpeciesURL:    strings.TrimSpace(c.SpeciesURL),
		IsRareVariant: c.IsRareVariant,
		IsUnseen:      true,
		Level:         c.Level,
	}
	if len(out.Abilities) == 0 {
		out.Abilities = []string{Unknown}
	}
	if out.Level <= 0 {
		out.Level = DefaultLevel
	}
	return out, nil
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown
	}
	return s
}

func fillUnknown(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = orUnknown(s)
	}
	return out
}

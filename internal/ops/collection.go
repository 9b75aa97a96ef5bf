package ops

import (
	"context"
	"strings"
	"time"

	"github.com/hpungsan/critter/internal/clock"
	"github.com/hpungsan/critter/internal/creature"
	"github.com/hpungsan/critter/internal/errors"
	"github.com/hpungsan/critter/internal/incubation"
	"github.com/hpungsan/critter/internal/state"
)

// CapturePhotoInput contains parameters for the CapturePhoto operation.
type CapturePhotoInput struct {
	InstanceID string
	ImageRef   string
}

// CapturePhoto stores a photo of a creature. The photo keeps its own copy
// of the subject so it survives the creature being recycled.
func (p *Presenter) CapturePhoto(_ context.Context, input CapturePhotoInput) (*creature.Photo, error) {
	if strings.TrimSpace(input.ImageRef) == "" {
		return nil, errors.NewInvalidInput("image_ref is required")
	}

	var photo creature.Photo
	err := p.state.Update(func(tx *state.Tx) error {
		c, ok := tx.Creature(input.InstanceID)
		if !ok {
			return errors.NewNotFound("creature", input.InstanceID)
		}
		var err error
		photo, err = tx.AddPhoto(creature.Photo{
			ImageRef: strings.TrimSpace(input.ImageRef),
			Creature: creature.SubjectOf(c),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// MarkSeenInput contains parameters for the MarkSeen operation.
type MarkSeenInput struct {
	InstanceID string
}

// MarkSeen records that the player has opened a creature's detail view.
func (p *Presenter) MarkSeen(_ context.Context, input MarkSeenInput) (*creature.Creature, error) {
	c, err := p.state.MarkSeen(input.InstanceID)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// StatusOutput summarizes the game.
type StatusOutput struct {
	Capsules        int    `json:"capsules"`
	MaxCapsules     int    `json:"max_capsules"`
	NextCapsuleAt   *int64 `json:"next_capsule_at,omitempty"`
	NextCapsuleIn   string `json:"next_capsule_in,omitempty"`
	Tokens          int64  `json:"tokens"`
	Creatures       int    `json:"creatures"`
	Species         int    `json:"species"`
	Unseen          int    `json:"unseen"`
	RareVariants    int    `json:"rare_variants"`
	Eggs            int    `json:"eggs"`
	ReadyEggs       int    `json:"ready_eggs"`
	Photos          int    `json:"photos"`
	ActiveCooldowns int    `json:"active_cooldowns"`
}

// Status returns balances and collection counts. Expired cooldowns are
// cleared before they are counted.
func (p *Presenter) Status(_ context.Context) (*StatusOutput, error) {
	out := &StatusOutput{}
	err := p.state.Update(func(v *state.Tx) error {
		now := v.Now()
		out.Capsules = v.Capsules()
		out.MaxCapsules = v.MaxCapsules()
		out.NextCapsuleAt = v.NextCapsuleAt()
		if out.NextCapsuleAt != nil {
			out.NextCapsuleIn = incubation.FormatRemaining(clock.FromMillis(*out.NextCapsuleAt).Sub(now))
		}
		out.Tokens = v.Tokens()

		species := map[int]bool{}
		for _, c := range v.Creatures() {
			out.Creatures++
			species[c.SpeciesID] = true
			if c.IsUnseen {
				out.Unseen++
			}
			if c.IsRareVariant {
				out.RareVariants++
			}
			if !v.BreedingCooldownProgress(c.InstanceID).Available {
				out.ActiveCooldowns++
			}
		}
		out.Species = len(species)

		for _, e := range v.Eggs() {
			out.Eggs++
			if incubation.CalculateProgress(e, now).IsReady {
				out.ReadyEggs++
			}
		}
		out.Photos = len(v.Photos())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListCreaturesInput contains parameters for the ListCreatures operation.
type ListCreaturesInput struct {
	SpeciesID  int
	Type       string
	UnseenOnly bool
	RareOnly   bool
	Limit      int
	Offset     int
}

// CreatureView is a creature with its breeding state.
type CreatureView struct {
	creature.Creature
	Cooldown state.CooldownProgress `json:"cooldown"`
}

// ListCreaturesOutput contains the result of the ListCreatures operation.
type ListCreaturesOutput struct {
	Items      []CreatureView `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

// ListCreatures returns the collection in its sorted order, filtered and paged.
func (p *Presenter) ListCreatures(_ context.Context, input ListCreaturesInput) (*ListCreaturesOutput, error) {
	limit, offset, err := pageBounds(input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}
	typ := strings.ToLower(strings.TrimSpace(input.Type))

	var matched []CreatureView
	err = p.state.Update(func(v *state.Tx) error {
		v.CleanExpiredCooldowns()
		for _, c := range v.Creatures() {
			if input.SpeciesID > 0 && c.SpeciesID != input.SpeciesID {
				continue
			}
			if input.UnseenOnly && !c.IsUnseen {
				continue
			}
			if input.RareOnly && !c.IsRareVariant {
				continue
			}
			if typ != "" && !hasType(c, typ) {
				continue
			}
			matched = append(matched, CreatureView{Creature: c, Cooldown: v.BreedingCooldownProgress(c.InstanceID)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := len(matched)
	end := min(offset+limit, total)
	items := []CreatureView{}
	if offset < total {
		items = matched[offset:end]
	}
	return &ListCreaturesOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: end < total,
			Total:   total,
		},
	}, nil
}

func hasType(c creature.Creature, typ string) bool {
	for _, t := range c.Types {
		if strings.EqualFold(t, typ) {
			return true
		}
	}
	return false
}

func pageBounds(limit, offset int) (int, int, error) {
	if offset < 0 {
		return 0, 0, errors.NewInvalidInput("offset must not be negative")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return min(limit, MaxListLimit), offset, nil
}

// EggView is an egg with its computed progress.
type EggView struct {
	Index     int                 `json:"index"`
	Egg       creature.Egg        `json:"egg"`
	Status    incubation.Status   `json:"status"`
	Progress  incubation.Progress `json:"progress"`
	Remaining string              `json:"remaining"`
}

// ListEggsOutput contains the result of the ListEggs operation.
type ListEggsOutput struct {
	Items []EggView `json:"items"`
}

// ListEggs returns every egg with its progress at the current time.
func (p *Presenter) ListEggs(_ context.Context) (*ListEggsOutput, error) {
	out := &ListEggsOutput{Items: []EggView{}}
	p.state.View(func(v *state.Reader) {
		out.Items = eggViews(v.Eggs(), v.Now())
	})
	return out, nil
}

func eggViews(eggs []creature.Egg, now time.Time) []EggView {
	views := make([]EggView, 0, len(eggs))
	for i, e := range eggs {
		prog := incubation.CalculateProgress(e, now)
		views = append(views, EggView{
			Index:     i,
			Egg:       e,
			Status:    incubation.StatusOf(e, now),
			Progress:  prog,
			Remaining: incubation.FormatRemaining(prog.Remaining),
		})
	}
	return views
}

// Package report renders the collection as a markdown document. The web UI
// converts it to HTML and the CLI prints it as is.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hpungsan/critter/internal/incubation"
	"github.com/hpungsan/critter/internal/ops"
)

// Section titles, in document order.
const (
	SectionBalances   = "Balances"
	SectionCollection = "Collection"
	SectionEggs       = "Eggs"
	SectionCooldowns  = "Breeding cooldowns"
)

// Report is a point-in-time view of one game.
type Report struct {
	GeneratedAt time.Time
	Status      ops.StatusOutput
	Creatures   []ops.CreatureView
	Eggs        []ops.EggView
}

// Build gathers everything the report shows. It only reads state.
func Build(ctx context.Context, p *ops.Presenter) (*Report, error) {
	status, err := p.Status(ctx)
	if err != nil {
		return nil, err
	}

	var creatures []ops.CreatureView
	for offset := 0; ; {
		page, err := p.ListCreatures(ctx, ops.ListCreaturesInput{Limit: ops.MaxListLimit, Offset: offset})
		if err != nil {
			return nil, err
		}
		creatures = append(creatures, page.Items...)
		if !page.Pagination.HasMore {
			break
		}
		offset += len(page.Items)
	}

	eggs, err := p.ListEggs(ctx)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: p.State().Now(),
		Status:      *status,
		Creatures:   creatures,
		Eggs:        eggs.Items,
	}, nil
}

// DisplayName turns a catalog name like "mr-mime" into "Mr Mime".
func DisplayName(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.TrimSpace(name), "-", " "))
}

// FormatCount formats n with thousands separators.
func FormatCount(n int64) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

// Markdown renders the report.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Critter collection\n\n")
	fmt.Fprintf(&b, "_Generated %s UTC_\n\n", r.GeneratedAt.UTC().Format("2006-01-02 15:04"))

	r.writeBalances(&b)
	r.writeCollection(&b)
	r.writeEggs(&b)
	r.writeCooldowns(&b)
	return b.String()
}

func (r *Report) writeBalances(b *strings.Builder) {
	s := r.Status
	fmt.Fprintf(b, "## %s\n\n", SectionBalances)
	b.WriteString("| Resource | Amount |\n|---|---|\n")
	capsules := fmt.Sprintf("%d / %d", s.Capsules, s.MaxCapsules)
	if s.NextCapsuleIn != "" {
		capsules += fmt.Sprintf(" (next in %s)", s.NextCapsuleIn)
	}
	fmt.Fprintf(b, "| Capsules | %s |\n", capsules)
	fmt.Fprintf(b, "| Tokens | %s |\n", FormatCount(s.Tokens))
	fmt.Fprintf(b, "| Photos | %s |\n\n", FormatCount(int64(s.Photos)))
}

func (r *Report) writeCollection(b *strings.Builder) {
	s := r.Status
	fmt.Fprintf(b, "## %s\n\n", SectionCollection)
	if len(r.Creatures) == 0 {
		b.WriteString("_No creatures yet._\n\n")
		return
	}
	fmt.Fprintf(b, "%s creature(s) across %d species, %d unseen, %d rare.\n\n",
		FormatCount(int64(s.Creatures)), s.Species, s.Unseen, s.RareVariants)

	// Creatures arrive sorted by species, so each group is contiguous.
	for i := 0; i < len(r.Creatures); {
		j := i
		for j < len(r.Creatures) && r.Creatures[j].SpeciesID == r.Creatures[i].SpeciesID {
			j++
		}
		group := r.Creatures[i:j]
		first := group[0]
		fmt.Fprintf(b, "### %s #%d (%d)\n\n", DisplayName(first.Name), first.SpeciesID, len(group))
		if len(first.Types) > 0 {
			fmt.Fprintf(b, "Types: %s\n\n", strings.Join(first.Types, ", "))
		}
		for _, c := range group {
			b.WriteString("- `" + c.InstanceID + "`")
			if c.IsRareVariant {
				b.WriteString(" **rare**")
			}
			if c.IsUnseen {
				b.WriteString(" _new_")
			}
			if !c.Cooldown.Available {
				fmt.Fprintf(b, " (breeding cooldown %.0f%%)", c.Cooldown.Percent)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		i = j
	}
}

func (r *Report) writeEggs(b *strings.Builder) {
	fmt.Fprintf(b, "## %s\n\n", SectionEggs)
	if len(r.Eggs) == 0 {
		b.WriteString("_No eggs._\n\n")
		return
	}
	b.WriteString("| # | Status | Progress | Remaining | Origin |\n|---|---|---|---|---|\n")
	for _, e := range r.Eggs {
		origin := "capsule"
		if e.Egg.IsBreedingEgg && e.Egg.Parent != nil {
			origin = "bred from " + DisplayName(e.Egg.Parent.Name)
		} else if e.Egg.IsBreedingEgg {
			origin = "bred"
		}
		fmt.Fprintf(b, "| %d | %s | %.0f%% | %s | %s |\n",
			e.Index, e.Status, e.Progress.Percent, e.Remaining, origin)
	}
	b.WriteString("\n")
}

func (r *Report) writeCooldowns(b *strings.Builder) {
	fmt.Fprintf(b, "## %s\n\n", SectionCooldowns)
	var rows []ops.CreatureView
	for _, c := range r.Creatures {
		if !c.Cooldown.Available {
			rows = append(rows, c)
		}
	}
	if len(rows) == 0 {
		b.WriteString("_Every creature can breed._\n")
		return
	}
	b.WriteString("| Creature | Progress | Ready in |\n|---|---|---|\n")
	for _, c := range rows {
		fmt.Fprintf(b, "| %s `%s` | %.0f%% | %s |\n",
			DisplayName(c.Name), c.InstanceID, c.Cooldown.Percent,
			incubation.FormatRemaining(time.Duration(c.Cooldown.SecondsLeft)*time.Second))
	}
}

package shell

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/atinyakov/GophCards/internal/client/directory"
	"github.com/atinyakov/GophCards/internal/client/study"
	"github.com/atinyakov/GophCards/internal/models"
	"github.com/fatih/color"
)

const barWidth = 24

// palette holds the colors used for terminal output.
type palette struct {
	title    *color.Color
	ok       *color.Color
	fail     *color.Color
	dim      *color.Color
	question *color.Color
	answer   *color.Color
}

func newPalette(noColor bool) palette {
	p := palette{
		title:    color.New(color.FgCyan, color.Bold),
		ok:       color.New(color.FgGreen),
		fail:     color.New(color.FgRed),
		dim:      color.New(color.Faint),
		question: color.New(color.Bold),
		answer:   color.New(color.FgYellow),
	}
	if noColor {
		for _, c := range []*color.Color{p.title, p.ok, p.fail, p.dim, p.question, p.answer} {
			c.DisableColor()
		}
	}
	return p
}

// progressBar renders pct as a fixed-width bar.
func progressBar(pct float64) string {
	filled := int(math.Round(pct / 100 * barWidth))
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

func (p palette) card(w io.Writer, s study.Snapshot) {
	p.title.Fprintf(w, "%s  (%d/%d)\n", s.Name, s.Index+1, s.Total)
	fmt.Fprintf(w, "%s %3.0f%%\n", progressBar(s.Progress), s.Progress)
	p.question.Fprintf(w, "Q: %s\n", s.Card.Question)
	if s.Flipped {
		p.answer.Fprintf(w, "A: %s\n", s.Card.Answer)
	} else {
		p.dim.Fprintln(w, "(Enter or space to reveal the answer)")
	}
}

// listing prints both partitions numbered consecutively, owned first,
// matching the order of refs.
func (p palette) listing(w io.Writer, l directory.Listing, authenticated bool) {
	n := 1
	if authenticated {
		p.title.Fprintln(w, "My collections")
		if len(l.Owned) == 0 {
			p.dim.Fprintln(w, "  You have no collections yet. Type 'upload' to create one.")
		}
		for _, c := range l.Owned {
			fmt.Fprintf(w, "  %2d) %s\n", n, describe(c, false))
			n++
		}
	}
	p.title.Fprintln(w, "Public collections")
	if len(l.Public) == 0 {
		p.dim.Fprintln(w, "  No public collections.")
	}
	for _, c := range l.Public {
		fmt.Fprintf(w, "  %2d) %s\n", n, describe(c, true))
		n++
	}
}

func describe(c models.Collection, withOwner bool) string {
	parts := []string{c.Name, fmt.Sprintf("%d cards", c.CardCount)}
	if c.IsPublic {
		parts = append(parts, "public")
	} else {
		parts = append(parts, "private")
	}
	if withOwner && c.Owner.DisplayName() != "" {
		parts = append(parts, "by "+c.Owner.DisplayName())
	}
	if !c.CreatedAt.IsZero() {
		parts = append(parts, c.CreatedAt.Format("2006-01-02"))
	}
	return strings.Join(parts, " · ")
}

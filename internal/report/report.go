// Package report renders archived runs as Markdown for sharing and for the
// terminal.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Altair29/J-GLOW-sub001/internal/sim"
	"github.com/Altair29/J-GLOW-sub001/internal/store"
	"github.com/charmbracelet/glamour"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Markdown renders rec as a result page: outcome, final gauges and the
// key-moment timeline.
func Markdown(rec store.Record) string {
	var b strings.Builder
	labels := labelsOf(rec.Specs)

	title := rec.PackTitle
	if title == "" {
		title = rec.Pack
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "Share token: `%s`  \n", rec.Token)
	if rec.Strategy != "" {
		fmt.Fprintf(&b, "Played by: %s strategy  \n", rec.Strategy)
	}
	fmt.Fprintf(&b, "Played: %s\n\n", rec.CreatedAt.Format("2006-01-02 15:04 MST"))

	b.WriteString("## Result\n\n")
	switch {
	case rec.Grade != nil:
		g := rec.Grade
		fmt.Fprintf(&b, "**Rank %s: %s**\n\n", g.Rank, g.Label)
		if g.MaxScore > 0 {
			fmt.Fprintf(&b, "Score %d / %d", g.Score, g.MaxScore)
		} else {
			fmt.Fprintf(&b, "Score %d", g.Score)
		}
		fmt.Fprintf(&b, " after %d turns.\n\n", rec.TotalTurns)
		if g.Note != "" {
			fmt.Fprintf(&b, "> %s\n\n", g.Note)
		}
		for _, spec := range rec.Specs {
			if v, ok := g.Reported[spec.ID]; ok {
				fmt.Fprintf(&b, "%s at the end: %s\n\n", labels[spec.ID], Number(v))
			}
		}
	case rec.Failure != nil:
		f := rec.Failure
		fmt.Fprintf(&b, "**Game over on turn %d.** %s fell to %s", f.Turn, label(labels, f.Gauge), Number(f.Value))
		if f.Cause == sim.CauseDelayed {
			b.WriteString(" when an earlier decision caught up with you")
		}
		b.WriteString(".\n\n")
		if f.Message != "" {
			fmt.Fprintf(&b, "> %s\n\n", f.Message)
		}
	}

	b.WriteString("## Final gauges\n\n")
	b.WriteString("| Gauge | Value | Range |\n|---|---:|---|\n")
	for _, spec := range rec.Specs {
		v := rec.Gauges[spec.ID]
		rng := fmt.Sprintf("%s to %s", Number(spec.Min), Number(spec.Max))
		if spec.Unbounded {
			rng = fmt.Sprintf("from %s", Number(spec.Min))
		}
		flag := ""
		switch {
		case spec.Floor != nil && v <= *spec.Floor:
			flag = " ✖"
		case spec.Critical != nil && v <= *spec.Critical:
			flag = " ⚠"
		}
		fmt.Fprintf(&b, "| %s | %s%s | %s |\n", labels[spec.ID], Number(v), flag, rng)
	}
	b.WriteString("\n")

	if len(rec.Moments) > 0 {
		b.WriteString("## Timeline\n\n")
		for _, m := range rec.Moments {
			b.WriteString(moment(m, rec.Specs, labels))
		}
	}
	return b.String()
}

func moment(m sim.Moment, specs []sim.GaugeSpec, labels map[sim.GaugeID]string) string {
	var b strings.Builder
	switch m.Kind {
	case sim.MomentChoice:
		head := m.Title
		if head == "" {
			head = m.ScenarioID
		}
		fmt.Fprintf(&b, "- **Turn %d, %s:** %s", m.Turn, head, m.ChoiceLabel)
		if d := Deltas(specs, labels, m.Applied); d != "" {
			fmt.Fprintf(&b, " (%s)", d)
		}
		if m.Scheduled != nil {
			fmt.Fprintf(&b, ". Consequences expected on turn %d", m.Scheduled.Turn)
		}
		b.WriteString("\n")
	case sim.MomentDelayed:
		fmt.Fprintf(&b, "- **Turn %d, consequence:** %s", m.Turn, m.Message)
		if d := Deltas(specs, labels, m.Applied); d != "" {
			fmt.Fprintf(&b, " (%s)", d)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Deltas formats d in gauge declaration order, e.g. "Morale +10, Funds -600,000".
// Gauges the schema does not declare are listed last by ID.
func Deltas(specs []sim.GaugeSpec, labels map[sim.GaugeID]string, d sim.Deltas) string {
	var parts []string
	seen := map[sim.GaugeID]bool{}
	for _, spec := range specs {
		seen[spec.ID] = true
		if v := d[spec.ID]; v != 0 {
			parts = append(parts, fmt.Sprintf("%s %s", label(labels, spec.ID), signed(v)))
		}
	}
	var extra []string
	for id, v := range d {
		if !seen[id] && v != 0 {
			extra = append(extra, fmt.Sprintf("%s %s", id, signed(v)))
		}
	}
	sort.Strings(extra)
	return strings.Join(append(parts, extra...), ", ")
}

// Labels maps gauge IDs to their display labels.
func Labels(specs []sim.GaugeSpec) map[sim.GaugeID]string {
	return labelsOf(specs)
}

func labelsOf(specs []sim.GaugeSpec) map[sim.GaugeID]string {
	out := make(map[sim.GaugeID]string, len(specs))
	for _, s := range specs {
		out[s.ID] = label(nil, s.ID)
		if s.Label != "" {
			out[s.ID] = s.Label
		}
	}
	return out
}

func label(labels map[sim.GaugeID]string, id sim.GaugeID) string {
	if l, ok := labels[id]; ok {
		return l
	}
	return string(id)
}

// Number formats v with thousands separators.
func Number(v int) string {
	return printer.Sprintf("%d", v)
}

func signed(v int) string {
	if v > 0 {
		return "+" + Number(v)
	}
	return Number(v)
}

// Render turns Markdown into styled terminal output wrapped at width.
func Render(md string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return out, nil
}

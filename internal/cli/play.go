package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/Altair29/J-GLOW-sub001/internal/content"
	"github.com/Altair29/J-GLOW-sub001/internal/report"
	"github.com/Altair29/J-GLOW-sub001/internal/session"
	"github.com/Altair29/J-GLOW-sub001/internal/sim"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var playCmd = &cobra.Command{
	Use:         "play <pack>",
	Short:       "Play a pack in the terminal",
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{tuiAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		reg, err := loadPacks()
		if err != nil {
			return err
		}
		pack, err := reg.Get(args[0])
		if err != nil {
			return err
		}

		pub, release, err := newPublisher(ctx)
		if err != nil {
			// Play offline rather than refuse; the end screen says so.
			logger.Warn(fmt.Sprintf("publishing disabled: %v", err))
			pub, release = nil, func() {}
		}
		defer release()

		mgr := session.NewManager(reg, pub, logger)
		m, err := newPlayModel(ctx, mgr, pack)
		if err != nil {
			return err
		}
		m.offline = pub == nil

		p := tea.NewProgram(m, tea.WithAltScreen())
		final, err := p.Run()
		if err != nil {
			return err
		}
		if fm, ok := final.(playModel); ok && !fm.offline && fm.token != "" {
			fmt.Printf("Result saved. View it with: jglow results show %s\n", fm.token)
		}
		return nil
	},
}

// --- Styles ---

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("236")).Foreground(lipgloss.Color("15"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	goodStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("12")).Padding(0, 1)
)

// --- Stages ---

type playStage int

const (
	stageChoose playStage = iota
	stageResult
	stageEnd
)

type playKeys struct {
	Up      key.Binding
	Down    key.Binding
	Choose  key.Binding
	Restart key.Binding
	Quit    key.Binding
}

var defaultPlayKeys = playKeys{
	Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
	Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
	Choose:  key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "choose")),
	Restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "play again")),
	Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// --- Model ---

type playModel struct {
	ctx     context.Context
	mgr     *session.Manager
	pack    *content.Pack
	labels  map[sim.GaugeID]string
	runID   string
	snap    sim.Snapshot
	last    *session.Resolution
	token   string
	offline bool
	err     error

	stage  playStage
	cursor int
	width  int
	bar    progress.Model
	keys   playKeys
}

func newPlayModel(ctx context.Context, mgr *session.Manager, pack *content.Pack) (playModel, error) {
	info, snap, err := mgr.Start(ctx, pack.Name)
	if err != nil {
		return playModel{}, err
	}
	m := playModel{
		ctx:    ctx,
		mgr:    mgr,
		pack:   pack,
		labels: report.Labels(pack.Config.Gauges),
		runID:  info.ID,
		snap:   snap,
		width:  80,
		bar:    progress.New(progress.WithSolidFill("12"), progress.WithoutPercentage(), progress.WithWidth(24)),
		keys:   defaultPlayKeys,
	}
	if snap.Phase.Terminal() {
		m.stage = stageEnd
		m.token, _ = mgr.Token(info.ID)
	}
	return m, nil
}

func (m playModel) Init() tea.Cmd {
	return nil
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			if err := m.mgr.Abandon(m.runID); err != nil {
				logger.Debug("Abandon failed", zap.String("run", m.runID), zap.Error(err))
			}
			return m, tea.Quit
		}
		switch m.stage {
		case stageChoose:
			return m.updateChoose(msg)
		case stageResult:
			// Any key dismisses the result.
			m.last = nil
			if m.snap.Phase.Terminal() {
				m.stage = stageEnd
			} else {
				m.stage = stageChoose
			}
		case stageEnd:
			if key.Matches(msg, m.keys.Restart) {
				snap, err := m.mgr.Restart(m.ctx, m.runID)
				if err != nil {
					m.err = err
					return m, nil
				}
				m.snap, m.token, m.cursor, m.stage, m.err = snap, "", 0, stageChoose, nil
				if snap.Phase.Terminal() {
					m.stage = stageEnd
					m.token, _ = m.mgr.Token(m.runID)
				}
			}
		}
	}
	return m, nil
}

func (m playModel) updateChoose(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.snap.Scenario == nil {
		return m, nil
	}
	choices := m.snap.Scenario.Choices
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(choices)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Choose):
		return m.submit(choices[m.cursor].ID)
	default:
		// 1-9 pick a choice directly.
		if s := msg.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			if i := int(s[0] - '1'); i < len(choices) {
				m.cursor = i
				return m.submit(choices[i].ID)
			}
		}
	}
	return m, nil
}

func (m playModel) submit(choiceID string) (tea.Model, tea.Cmd) {
	res, err := m.mgr.Submit(m.ctx, m.runID, m.snap.Scenario.ID, choiceID)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.last = &res
	m.snap = res.Snapshot
	m.cursor = 0
	m.stage = stageResult
	if res.Token != "" {
		m.token = res.Token
	}
	return m, nil
}

func (m playModel) View() string {
	var b strings.Builder

	turn := min(m.snap.Turn, m.snap.TotalTurns)
	b.WriteString(titleStyle.Render(m.pack.Title) + "  " + dimStyle.Render(fmt.Sprintf("Turn %d / %d", turn, m.snap.TotalTurns)) + "\n")
	b.WriteString(strings.Repeat("─", min(m.width, 80)) + "\n")
	m.renderGauges(&b)
	b.WriteString("\n")

	switch m.stage {
	case stageChoose:
		m.renderScenario(&b)
	case stageResult:
		m.renderResult(&b)
	case stageEnd:
		m.renderEnd(&b)
	}

	if m.err != nil {
		b.WriteString("\n" + failStyle.Render("✖ "+m.err.Error()) + "\n")
	}

	b.WriteString("\n")
	switch m.stage {
	case stageChoose:
		b.WriteString(helpStyle.Render("j/k:move  enter/1-9:choose  q:quit"))
	case stageResult:
		b.WriteString(helpStyle.Render("any key:continue  q:quit"))
	case stageEnd:
		b.WriteString(helpStyle.Render("r:play again  q:quit"))
	}
	return b.String()
}

func (m playModel) renderGauges(b *strings.Builder) {
	critical := map[sim.GaugeID]bool{}
	for _, id := range m.snap.Critical {
		critical[id] = true
	}
	for _, spec := range m.pack.Config.Gauges {
		v := m.snap.Gauges[spec.ID]
		value := report.Number(v)
		if spec.Floor != nil && v <= *spec.Floor {
			value = failStyle.Render(value + " ✖")
		} else if critical[spec.ID] {
			value = warnStyle.Render(value + " ⚠")
		}
		fmt.Fprintf(b, "%-14s %s  %s\n", m.labels[spec.ID], m.bar.ViewAs(gaugeFraction(spec, v)), value)
	}
	if n := len(m.snap.Pending); n > 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("%d decision(s) still to play out", n)) + "\n")
	}
}

// gaugeFraction places v within the gauge's range, or within DisplayMax for
// unbounded gauges.
func gaugeFraction(spec sim.GaugeSpec, v int) float64 {
	top := spec.Max
	if spec.Unbounded {
		top = spec.DisplayMax
	}
	if top <= spec.Min {
		return 0
	}
	f := float64(v-spec.Min) / float64(top-spec.Min)
	return max(0, min(1, f))
}

func (m playModel) renderScenario(b *strings.Builder) {
	sc := m.snap.Scenario
	if sc == nil {
		return
	}
	b.WriteString(titleStyle.Render(sc.Title) + "\n")
	if sc.Prompt != "" {
		b.WriteString(sc.Prompt + "\n")
	}
	b.WriteString("\n")
	for i, c := range sc.Choices {
		line := fmt.Sprintf("  %d. %s", i+1, c.Label)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(line) + "\n")
		} else {
			b.WriteString(line + "\n")
		}
	}
}

func (m playModel) renderResult(b *strings.Builder) {
	res := m.last
	if res == nil {
		return
	}
	var box strings.Builder
	box.WriteString(goodStyle.Render(res.Choice.Label) + "\n")
	if res.Choice.Outcome != "" {
		box.WriteString(res.Choice.Outcome + "\n")
	}
	if d := report.Deltas(m.pack.Config.Gauges, m.labels, res.Applied); d != "" {
		box.WriteString(dimStyle.Render(d) + "\n")
	}
	if res.Scheduled != nil {
		box.WriteString(dimStyle.Render("This decision will have consequences later.") + "\n")
	}
	b.WriteString(boxStyle.Render(strings.TrimRight(box.String(), "\n")) + "\n")

	for _, p := range res.Triggered {
		line := "⚡ " + p.Message
		if d := report.Deltas(m.pack.Config.Gauges, m.labels, p.Deltas); d != "" {
			line += "  (" + d + ")"
		}
		b.WriteString(warnStyle.Render(line) + "\n")
	}
}

func (m playModel) renderEnd(b *strings.Builder) {
	o := m.snap.Outcome
	switch {
	case o == nil:
	case o.Grade != nil:
		g := o.Grade
		b.WriteString(goodStyle.Render(fmt.Sprintf("Rank %s: %s", g.Rank, g.Label)) + "\n")
		b.WriteString(fmt.Sprintf("Score %d / %d\n", g.Score, g.MaxScore))
		if g.Note != "" {
			b.WriteString(dimStyle.Render(g.Note) + "\n")
		}
	case o.Failure != nil:
		f := o.Failure
		b.WriteString(failStyle.Render(fmt.Sprintf("Game over on turn %d: %s hit %s", f.Turn, m.labels[f.Gauge], report.Number(f.Value))) + "\n")
		if f.Message != "" {
			b.WriteString(f.Message + "\n")
		}
	}

	b.WriteString("\n")
	switch {
	case m.offline:
		b.WriteString(dimStyle.Render("Result not saved (no store configured).") + "\n")
	case m.token != "":
		b.WriteString("Share token: " + titleStyle.Render(m.token) + "\n")
	default:
		b.WriteString(warnStyle.Render("Result could not be saved.") + "\n")
	}
}

package cli

import (
	"context"
	"testing"

	"github.com/Altair29/J-GLOW-sub001/internal/content"
	"github.com/Altair29/J-GLOW-sub001/internal/session"
	"github.com/Altair29/J-GLOW-sub001/internal/sim"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const drillPack = `
name: drill
title: Drill
total_turns: 2
gauges:
  - { id: cash, label: Cash, min: 0, unbounded: true, display_max: 200, floor: 0, monetary: true }
  - { id: morale, label: Morale, min: 0, max: 100, floor: 0, critical: 20 }
initial: { cash: 100, morale: 50 }
grading:
  include: [morale]
  tiers:
    - { min: 50, rank: A, label: Fine }
    - { min: 0, rank: C, label: Poor }
scenarios:
  - id: s1
    title: First call
    choices:
      - { id: hold, label: Hold, outcome: Nothing happens. }
      - { id: splurge, label: Splurge, delta: { cash: -100 } }
  - id: s2
    title: Second call
    choices:
      - { id: hold, label: Hold }
      - { id: cheer, label: Cheer, delta: { morale: 10 } }
`

const emptyPack = `
name: empty
title: Empty
total_turns: 0
gauges:
  - { id: morale, label: Morale, min: 0, max: 100, floor: 0 }
initial: { morale: 50 }
grading:
  include: [morale]
  tiers:
    - { min: 0, rank: C, label: Poor }
scenarios: []
`

func newTestPlay(t *testing.T) playModel {
	t.Helper()
	return newTestPlayOf(t, drillPack)
}

func newTestPlayOf(t *testing.T, src string) playModel {
	t.Helper()
	pack, err := content.Load([]byte(src))
	require.NoError(t, err)
	reg := content.NewRegistry()
	reg.Add(pack)
	m, err := newPlayModel(context.Background(), session.NewManager(reg, nil, zap.NewNop()), pack)
	require.NoError(t, err)
	m.offline = true
	return m
}

func press(t *testing.T, m playModel, keys ...tea.KeyMsg) playModel {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(playModel)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestPlayCursorMovesWithinChoices(t *testing.T) {
	m := newTestPlay(t)
	require.Equal(t, stageChoose, m.stage)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp})
	require.Equal(t, 0, m.cursor)
	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	require.Equal(t, 1, m.cursor)
	m = press(t, m, runes("k"))
	require.Equal(t, 0, m.cursor)
}

func TestPlayChooseShowsResultThenNextScenario(t *testing.T) {
	m := newTestPlay(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, stageResult, m.stage)
	require.NotNil(t, m.last)
	require.Equal(t, "hold", m.last.Choice.ID)
	require.Contains(t, m.View(), "Nothing happens.")

	m = press(t, m, runes("x"))
	require.Equal(t, stageChoose, m.stage)
	require.Equal(t, "s2", m.snap.Scenario.ID)
	require.Contains(t, m.View(), "Second call")
}

func TestPlayDigitChoosesAndEndsRun(t *testing.T) {
	m := newTestPlay(t)

	m = press(t, m, runes("2"))
	require.Equal(t, stageResult, m.stage)
	require.Equal(t, sim.PhaseGameOver, m.snap.Phase)

	m = press(t, m, runes(" "))
	require.Equal(t, stageEnd, m.stage)
	view := m.View()
	require.Contains(t, view, "Game over on turn 1")
	require.Contains(t, view, "Result not saved")
}

func TestPlayOutOfRangeDigitIgnored(t *testing.T) {
	m := newTestPlay(t)
	m = press(t, m, runes("9"))
	require.Equal(t, stageChoose, m.stage)
	require.Equal(t, 1, m.snap.Turn)
}

func TestPlayCompletedRunShowsGradeAndRestarts(t *testing.T) {
	m := newTestPlay(t)
	m = press(t, m, runes("1"), runes("x"), runes("2"), runes("x"))
	require.Equal(t, stageEnd, m.stage)
	require.Equal(t, sim.PhaseCompleted, m.snap.Phase)
	require.Contains(t, m.View(), "Rank A: Fine")

	m = press(t, m, runes("r"))
	require.Equal(t, stageChoose, m.stage)
	require.Equal(t, 1, m.snap.Turn)
	require.Empty(t, m.token)
	require.Equal(t, 50, m.snap.Gauges["morale"])
}

func TestPlayRestartOfEmptyPackStaysOnEndScreen(t *testing.T) {
	m := newTestPlayOf(t, emptyPack)
	require.Equal(t, stageEnd, m.stage)

	m = press(t, m, runes("r"))
	require.Equal(t, stageEnd, m.stage)
	require.Equal(t, sim.PhaseCompleted, m.snap.Phase)
	require.NotEmpty(t, m.token)

	require.NotPanics(t, func() {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter}, runes("1"))
	})
	require.Equal(t, stageEnd, m.stage)
	require.Contains(t, m.View(), "Rank C: Poor")
}

func TestPlayQuit(t *testing.T) {
	m := newTestPlay(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestPlayQuitAfterRunDropped(t *testing.T) {
	m := newTestPlay(t)
	require.NoError(t, m.mgr.Abandon(m.runID))

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	require.IsType(t, tea.QuitMsg{}, cmd())
}

func TestGaugeFraction(t *testing.T) {
	bounded := sim.GaugeSpec{Min: 0, Max: 100}
	unbounded := sim.GaugeSpec{Unbounded: true, DisplayMax: 200}

	require.InDelta(t, 0.5, gaugeFraction(bounded, 50), 1e-9)
	require.InDelta(t, 0.25, gaugeFraction(unbounded, 50), 1e-9)
	require.InDelta(t, 1.0, gaugeFraction(unbounded, 500), 1e-9)
	require.InDelta(t, 0.0, gaugeFraction(sim.GaugeSpec{Unbounded: true}, 50), 1e-9)
}

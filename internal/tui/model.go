// Package tui is the terminal front end started by "tripptrapp play".
//
// The bubbletea event loop owns the Model. Game transitions that happen outside
// the loop, such as the delayed computer move, arrive as SnapshotMsg.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rocketscienceinc/tripptrapp/internal/entity"
	"github.com/rocketscienceinc/tripptrapp/internal/presenter"
	"github.com/rocketscienceinc/tripptrapp/internal/tictactoe"
)

var (
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E53935")).Bold(true)
	orangeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FB8C00")).Bold(true)
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	cursorStyle = lipgloss.NewStyle().Background(lipgloss.Color("237"))
	statusStyle = lipgloss.NewStyle().Bold(true).MarginTop(1)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginBottom(1)
)

// SnapshotMsg carries a snapshot published by the game.
type SnapshotMsg entity.Snapshot

type game interface {
	CellClicked(cell int) error
	Reset()
	ChangeMode(mode entity.GameMode) error
	Snapshot() entity.Snapshot
}

type Model struct {
	game     game
	language presenter.Language
	snapshot entity.Snapshot
	cursor   int
	quitting bool
}

func NewModel(g game, language presenter.Language) Model {
	return Model{
		game:     g,
		language: language,
		snapshot: g.Snapshot(),
		cursor:   4,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		// pushes are delivered asynchronously and may arrive out of order
		if msg.Version >= m.snapshot.Version {
			m.snapshot = entity.Snapshot(msg)
		}
		return m, nil

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			if m.cursor >= 3 {
				m.cursor -= 3
			}
		case "down", "j":
			if m.cursor < 6 {
				m.cursor += 3
			}
		case "left", "h":
			if m.cursor%3 > 0 {
				m.cursor--
			}
		case "right", "l":
			if m.cursor%3 < 2 {
				m.cursor++
			}
		case "enter", " ":
			_ = m.game.CellClicked(m.cursor)
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			m.cursor = int(key[0] - '1')
			_ = m.game.CellClicked(m.cursor)
		case "r":
			m.game.Reset()
		case "m":
			_ = m.game.ChangeMode(nextMode(m.snapshot.Mode))
		}

		if next := m.game.Snapshot(); next.Version >= m.snapshot.Version {
			m.snapshot = next
		}
	}

	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Tripp Trapp Tresko"))
	b.WriteString("\n")

	for row := 0; row < 3; row++ {
		cells := make([]string, 0, 3)
		for col := 0; col < 3; col++ {
			cells = append(cells, m.renderCell(row*3+col))
		}
		b.WriteString(strings.Join(cells, emptyStyle.Render("│")))
		b.WriteString("\n")
		if row < 2 {
			b.WriteString(emptyStyle.Render("─────┼─────┼─────"))
			b.WriteString("\n")
		}
	}

	b.WriteString(statusStyle.Render(presenter.StatusText(m.language, m.snapshot)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("arrows move • enter place • r reset • m mode (%s) • q quit", m.snapshot.Mode)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderCell(cell int) string {
	var mark string
	switch m.snapshot.Board[cell] {
	case entity.PlayerFirst:
		mark = redStyle.Render("●")
	case entity.PlayerSecond:
		mark = orangeStyle.Render("●")
	default:
		mark = emptyStyle.Render("·")
	}

	content := "  " + mark + "  "
	if cell == m.cursor && !m.snapshot.Status.IsFinished() {
		return cursorStyle.Render(content)
	}

	return content
}

func nextMode(mode entity.GameMode) entity.GameMode {
	if mode == entity.ModeHumanVsComputer {
		return entity.ModeTwoHuman
	}

	return entity.ModeHumanVsComputer
}

// Run plays controller in the terminal until the user quits or ctx is done.
func Run(ctx context.Context, controller *tictactoe.GameController, language presenter.Language) error {
	program := tea.NewProgram(NewModel(controller, language), tea.WithContext(ctx))

	// Send blocks until the event loop reads the message, and listeners may run
	// inside Update, so every push gets its own goroutine.
	unsubscribe := controller.Subscribe(func(snapshot entity.Snapshot) {
		go program.Send(SnapshotMsg(snapshot))
	})
	defer unsubscribe()

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to run terminal ui: %w", err)
	}

	return nil
}

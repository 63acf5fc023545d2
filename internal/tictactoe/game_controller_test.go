package tictactoe

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rocketscienceinc/tripptrapp/internal/apperror"
	"github.com/rocketscienceinc/tripptrapp/internal/entity"
	"github.com/rocketscienceinc/tripptrapp/internal/service"
	"github.com/rocketscienceinc/tripptrapp/testing/suite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	red    = entity.PlayerFirst
	orange = entity.PlayerSecond
	empty  = entity.EmptyCell
)

func newTestController(st *suite.Suite, mode entity.GameMode) *GameController {
	st.Helper()

	bot := service.NewBotService(st.Logger, entity.ComputerPlayer)
	controller, err := NewGameController(st.Logger, bot, Options{
		Mode:          mode,
		ThinkingDelay: DefaultThinkingDelay,
		Scheduler:     st.Scheduler,
	})
	require.NoError(st, err)

	st.Cleanup(controller.Close)

	return controller
}

func initialSnapshot(mode entity.GameMode) entity.Snapshot {
	return entity.Snapshot{
		Status: entity.Status{Kind: entity.StatusInProgress},
		Turn:   entity.TurnOwner{Player: red},
		Mode:   mode,
	}
}

// withoutCounters drops the fields that grow on every transition.
func withoutCounters(snapshot entity.Snapshot) entity.Snapshot {
	snapshot.Generation = 0
	snapshot.Version = 0
	return snapshot
}

func TestNewGameController(t *testing.T) {
	t.Run("Starts with red to move on an empty board", func(t *testing.T) {
		_, st := suite.New(t)

		// When: a new controller is created
		controller := newTestController(st, entity.ModeHumanVsComputer)

		// Then: it is in HumanTurn(First)
		assert.Equal(t, initialSnapshot(entity.ModeHumanVsComputer), withoutCounters(controller.Snapshot()))
		assert.Equal(t, phaseHumanTurn, controller.phase)
	})

	t.Run("Defaults to playing the computer", func(t *testing.T) {
		_, st := suite.New(t)

		controller, err := NewGameController(st.Logger, service.NewBotService(st.Logger, entity.ComputerPlayer), Options{Scheduler: st.Scheduler})

		require.NoError(t, err)
		assert.Equal(t, entity.ModeHumanVsComputer, controller.Snapshot().Mode)
	})

	t.Run("Rejects an unknown mode", func(t *testing.T) {
		_, st := suite.New(t)

		_, err := NewGameController(st.Logger, service.NewBotService(st.Logger, entity.ComputerPlayer), Options{Mode: "online"})

		require.ErrorIs(t, err, entity.ErrUnknownGameMode)
	})
}

func TestGameController_TwoHuman(t *testing.T) {
	t.Run("Players alternate", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeTwoHuman)

		// When: red then orange click
		require.NoError(t, controller.CellClicked(0))
		require.NoError(t, controller.CellClicked(4))

		// Then: both marks are placed and red is to move again
		snapshot := controller.Snapshot()
		assert.Equal(t, entity.Board{red, empty, empty, empty, orange, empty, empty, empty, empty}, snapshot.Board)
		assert.Equal(t, entity.TurnOwner{Player: red}, snapshot.Turn)

		// Then: nothing was ever scheduled
		assert.Empty(t, st.Scheduler.Delays())
	})

	t.Run("Win moves to the terminal state", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeTwoHuman)

		for _, cell := range []int{0, 3, 1, 4, 2} {
			require.NoError(t, controller.CellClicked(cell))
		}

		snapshot := controller.Snapshot()
		assert.Equal(t, entity.Status{Kind: entity.StatusWon, Winner: red}, snapshot.Status)
		assert.Equal(t, entity.TurnOwner{}, snapshot.Turn)
		assert.Equal(t, phaseTerminal, controller.phase)

		// When: someone clicks after the game ended
		err := controller.CellClicked(8)

		// Then: the click is rejected and the board is unchanged
		require.ErrorIs(t, err, apperror.ErrGameFinished)
		assert.Equal(t, snapshot, controller.Snapshot())
	})

	t.Run("Full board without a line is a draw", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeTwoHuman)

		// R O R / R O O / O R R
		for _, cell := range []int{0, 1, 2, 4, 3, 5, 7, 6, 8} {
			require.NoError(t, controller.CellClicked(cell))
		}

		snapshot := controller.Snapshot()
		assert.Equal(t, entity.Status{Kind: entity.StatusDraw}, snapshot.Status)
		assert.Equal(t, entity.TurnOwner{}, snapshot.Turn)
	})

	t.Run("Occupied and invalid cells are no-ops", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeTwoHuman)
		require.NoError(t, controller.CellClicked(0))
		before := controller.Snapshot()

		require.ErrorIs(t, controller.CellClicked(0), apperror.ErrCellOccupied)
		require.ErrorIs(t, controller.CellClicked(-1), entity.ErrInvalidCell)
		require.ErrorIs(t, controller.CellClicked(9), entity.ErrInvalidCell)

		assert.Equal(t, before, controller.Snapshot())
	})
}

func TestGameController_HumanVsComputer(t *testing.T) {
	t.Run("Human move schedules the computer", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeHumanVsComputer)

		// When: red clicks the center
		require.NoError(t, controller.CellClicked(4))

		// Then: the computer is thinking with one delivery scheduled after the delay
		snapshot := controller.Snapshot()
		assert.Equal(t, entity.TurnOwner{Thinking: true}, snapshot.Turn)
		assert.Equal(t, phaseComputerThinking, controller.phase)
		assert.Equal(t, 1, st.Scheduler.Pending())
		assert.Equal(t, []time.Duration{DefaultThinkingDelay}, st.Scheduler.Delays())
	})

	t.Run("Clicks while thinking are rejected", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeHumanVsComputer)
		require.NoError(t, controller.CellClicked(4))
		before := controller.Snapshot()

		err := controller.CellClicked(0)

		require.ErrorIs(t, err, apperror.ErrComputerThinking)
		assert.Equal(t, before, controller.Snapshot())
	})

	t.Run("Delay elapsing applies the computer move", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeHumanVsComputer)
		require.NoError(t, controller.CellClicked(4))

		// When: the thinking delay elapses
		fired := st.Scheduler.Elapse()

		// Then: the computer answered the center with the first corner and red moves again
		require.Equal(t, 1, fired)
		snapshot := controller.Snapshot()
		assert.Equal(t, entity.Board{orange, empty, empty, empty, red, empty, empty, empty, empty}, snapshot.Board)
		assert.Equal(t, entity.TurnOwner{Player: red}, snapshot.Turn)
		assert.Equal(t, entity.StatusInProgress, snapshot.Status.Kind)
	})

	t.Run("Computer answers the opposite corner with a corner", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeHumanVsComputer)

		// red 4, computer 0, red 8: an edge reply would lose to a fork
		require.NoError(t, controller.CellClicked(4))
		st.Scheduler.Elapse()
		require.NoError(t, controller.CellClicked(8))
		st.Scheduler.Elapse()

		snapshot := controller.Snapshot()
		assert.Equal(t, entity.StatusInProgress, snapshot.Status.Kind)
		assert.Equal(t, entity.Board{orange, empty, orange, empty, red, empty, empty, empty, red}, snapshot.Board)
	})

	t.Run("Human never wins a full game", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeHumanVsComputer)

		for !controller.Snapshot().Status.IsFinished() {
			cells := controller.Snapshot().Board.EmptyCells()
			require.NoError(t, controller.CellClicked(cells[len(cells)-1]))
			st.Scheduler.Elapse()
		}

		assert.NotEqual(t, red, controller.Snapshot().Status.Winner)
		assert.Equal(t, phaseTerminal, controller.phase)
	})
}

func TestGameController_Reset(t *testing.T) {
	t.Run("Reset while thinking cancels the computer move", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeHumanVsComputer)
		require.NoError(t, controller.CellClicked(4))
		require.Equal(t, 1, st.Scheduler.Pending())

		// When: reset is requested before the delay elapses
		controller.Reset()

		// Then: the board is empty, red is to move and the timer is stopped
		assert.Equal(t, initialSnapshot(entity.ModeHumanVsComputer), withoutCounters(controller.Snapshot()))
		assert.Zero(t, st.Scheduler.Pending())

		// When: the original timer fires anyway
		fired := st.Scheduler.ElapseIgnoringStop()

		// Then: the stale move is discarded
		require.Equal(t, 1, fired)
		assert.Equal(t, initialSnapshot(entity.ModeHumanVsComputer), withoutCounters(controller.Snapshot()))
		assert.Equal(t, phaseHumanTurn, controller.phase)
	})

	t.Run("Stale move does not land on the next game", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeHumanVsComputer)
		require.NoError(t, controller.CellClicked(4))
		controller.Reset()

		// Given: the new game is already thinking about a different move
		require.NoError(t, controller.CellClicked(8))

		// When: both the stale and the current deliveries fire
		st.Scheduler.ElapseIgnoringStop()

		// Then: exactly one computer mark is on the board, the answer to the corner
		snapshot := controller.Snapshot()
		marks := map[entity.Player]int{}
		for _, cell := range snapshot.Board {
			marks[cell]++
		}
		assert.Equal(t, 1, marks[orange])
		assert.Equal(t, 1, marks[red])
		assert.Equal(t, red, snapshot.Board[8])
		assert.Equal(t, orange, snapshot.Board[4])
	})

	t.Run("Reset from every state yields the initial state", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeTwoHuman)

		// fresh
		controller.Reset()
		assert.Equal(t, initialSnapshot(entity.ModeTwoHuman), withoutCounters(controller.Snapshot()))

		// mid game
		require.NoError(t, controller.CellClicked(0))
		controller.Reset()
		assert.Equal(t, initialSnapshot(entity.ModeTwoHuman), withoutCounters(controller.Snapshot()))

		// terminal
		for _, cell := range []int{0, 3, 1, 4, 2} {
			require.NoError(t, controller.CellClicked(cell))
		}
		require.True(t, controller.Snapshot().Status.IsFinished())
		controller.Reset()
		assert.Equal(t, initialSnapshot(entity.ModeTwoHuman), withoutCounters(controller.Snapshot()))

		// twice in a row
		controller.Reset()
		assert.Equal(t, initialSnapshot(entity.ModeTwoHuman), withoutCounters(controller.Snapshot()))
	})

	t.Run("Every reset advances the generation", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeTwoHuman)
		before := controller.Snapshot()

		controller.Reset()

		after := controller.Snapshot()
		assert.Greater(t, after.Generation, before.Generation)
		assert.Greater(t, after.Version, before.Version)
	})
}

func TestGameController_ChangeMode(t *testing.T) {
	t.Run("Mode change resets the game", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeHumanVsComputer)
		require.NoError(t, controller.CellClicked(4))

		// When: switching to two humans while the computer is thinking
		require.NoError(t, controller.ChangeMode(entity.ModeTwoHuman))

		// Then: the game restarted in the new mode and the computer never moves
		assert.Equal(t, initialSnapshot(entity.ModeTwoHuman), withoutCounters(controller.Snapshot()))
		st.Scheduler.ElapseIgnoringStop()
		assert.Equal(t, initialSnapshot(entity.ModeTwoHuman), withoutCounters(controller.Snapshot()))

		// Then: two humans alternate without the computer
		require.NoError(t, controller.CellClicked(4))
		assert.Equal(t, entity.TurnOwner{Player: orange}, controller.Snapshot().Turn)
	})

	t.Run("Unknown mode leaves the game untouched", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeTwoHuman)
		require.NoError(t, controller.CellClicked(4))
		before := controller.Snapshot()

		err := controller.ChangeMode("online")

		require.ErrorIs(t, err, entity.ErrUnknownGameMode)
		assert.Equal(t, before, controller.Snapshot())
	})
}

func TestGameController_Subscribe(t *testing.T) {
	t.Run("Listeners see every transition in order", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeHumanVsComputer)

		var seen []entity.Snapshot
		unsubscribe := controller.Subscribe(func(snapshot entity.Snapshot) {
			seen = append(seen, snapshot)
		})

		require.NoError(t, controller.CellClicked(4))
		st.Scheduler.Elapse()
		require.Error(t, controller.CellClicked(4))
		controller.Reset()

		unsubscribe()
		require.NoError(t, controller.CellClicked(0))

		require.Len(t, seen, 3)
		assert.True(t, seen[0].Turn.Thinking)
		assert.Equal(t, orange, seen[1].Board[0])
		assert.Equal(t, entity.Board{}, seen[2].Board)
		assert.Less(t, seen[0].Version, seen[1].Version)
		assert.Less(t, seen[1].Version, seen[2].Version)
	})

	t.Run("Listeners may call back into the controller", func(t *testing.T) {
		_, st := suite.New(t)
		controller := newTestController(st, entity.ModeTwoHuman)

		var latest entity.Snapshot
		controller.Subscribe(func(entity.Snapshot) {
			latest = controller.Snapshot()
		})

		require.NoError(t, controller.CellClicked(2))

		assert.Equal(t, red, latest.Board[2])
	})
}

func TestGameController_Close(t *testing.T) {
	_, st := suite.New(t)
	controller := newTestController(st, entity.ModeHumanVsComputer)
	require.NoError(t, controller.CellClicked(4))

	controller.Close()

	assert.Zero(t, st.Scheduler.Pending())
	st.Scheduler.ElapseIgnoringStop()
	assert.True(t, controller.Snapshot().Turn.Thinking)
	require.ErrorIs(t, controller.CellClicked(0), apperror.ErrGameClosed)
	require.ErrorIs(t, controller.ChangeMode(entity.ModeTwoHuman), apperror.ErrGameClosed)
}

func TestGameController_TimerScheduler(t *testing.T) {
	const delay = 20 * time.Millisecond

	newController := func(t *testing.T) *GameController {
		t.Helper()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		controller, err := NewGameController(logger, service.NewBotService(logger, entity.ComputerPlayer), Options{
			Mode:          entity.ModeHumanVsComputer,
			ThinkingDelay: delay,
		})
		require.NoError(t, err)
		t.Cleanup(controller.Close)

		return controller
	}

	t.Run("Computer answers after the delay", func(t *testing.T) {
		controller := newController(t)

		var mu sync.Mutex
		var last entity.Snapshot
		controller.Subscribe(func(snapshot entity.Snapshot) {
			mu.Lock()
			defer mu.Unlock()
			last = snapshot
		})

		require.NoError(t, controller.CellClicked(4))

		require.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			return last.Board[0] == orange && last.Turn.Player == red
		}, time.Second, delay/4)
	})

	t.Run("Reset before the delay cancels the move", func(t *testing.T) {
		controller := newController(t)

		require.NoError(t, controller.CellClicked(4))
		controller.Reset()

		time.Sleep(5 * delay)

		assert.Equal(t, initialSnapshot(entity.ModeHumanVsComputer), withoutCounters(controller.Snapshot()))
	})
}

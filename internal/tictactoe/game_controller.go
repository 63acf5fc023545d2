package tictactoe

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tripptrapp/internal/apperror"
	"github.com/rocketscienceinc/tripptrapp/internal/entity"
	"github.com/rocketscienceinc/tripptrapp/internal/metrics"
)

const DefaultThinkingDelay = 500 * time.Millisecond

type phase int

const (
	phaseHumanTurn phase = iota
	phaseComputerThinking
	phaseTerminal
)

type moveSelector interface {
	BestMove(board entity.Board) (int, error)
}

type Options struct {
	Mode          entity.GameMode
	ThinkingDelay time.Duration
	Scheduler     Scheduler
}

// GameController owns one board and sequences human clicks, computer moves and
// resets. All transitions happen under mu, so a game is driven by a single
// logical thread even though the computer move is delivered by a timer.
type GameController struct {
	logger    *slog.Logger
	bot       moveSelector
	scheduler Scheduler
	delay     time.Duration

	mu          sync.Mutex
	board       entity.Board
	mode        entity.GameMode
	phase       phase
	turn        entity.Player
	status      entity.Status
	generation  uint64
	version     uint64
	stopPending func() bool
	closed      bool

	listeners    map[uint64]func(entity.Snapshot)
	nextListener uint64
}

func NewGameController(logger *slog.Logger, bot moveSelector, opts Options) (*GameController, error) {
	if opts.Mode == "" {
		opts.Mode = entity.ModeHumanVsComputer
	}

	mode, err := entity.ParseGameMode(string(opts.Mode))
	if err != nil {
		return nil, fmt.Errorf("failed to create game controller: %w", err)
	}

	if opts.Scheduler == nil {
		opts.Scheduler = NewTimerScheduler()
	}

	if opts.ThinkingDelay < 0 {
		opts.ThinkingDelay = DefaultThinkingDelay
	}

	controller := &GameController{
		logger:    logger.With("component", "game_controller"),
		bot:       bot,
		scheduler: opts.Scheduler,
		delay:     opts.ThinkingDelay,
		listeners: make(map[uint64]func(entity.Snapshot)),
	}
	controller.resetLocked(mode)

	return controller, nil
}

// CellClicked applies the current human player's mark to cell. A rejected click
// returns the reason and leaves the game untouched.
func (that *GameController) CellClicked(cell int) error {
	log := that.logger.With("method", "CellClicked", "cell", cell)

	that.mu.Lock()
	if err := that.applyHumanMove(cell); err != nil {
		generation := that.generation
		that.mu.Unlock()

		metrics.RejectedIntents.WithLabelValues(rejectReason(err)).Inc()
		log.Debug("click rejected", "generation", generation, "reason", err)

		return err
	}
	snapshot, listeners := that.commitLocked()
	that.mu.Unlock()

	notify(snapshot, listeners)

	return nil
}

// Reset clears the board, keeps the mode and drops any pending computer move.
func (that *GameController) Reset() {
	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return
	}
	that.resetLocked(that.mode)
	snapshot, listeners := that.commitLocked()
	that.mu.Unlock()

	that.logger.Debug("game reset", "generation", snapshot.Generation)

	notify(snapshot, listeners)
}

// ChangeMode installs mode and resets the game, even if the mode is unchanged.
func (that *GameController) ChangeMode(mode entity.GameMode) error {
	if _, err := entity.ParseGameMode(string(mode)); err != nil {
		return err
	}

	that.mu.Lock()
	if that.closed {
		that.mu.Unlock()
		return apperror.ErrGameClosed
	}
	that.resetLocked(mode)
	snapshot, listeners := that.commitLocked()
	that.mu.Unlock()

	that.logger.Debug("game mode changed", "mode", mode, "generation", snapshot.Generation)

	notify(snapshot, listeners)

	return nil
}

func (that *GameController) Snapshot() entity.Snapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.snapshotLocked()
}

// Subscribe registers fn to receive a snapshot after every transition. fn is
// called outside the controller lock and may call back into the controller.
func (that *GameController) Subscribe(fn func(entity.Snapshot)) (unsubscribe func()) {
	that.mu.Lock()
	defer that.mu.Unlock()

	id := that.nextListener
	that.nextListener++
	that.listeners[id] = fn

	return func() {
		that.mu.Lock()
		defer that.mu.Unlock()
		delete(that.listeners, id)
	}
}

// Close cancels the pending computer move and rejects every later intent.
func (that *GameController) Close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.closed {
		return
	}

	that.closed = true
	that.generation++
	that.cancelPendingLocked()
	clear(that.listeners)
}

func (that *GameController) applyHumanMove(cell int) error {
	switch {
	case that.closed:
		return apperror.ErrGameClosed
	case that.phase == phaseComputerThinking:
		return apperror.ErrComputerThinking
	case that.phase == phaseTerminal:
		return apperror.ErrGameFinished
	}

	if err := that.board.Place(cell, that.turn); err != nil {
		return fmt.Errorf("failed to place mark: %w", err)
	}

	if that.finishIfDecided() {
		return nil
	}

	if that.mode == entity.ModeTwoHuman {
		that.turn = that.turn.Other()
		return nil
	}

	that.phase = phaseComputerThinking
	that.turn = entity.ComputerPlayer
	that.scheduleComputerMoveLocked()

	return nil
}

func (that *GameController) scheduleComputerMoveLocked() {
	generation := that.generation
	that.stopPending = that.scheduler.AfterFunc(that.delay, func() {
		that.deliverComputerMove(generation)
	})
}

// deliverComputerMove runs when the thinking delay elapses. A delivery scheduled
// before the latest reset carries an old generation and is dropped.
func (that *GameController) deliverComputerMove(generation uint64) {
	log := that.logger.With("method", "deliverComputerMove", "generation", generation)

	that.mu.Lock()
	if that.closed || generation != that.generation || that.phase != phaseComputerThinking {
		current := that.generation
		that.mu.Unlock()

		metrics.StaleComputerMoves.Inc()
		log.Debug("stale computer move discarded", "current_generation", current)

		return
	}
	that.stopPending = nil

	cell, err := that.bot.BestMove(that.board)
	if err == nil {
		err = that.board.Place(cell, entity.ComputerPlayer)
	}

	if err != nil {
		// unreachable while the game is in progress; hand the turn back
		log.Error("computer failed to move", "board", that.board.String(), "error", err)
		that.phase = phaseHumanTurn
		that.turn = entity.PlayerFirst
	} else {
		metrics.ComputerMoves.Inc()
		if !that.finishIfDecided() {
			that.phase = phaseHumanTurn
			that.turn = entity.PlayerFirst
		}
	}

	snapshot, listeners := that.commitLocked()
	that.mu.Unlock()

	log.Debug("computer moved", "cell", cell, "status", snapshot.Status.Kind)

	notify(snapshot, listeners)
}

func (that *GameController) finishIfDecided() bool {
	that.status = that.board.Outcome()
	if !that.status.IsFinished() {
		return false
	}

	that.phase = phaseTerminal
	that.turn = entity.EmptyCell
	that.cancelPendingLocked()

	outcome := string(that.status.Winner)
	if that.status.Kind == entity.StatusDraw {
		outcome = string(entity.StatusDraw)
	}
	metrics.GamesFinished.WithLabelValues(string(that.mode), outcome).Inc()

	that.logger.Info("game finished", "mode", that.mode, "outcome", outcome, "board", that.board.String())

	return true
}

func (that *GameController) resetLocked(mode entity.GameMode) {
	that.generation++
	that.cancelPendingLocked()

	that.board = entity.Board{}
	that.mode = mode
	that.phase = phaseHumanTurn
	that.turn = entity.PlayerFirst
	that.status = entity.Status{Kind: entity.StatusInProgress}
}

func (that *GameController) cancelPendingLocked() {
	if that.stopPending == nil {
		return
	}

	that.stopPending()
	that.stopPending = nil
}

// commitLocked bumps the version and captures what has to be published.
func (that *GameController) commitLocked() (entity.Snapshot, []func(entity.Snapshot)) {
	that.version++

	listeners := make([]func(entity.Snapshot), 0, len(that.listeners))
	for _, fn := range that.listeners {
		listeners = append(listeners, fn)
	}

	return that.snapshotLocked(), listeners
}

func (that *GameController) snapshotLocked() entity.Snapshot {
	turn := entity.TurnOwner{}
	switch that.phase {
	case phaseHumanTurn:
		turn.Player = that.turn
	case phaseComputerThinking:
		turn.Thinking = true
	case phaseTerminal:
	}

	return entity.Snapshot{
		Board:      that.board,
		Status:     that.status,
		Turn:       turn,
		Mode:       that.mode,
		Generation: that.generation,
		Version:    that.version,
	}
}

func notify(snapshot entity.Snapshot, listeners []func(entity.Snapshot)) {
	for _, fn := range listeners {
		fn(snapshot)
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, apperror.ErrCellOccupied):
		return "occupied"
	case errors.Is(err, entity.ErrInvalidCell):
		return "invalid_cell"
	case errors.Is(err, apperror.ErrComputerThinking):
		return "thinking"
	case errors.Is(err, apperror.ErrGameFinished):
		return "finished"
	case errors.Is(err, apperror.ErrGameClosed):
		return "closed"
	default:
		return "other"
	}
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tripptrapp/internal/apperror"
	"github.com/rocketscienceinc/tripptrapp/internal/entity"
	"github.com/rocketscienceinc/tripptrapp/internal/metrics"
	"github.com/rocketscienceinc/tripptrapp/internal/repository"
	"github.com/rocketscienceinc/tripptrapp/internal/tictactoe"
)

const DefaultIdleTTL = 30 * time.Minute

type sessionRepo interface {
	CreateOrUpdate(ctx context.Context, session *repository.Session) error
	GetByID(ctx context.Context, id string) (*repository.Session, error)
	DeleteByID(ctx context.Context, id string) error
	Touch(ctx context.Context, id string, at time.Time) error
	IdleSince(ctx context.Context, deadline time.Time) ([]*repository.Session, error)
}

type moveSelector interface {
	BestMove(board entity.Board) (int, error)
}

type Options struct {
	DefaultMode   entity.GameMode
	ThinkingDelay time.Duration
	Scheduler     tictactoe.Scheduler
	IdleTTL       time.Duration
	Now           func() time.Time
}

// GameManager keeps one GameController per client session.
type GameManager struct {
	logger      *slog.Logger
	sessionRepo sessionRepo
	bot         moveSelector
	opts        Options
}

func NewGameManager(logger *slog.Logger, sessionRepo sessionRepo, bot moveSelector, opts Options) *GameManager {
	if opts.DefaultMode == "" {
		opts.DefaultMode = entity.ModeHumanVsComputer
	}

	if opts.IdleTTL <= 0 {
		opts.IdleTTL = DefaultIdleTTL
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &GameManager{
		logger:      logger,
		sessionRepo: sessionRepo,
		bot:         bot,
		opts:        opts,
	}
}

// Connect resumes the session with id, or starts a new one when id is empty or unknown.
func (that *GameManager) Connect(ctx context.Context, id string) (*repository.Session, error) {
	if id == "" {
		return that.StartSession(ctx, that.opts.DefaultMode)
	}

	session, err := that.sessionRepo.GetByID(ctx, id)
	if errors.Is(err, apperror.ErrSessionNotFound) {
		return that.StartSession(ctx, that.opts.DefaultMode)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err = that.sessionRepo.Touch(ctx, id, that.opts.Now()); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	return session, nil
}

func (that *GameManager) StartSession(ctx context.Context, mode entity.GameMode) (*repository.Session, error) {
	log := that.logger.With("method", "StartSession")

	if mode == "" {
		mode = that.opts.DefaultMode
	}

	sessionID := uuid.NewString()

	controller, err := tictactoe.NewGameController(that.logger.With("session_id", sessionID), that.bot, tictactoe.Options{
		Mode:          mode,
		ThinkingDelay: that.opts.ThinkingDelay,
		Scheduler:     that.opts.Scheduler,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	session := &repository.Session{
		ID:       sessionID,
		Game:     controller,
		LastSeen: that.opts.Now(),
	}

	if err = that.sessionRepo.CreateOrUpdate(ctx, session); err != nil {
		controller.Close()
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	metrics.ActiveSessions.Inc()
	log.Info("session started", "session_id", sessionID, "mode", mode)

	return session, nil
}

// MakeTurn forwards a click. A rejected click returns the unchanged snapshot with the reason.
func (that *GameManager) MakeTurn(ctx context.Context, sessionID string, cell int) (entity.Snapshot, error) {
	session, err := that.activeSession(ctx, sessionID)
	if err != nil {
		return entity.Snapshot{}, err
	}

	if err = session.Game.CellClicked(cell); err != nil {
		return session.Game.Snapshot(), fmt.Errorf("failed make turn: %w", err)
	}

	return session.Game.Snapshot(), nil
}

func (that *GameManager) ResetGame(ctx context.Context, sessionID string) (entity.Snapshot, error) {
	session, err := that.activeSession(ctx, sessionID)
	if err != nil {
		return entity.Snapshot{}, err
	}

	session.Game.Reset()

	return session.Game.Snapshot(), nil
}

func (that *GameManager) ChangeMode(ctx context.Context, sessionID string, mode entity.GameMode) (entity.Snapshot, error) {
	session, err := that.activeSession(ctx, sessionID)
	if err != nil {
		return entity.Snapshot{}, err
	}

	if err = session.Game.ChangeMode(mode); err != nil {
		return session.Game.Snapshot(), fmt.Errorf("failed change mode: %w", err)
	}

	return session.Game.Snapshot(), nil
}

func (that *GameManager) GetSnapshot(ctx context.Context, sessionID string) (entity.Snapshot, error) {
	session, err := that.activeSession(ctx, sessionID)
	if err != nil {
		return entity.Snapshot{}, err
	}

	return session.Game.Snapshot(), nil
}

// EndSession closes the game and forgets the session.
func (that *GameManager) EndSession(ctx context.Context, sessionID string) error {
	session, err := that.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	return that.endSession(ctx, session)
}

// SweepIdle ends every session not seen within the idle TTL and returns how many were ended.
func (that *GameManager) SweepIdle(ctx context.Context) (int, error) {
	log := that.logger.With("method", "SweepIdle")

	idle, err := that.sessionRepo.IdleSince(ctx, that.opts.Now().Add(-that.opts.IdleTTL))
	if err != nil {
		return 0, fmt.Errorf("failed to list idle sessions: %w", err)
	}

	ended := 0
	for _, session := range idle {
		if err = that.endSession(ctx, session); err != nil {
			log.Error("failed to end idle session", "session_id", session.ID, "error", err)
			continue
		}
		ended++
	}

	if ended > 0 {
		log.Info("idle sessions ended", "count", ended)
	}

	return ended, nil
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (that *GameManager) RunJanitor(ctx context.Context, interval time.Duration) {
	log := that.logger.With("method", "RunJanitor")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("janitor stopped")
			return
		case <-ticker.C:
			if _, err := that.SweepIdle(ctx); err != nil {
				log.Error("failed to sweep sessions", "error", err)
			}
		}
	}
}

func (that *GameManager) activeSession(ctx context.Context, sessionID string) (*repository.Session, error) {
	session, err := that.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err = that.sessionRepo.Touch(ctx, sessionID, that.opts.Now()); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	return session, nil
}

func (that *GameManager) endSession(ctx context.Context, session *repository.Session) error {
	if err := that.sessionRepo.DeleteByID(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	session.Game.Close()
	metrics.ActiveSessions.Dec()

	that.logger.Info("session ended", "session_id", session.ID)

	return nil
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tripptrapp/internal/config"
	"github.com/rocketscienceinc/tripptrapp/internal/entity"
	"github.com/rocketscienceinc/tripptrapp/internal/presenter"
	"github.com/rocketscienceinc/tripptrapp/internal/repository"
	"github.com/rocketscienceinc/tripptrapp/internal/service"
	"github.com/rocketscienceinc/tripptrapp/internal/usecase"
	"github.com/rocketscienceinc/tripptrapp/transport/rest"
	"github.com/rocketscienceinc/tripptrapp/transport/websocket"
)

// RunApp - runs the game server until SIGINT or SIGTERM.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	language, err := presenter.ParseLanguage(conf.Language)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	gameManager, err := NewGameManager(logger, conf)
	if err != nil {
		return err
	}

	go gameManager.RunJanitor(ctx, conf.Session.SweepInterval)

	wsServer := websocket.New(logger, gameManager, language)

	if err = rest.Start(ctx, logger, conf.GetHTTPAddr(), rest.NewRouter(wsServer)); err != nil {
		return fmt.Errorf("HTTP server error: %w", err)
	}

	log.Info("Application context canceled, shutting down")

	return nil
}

// NewGameManager builds the session manager from conf.
func NewGameManager(logger *slog.Logger, conf *config.Config) (*usecase.GameManager, error) {
	mode, err := entity.ParseGameMode(conf.Game.DefaultMode)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	sessionRepo := repository.NewSessionRepository()
	bot := service.NewBotService(logger, entity.ComputerPlayer)

	return usecase.NewGameManager(logger, sessionRepo, bot, usecase.Options{
		DefaultMode:   mode,
		ThinkingDelay: conf.Game.ThinkingDelay,
		IdleTTL:       conf.Session.IdleTTL,
	}), nil
}

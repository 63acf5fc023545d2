package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	app "github.com/rocketscienceinc/tripptrapp/internal"
	"github.com/rocketscienceinc/tripptrapp/internal/entity"
	"github.com/rocketscienceinc/tripptrapp/internal/presenter"
	"github.com/rocketscienceinc/tripptrapp/internal/service"
	"github.com/rocketscienceinc/tripptrapp/internal/tictactoe"
	"github.com/rocketscienceinc/tripptrapp/internal/tui"
)

var configPath string

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "tripptrapp",
		Short:        "Tripp Trapp Tresko against a computer that never loses",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./config.yml", "path to the config file")

	rootCmd.AddCommand(newServeCommand(), newPlayCommand(), newSolveCommand())

	return rootCmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve games over WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			conf := initConfig(configPath)
			logger := initLogger(conf, os.Stdout)

			if err := app.RunApp(logger, conf); err != nil {
				return fmt.Errorf("app run failed: %w", err)
			}

			return nil
		},
	}
}

func newPlayCommand() *cobra.Command {
	var (
		mode     string
		language string
		logFile  string
	)

	playCmd := &cobra.Command{
		Use:   "play",
		Short: "Play in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf := initConfig(configPath)

			if mode == "" {
				mode = conf.Game.DefaultMode
			}
			gameMode, err := entity.ParseGameMode(mode)
			if err != nil {
				return err
			}

			if language == "" {
				language = conf.Language
			}
			lang, err := presenter.ParseLanguage(language)
			if err != nil {
				return err
			}

			// the terminal belongs to the UI, so logs go to a file or nowhere
			var out io.Writer = io.Discard
			if logFile != "" {
				f, err := tea.LogToFile(logFile, "")
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				defer f.Close()
				out = f
			}
			logger := initLogger(conf, out)

			controller, err := tictactoe.NewGameController(logger, service.NewBotService(logger, entity.ComputerPlayer), tictactoe.Options{
				Mode:          gameMode,
				ThinkingDelay: conf.Game.ThinkingDelay,
			})
			if err != nil {
				return err
			}
			defer controller.Close()

			return tui.Run(cmd.Context(), controller, lang)
		},
	}

	playCmd.Flags().StringVar(&mode, "mode", "", "game mode: computer or two-human (default from config)")
	playCmd.Flags().StringVar(&language, "lang", "", "status language: nb or en (default from config)")
	playCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")

	return playCmd
}

func newSolveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "solve <board>",
		Short: "Print the minimax score of every empty cell with orange to move",
		Long: `Board notation is nine cells, row by row, optionally separated by '/':
R or X for red, O for orange and '.' for an empty cell, e.g. "RR./.O./...".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			board, err := entity.ParseBoard(args[0])
			if err != nil {
				return err
			}

			return solve(cmd.OutOrStdout(), board)
		},
	}
}

func solve(out io.Writer, board entity.Board) error {
	if status := board.Outcome(); status.IsFinished() {
		_, err := fmt.Fprintf(out, "board: %s\ngame is finished: %s %s\n", board, status.Kind, status.Winner)
		return err
	}

	bot := service.NewBotService(slog.New(slog.NewJSONHandler(io.Discard, nil)), entity.ComputerPlayer)

	scores, err := bot.Scores(board)
	if err != nil {
		return err
	}

	best, err := bot.BestMove(board)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "board: %s\n", board)
	for row := 0; row < 3; row++ {
		cells := make([]string, 0, 3)
		for col := 0; col < 3; col++ {
			cell := row*3 + col
			switch board[cell] {
			case entity.PlayerFirst:
				cells = append(cells, "  R")
			case entity.PlayerSecond:
				cells = append(cells, "  O")
			default:
				cells = append(cells, fmt.Sprintf("%3d", scores[cell]))
			}
		}
		b.WriteString(strings.Join(cells, " |"))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "best move: %d (score %d)\n", best, scores[best])

	_, err = io.WriteString(out, b.String())

	return err
}

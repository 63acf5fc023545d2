package service

import (
	"log/slog"
	"math"
	"time"

	"github.com/rocketscienceinc/tripptrapp/internal/apperror"
	"github.com/rocketscienceinc/tripptrapp/internal/entity"
	"github.com/rocketscienceinc/tripptrapp/internal/metrics"
)

type BotService interface {
	// BestMove returns the cell the computer plays. Ties go to the lowest index.
	BestMove(board entity.Board) (int, error)
	// Scores returns the minimax score of every empty cell.
	Scores(board entity.Board) (map[int]int, error)
}

type botService struct {
	logger *slog.Logger
	mark   entity.Player
}

func NewBotService(logger *slog.Logger, mark entity.Player) BotService {
	return &botService{
		logger: logger.With("component", "bot"),
		mark:   mark,
	}
}

func (that *botService) BestMove(board entity.Board) (int, error) {
	start := time.Now()
	s := &searcher{board: board, computer: that.mark}

	bestCell, bestScore := -1, math.MinInt
	that.scoreCells(s, func(cell, score int) {
		if score > bestScore {
			bestCell, bestScore = cell, score
		}
	})

	if bestCell < 0 {
		return 0, apperror.ErrNoAvailableMoves
	}

	metrics.SearchNodes.Observe(float64(s.nodes))
	metrics.SearchDuration.Observe(time.Since(start).Seconds())

	that.logger.Debug("move selected", "board", board.String(), "cell", bestCell, "score", bestScore, "nodes", s.nodes)

	return bestCell, nil
}

func (that *botService) Scores(board entity.Board) (map[int]int, error) {
	s := &searcher{board: board, computer: that.mark}

	scores := make(map[int]int, entity.BoardSize)
	that.scoreCells(s, func(cell, score int) {
		scores[cell] = score
	})

	if len(scores) == 0 {
		return nil, apperror.ErrNoAvailableMoves
	}

	return scores, nil
}

// scoreCells tries the computer's mark on each empty cell in ascending order.
// The opponent moves next, so each candidate is scored as a minimizing node.
func (that *botService) scoreCells(s *searcher, visit func(cell, score int)) {
	for cell := range s.board {
		if s.board[cell] != entity.EmptyCell {
			continue
		}

		s.board[cell] = that.mark
		score := s.evaluate(0, false)
		s.board[cell] = entity.EmptyCell

		visit(cell, score)
	}
}

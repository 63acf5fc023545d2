package service

import "github.com/rocketscienceinc/tripptrapp/internal/entity"

const winScore = 10

// searcher runs minimax on its own copy of the board. Every mark placed during
// the search is removed before the next sibling is tried.
type searcher struct {
	board    entity.Board
	computer entity.Player
	nodes    int
}

// Evaluate scores board from the computer's point of view: 10-depth for a
// computer win, depth-10 for a human win and 0 for a draw.
func Evaluate(board entity.Board, depth int, maximizing bool, computer entity.Player) int {
	s := &searcher{board: board, computer: computer}

	return s.evaluate(depth, maximizing)
}

func (that *searcher) evaluate(depth int, maximizing bool) int {
	that.nodes++

	if winner, ok := that.board.Winner(); ok {
		if winner == that.computer {
			return winScore - depth
		}
		return depth - winScore
	}

	if that.board.IsDraw() {
		return 0
	}

	mover := that.computer.Other()
	best := winScore + 1
	if maximizing {
		mover = that.computer
		best = -winScore - 1
	}

	for cell := range that.board {
		if that.board[cell] != entity.EmptyCell {
			continue
		}

		that.board[cell] = mover
		score := that.evaluate(depth+1, !maximizing)
		that.board[cell] = entity.EmptyCell

		if maximizing {
			best = max(best, score)
		} else {
			best = min(best, score)
		}
	}

	return best
}

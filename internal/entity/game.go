package entity

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tripptrapp/internal/apperror"
)

const BoardSize = 9

type StatusKind string

const (
	StatusInProgress StatusKind = "in_progress"
	StatusWon        StatusKind = "won"
	StatusDraw       StatusKind = "draw"
)

type GameMode string

const (
	ModeTwoHuman        GameMode = "two-human"
	ModeHumanVsComputer GameMode = "computer"
)

var (
	ErrInvalidCell     = errors.New("invalid cell index")
	ErrUnknownGameMode = errors.New("unknown game mode")

	// WinCombos are scanned in this order: rows, columns, diagonals.
	WinCombos = [8][3]int{
		{0, 1, 2},
		{3, 4, 5},
		{6, 7, 8},
		{0, 3, 6},
		{1, 4, 7},
		{2, 5, 8},
		{0, 4, 8},
		{2, 4, 6},
	}
)

// Board is the 3x3 grid stored row-major: row = index / 3, column = index % 3.
type Board [BoardSize]Player

// Status is derived from a Board with Outcome and never set on its own.
type Status struct {
	Kind   StatusKind `json:"kind"`
	Winner Player     `json:"winner,omitempty"`
}

// TurnOwner is either the player whose move it is or the computer thinking.
// Both fields are empty once the game is finished.
type TurnOwner struct {
	Player   Player `json:"player,omitempty"`
	Thinking bool   `json:"thinking"`
}

// Snapshot is the read-only view handed to the presentation layer.
type Snapshot struct {
	Board      Board     `json:"board"`
	Status     Status    `json:"status"`
	Turn       TurnOwner `json:"turn"`
	Mode       GameMode  `json:"mode"`
	Generation uint64    `json:"generation"`
	Version    uint64    `json:"version"`
}

func ParseGameMode(value string) (GameMode, error) {
	switch mode := GameMode(value); mode {
	case ModeTwoHuman, ModeHumanVsComputer:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGameMode, value)
	}
}

func (that Status) IsFinished() bool {
	return that.Kind == StatusWon || that.Kind == StatusDraw
}

func (that *Board) Place(cell int, player Player) error {
	if cell < 0 || cell >= BoardSize {
		return fmt.Errorf("%w: cell %d", ErrInvalidCell, cell)
	}

	if that[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	that[cell] = player

	return nil
}

func (that Board) EmptyCells() []int {
	cells := make([]int, 0, BoardSize)
	for i, cell := range that {
		if cell == EmptyCell {
			cells = append(cells, i)
		}
	}

	return cells
}

// Winner returns the player holding the first complete line in WinCombos order.
func (that Board) Winner() (Player, bool) {
	for _, combo := range WinCombos {
		a, b, c := that[combo[0]], that[combo[1]], that[combo[2]]
		if a != EmptyCell && a == b && b == c {
			return a, true
		}
	}

	return EmptyCell, false
}

// IsDraw reports a full board. It does not look for a winner, call Winner first.
func (that Board) IsDraw() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return false
		}
	}

	return true
}

func (that Board) Outcome() Status {
	if winner, ok := that.Winner(); ok {
		return Status{Kind: StatusWon, Winner: winner}
	}

	if that.IsDraw() {
		return Status{Kind: StatusDraw}
	}

	return Status{Kind: StatusInProgress}
}

// String renders the board as three rows using R, O and '.' for empty cells.
func (that Board) String() string {
	buf := make([]byte, 0, BoardSize+2)
	for i, cell := range that {
		if i > 0 && i%3 == 0 {
			buf = append(buf, '/')
		}

		switch cell {
		case PlayerFirst:
			buf = append(buf, 'R')
		case PlayerSecond:
			buf = append(buf, 'O')
		default:
			buf = append(buf, '.')
		}
	}

	return string(buf)
}

// ParseBoard reads the notation produced by Board.String. Row separators are optional.
func ParseBoard(notation string) (Board, error) {
	var board Board

	cell := 0
	for _, r := range notation {
		if r == '/' {
			continue
		}

		if cell >= BoardSize {
			return Board{}, fmt.Errorf("%w: board %q has more than %d cells", ErrInvalidCell, notation, BoardSize)
		}

		switch r {
		case 'R', 'r', 'X', 'x':
			board[cell] = PlayerFirst
		case 'O', 'o':
			board[cell] = PlayerSecond
		case '.', '-', '_':
			board[cell] = EmptyCell
		default:
			return Board{}, fmt.Errorf("%w: unexpected %q in board %q", ErrInvalidCell, r, notation)
		}
		cell++
	}

	if cell != BoardSize {
		return Board{}, fmt.Errorf("%w: board %q has %d cells", ErrInvalidCell, notation, cell)
	}

	return board, nil
}

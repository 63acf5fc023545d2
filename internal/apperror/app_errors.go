package apperror

import "errors"

var (
	ErrGameFinished     = errors.New("game is already finished")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrComputerThinking = errors.New("computer is thinking")
	ErrNoAvailableMoves = errors.New("no available moves")
	ErrSessionNotFound  = errors.New("session not found")
	ErrGameClosed       = errors.New("game is closed")
)

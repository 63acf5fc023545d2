package entity

// Player is the owner of a mark on the board. The zero value is an empty cell.
type Player string

const (
	PlayerFirst  Player = "red"
	PlayerSecond Player = "orange"

	EmptyCell Player = ""

	// ComputerPlayer is the mark the computer plays in HumanVsComputer mode.
	ComputerPlayer = PlayerSecond
)

func (that Player) Other() Player {
	switch that {
	case PlayerFirst:
		return PlayerSecond
	case PlayerSecond:
		return PlayerFirst
	default:
		return EmptyCell
	}
}

func (that Player) IsValid() bool {
	return that == PlayerFirst || that == PlayerSecond
}

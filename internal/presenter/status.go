// Package presenter turns game snapshots into the text shown to players.
package presenter

import (
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tripptrapp/internal/entity"
)

type Language string

const (
	Norwegian Language = "nb"
	English   Language = "en"
)

var ErrUnknownLanguage = errors.New("unknown language")

type phrases struct {
	red      string
	orange   string
	turn     string
	won      string
	draw     string
	thinking string
}

var catalog = map[Language]phrases{
	Norwegian: {
		red:      "Rød",
		orange:   "Orange",
		turn:     "%s spiller sin tur",
		won:      "%s spiller vant!",
		draw:     "Det ble uavgjort!",
		thinking: "Datamaskinen tenker...",
	},
	English: {
		red:      "Red",
		orange:   "Orange",
		turn:     "%s player's turn",
		won:      "%s player won!",
		draw:     "It's a draw!",
		thinking: "Computer is thinking...",
	},
}

func ParseLanguage(value string) (Language, error) {
	lang := Language(value)
	if _, ok := catalog[lang]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, value)
	}

	return lang, nil
}

// PlayerName returns the color name of player, or "" for an empty cell.
func PlayerName(lang Language, player entity.Player) string {
	p := lookup(lang)

	switch player {
	case entity.PlayerFirst:
		return p.red
	case entity.PlayerSecond:
		return p.orange
	default:
		return ""
	}
}

// StatusText is the single status line under the board.
func StatusText(lang Language, snapshot entity.Snapshot) string {
	p := lookup(lang)

	switch {
	case snapshot.Status.Kind == entity.StatusWon:
		return fmt.Sprintf(p.won, PlayerName(lang, snapshot.Status.Winner))
	case snapshot.Status.Kind == entity.StatusDraw:
		return p.draw
	case snapshot.Turn.Thinking:
		return p.thinking
	default:
		return fmt.Sprintf(p.turn, PlayerName(lang, snapshot.Turn.Player))
	}
}

func lookup(lang Language) phrases {
	if p, ok := catalog[lang]; ok {
		return p
	}

	return catalog[Norwegian]
}

package ui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"

	"btlshyp/game"
)

var errBadCell = errors.New("cells look like B3")

// cellName formats c as a column letter and a 1-based row, e.g. B3.
func cellName(c game.Coordinate) string {
	return fmt.Sprintf("%c%d", 'A'+rune(c.X), c.Y+1)
}

// parseCell is the inverse of cellName. Case does not matter.
func parseCell(s string) (game.Coordinate, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 {
		return game.Coordinate{}, fmt.Errorf("%w: %q", errBadCell, s)
	}
	col := int(s[0]) - 'A'
	row, err := strconv.Atoi(s[1:])
	if err != nil || col < 0 || col >= game.Width || row < 1 || row > game.Height {
		return game.Coordinate{}, fmt.Errorf("%w: %q", errBadCell, s)
	}
	return game.Coordinate{X: col, Y: row - 1}, nil
}

type mark int

const (
	markWater mark = iota
	markShip
	markPending
	markHit
	markMiss
)

func (m mark) glyph() (string, tcell.Color) {
	switch m {
	case markShip:
		return "■", ColorShip
	case markPending:
		return "□", ColorPending
	case markHit:
		return "✗", ColorHit
	case markMiss:
		return "•", ColorMiss
	default:
		return "~", ColorWater
	}
}

// grid is the on-screen state of one board.
type grid [game.Width][game.Height]mark

func (g *grid) set(c game.Coordinate, m mark) {
	if c.InBounds() {
		g[c.X][c.Y] = m
	}
}

func (g *grid) at(c game.Coordinate) mark {
	if !c.InBounds() {
		return markWater
	}
	return g[c.X][c.Y]
}

// clearMark turns every m back into water.
func (g *grid) clearMark(m mark) {
	for x := range g {
		for y := range g[x] {
			if g[x][y] == m {
				g[x][y] = markWater
			}
		}
	}
}

// pendingShip collects the cells picked for the ship being placed.
type pendingShip struct {
	kind  game.ShipKind
	cells []game.Coordinate
}

// toggle adds c, or removes it if already picked. It reports whether the
// ship now has as many cells as its kind needs.
func (p *pendingShip) toggle(c game.Coordinate) bool {
	for i, have := range p.cells {
		if have == c {
			p.cells = append(p.cells[:i], p.cells[i+1:]...)
			return false
		}
	}
	p.cells = append(p.cells, c)
	return len(p.cells) >= p.kind.Size()
}

func (p *pendingShip) ship() *game.Ship {
	return game.NewShip(p.kind, p.cells...)
}

func (p *pendingShip) reset(kind game.ShipKind) {
	p.kind = kind
	p.cells = nil
}

type commandKind int

const (
	cmdChat commandKind = iota
	cmdFire
	cmdPlace
	cmdHelp
)

type command struct {
	kind  commandKind
	text  string
	cells []game.Coordinate
}

// parseCommand reads one line from the input field. Lines starting with a
// slash are commands, everything else is chat.
func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{kind: cmdChat, text: line}, nil
	}
	fields := strings.Fields(line)
	cells := make([]game.Coordinate, 0, len(fields)-1)
	for _, f := range fields[1:] {
		c, err := parseCell(f)
		if err != nil {
			return command{}, err
		}
		cells = append(cells, c)
	}

	switch strings.ToLower(fields[0]) {
	case "/fire", "/f":
		if len(cells) != 1 {
			return command{}, errors.New("usage: /fire B3")
		}
		return command{kind: cmdFire, cells: cells}, nil
	case "/place", "/p":
		if len(cells) == 0 {
			return command{}, errors.New("usage: /place A1 A2 A3")
		}
		return command{kind: cmdPlace, cells: cells}, nil
	case "/help", "/h":
		return command{kind: cmdHelp}, nil
	default:
		return command{}, fmt.Errorf("unknown command %s", fields[0])
	}
}

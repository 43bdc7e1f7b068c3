package game

import (
	"fmt"
	"strings"
)

type square struct {
	occupied bool
	damaged  bool
}

// Board поле игрока и то, что известно о поле соперника
type Board struct {
	squares [Width][Height]square
	ships   []*Ship

	opponentHits map[Coordinate]struct{}
	opponentSunk map[ShipKind]struct{}
}

// AttackResult результат входящего выстрела
type AttackResult struct {
	Hit  bool
	Sunk bool
	// Ship подбитый корабль, nil при промахе
	Ship *Ship
	Lost bool
}

func NewBoard() *Board {
	return &Board{
		opponentHits: make(map[Coordinate]struct{}),
		opponentSunk: make(map[ShipKind]struct{}),
	}
}

// CheckPlacement возвращает причину, по которой корабль нельзя поставить, или nil
func (b *Board) CheckPlacement(ship *Ship) error {
	if err := ship.Validate(); err != nil {
		return err
	}
	for _, c := range ship.Coordinates {
		if b.squares[c.X][c.Y].occupied {
			return fmt.Errorf("%w at %s", ErrOverlap, c)
		}
	}
	return nil
}

func (b *Board) IsPlacementValid(ship *Ship) bool {
	return b.CheckPlacement(ship) == nil
}

// Place ставит корабль на поле. Координаты копируются
func (b *Board) Place(ship *Ship) error {
	if err := b.CheckPlacement(ship); err != nil {
		return err
	}
	placed := NewShip(ship.Kind(), append([]Coordinate(nil), ship.Coordinates...)...)
	b.ships = append(b.ships, placed)
	for _, c := range placed.Coordinates {
		b.squares[c.X][c.Y].occupied = true
	}
	return nil
}

// Ships возвращает расставленные корабли в порядке расстановки
func (b *Board) Ships() []*Ship {
	return b.ships
}

// Attack обрабатывает выстрел соперника. Выстрел за пределы поля считается промахом
func (b *Board) Attack(c Coordinate) AttackResult {
	if !c.InBounds() {
		return AttackResult{}
	}
	sq := &b.squares[c.X][c.Y]
	sq.damaged = true
	if !sq.occupied {
		return AttackResult{}
	}

	res := AttackResult{Hit: true, Ship: b.ShipAt(c)}
	if res.Ship != nil {
		res.Sunk = b.IsSunk(res.Ship)
	}
	res.Lost = b.IsLost()
	return res
}

// ShipAt возвращает корабль, занимающий клетку c
func (b *Board) ShipAt(c Coordinate) *Ship {
	for _, s := range b.ships {
		if s.Contains(c) {
			return s
		}
	}
	return nil
}

func (b *Board) IsSunk(ship *Ship) bool {
	for _, c := range ship.Coordinates {
		if !c.InBounds() || !b.squares[c.X][c.Y].damaged {
			return false
		}
	}
	return true
}

// IsLost проверяет, потоплены ли все корабли. Пустое поле не проигрывает
func (b *Board) IsLost() bool {
	if len(b.ships) == 0 {
		return false
	}
	for _, s := range b.ships {
		if !b.IsSunk(s) {
			return false
		}
	}
	return true
}

func (b *Board) Occupied(c Coordinate) bool {
	return c.InBounds() && b.squares[c.X][c.Y].occupied
}

func (b *Board) Damaged(c Coordinate) bool {
	return c.InBounds() && b.squares[c.X][c.Y].damaged
}

// RecordOpponentResult сохраняет результат нашего выстрела (только попадания)
func (b *Board) RecordOpponentResult(hit bool, c Coordinate) {
	if hit {
		b.opponentHits[c] = struct{}{}
	}
}

// RecordSunkOpponent запоминает потопленный корабль соперника
func (b *Board) RecordSunkOpponent(kind ShipKind) {
	b.opponentSunk[kind] = struct{}{}
}

// OpponentHitCount число клеток соперника, в которые мы попали
func (b *Board) OpponentHitCount() int {
	return len(b.opponentHits)
}

func (b *Board) SunkOpponentShips() int {
	return len(b.opponentSunk)
}

// IsWon проверяет, что попадания покрывают весь флот соперника
func (b *Board) IsWon() bool {
	return b.OpponentHitCount() == TotalShipCells()
}

// String рисует поле: S корабль, ! попадание, o промах, ~ вода
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteString("  ")
	for x := 0; x < Width; x++ {
		fmt.Fprintf(&sb, " %d", x)
	}
	sb.WriteString("\n")
	for y := 0; y < Height; y++ {
		fmt.Fprintf(&sb, "%d ", y)
		for x := 0; x < Width; x++ {
			sq := b.squares[x][y]
			switch {
			case sq.occupied && sq.damaged:
				sb.WriteString(" !")
			case sq.occupied:
				sb.WriteString(" S")
			case sq.damaged:
				sb.WriteString(" o")
			default:
				sb.WriteString(" ~")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

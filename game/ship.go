package game

import (
	"errors"
	"fmt"
	"sort"
)

// Размеры поля
const (
	Width  = 5
	Height = 5
)

var (
	ErrUnknownKind   = errors.New("unknown ship kind")
	ErrWrongSize     = errors.New("ship has the wrong number of coordinates")
	ErrOutOfBounds   = errors.New("ship coordinate is off the board")
	ErrNotStraight   = errors.New("ship must be vertical or horizontal")
	ErrNotContiguous = errors.New("ship coordinates must be contiguous")
	ErrOverlap       = errors.New("ship overlaps another ship")
)

// Coordinate клетка поля
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

// InBounds проверяет, что клетка внутри поля
func (c Coordinate) InBounds() bool {
	return c.X >= 0 && c.X < Width && c.Y >= 0 && c.Y < Height
}

type ShipKind int

const (
	Battleship ShipKind = iota + 1
	Destroyer
	Submarine
	PatrolBoat
)

// PlacementOrder порядок расстановки кораблей
var PlacementOrder = []ShipKind{Battleship, Destroyer, PatrolBoat, Submarine}

// Size возвращает длину корабля, 0 для неизвестного типа
func (k ShipKind) Size() int {
	switch k {
	case Battleship:
		return 4
	case Destroyer, Submarine:
		return 3
	case PatrolBoat:
		return 2
	default:
		return 0
	}
}

func (k ShipKind) String() string {
	switch k {
	case Battleship:
		return "BATTLESHIP"
	case Destroyer:
		return "DESTROYER"
	case Submarine:
		return "SUBMARINE"
	case PatrolBoat:
		return "PATROLBOAT"
	default:
		return fmt.Sprintf("N/A(%d)", int(k))
	}
}

// TotalShipCells число клеток всего флота
func TotalShipCells() int {
	total := 0
	for _, k := range PlacementOrder {
		total += k.Size()
	}
	return total
}

// Ship тип корабля и занятые им клетки. Координаты заполняет игрок
type Ship struct {
	kind        ShipKind
	Coordinates []Coordinate
}

func NewShip(kind ShipKind, coords ...Coordinate) *Ship {
	return &Ship{kind: kind, Coordinates: coords}
}

func (s *Ship) Kind() ShipKind {
	return s.kind
}

func (s *Ship) Size() int {
	return s.kind.Size()
}

// Contains проверяет, занимает ли корабль клетку c
func (s *Ship) Contains(c Coordinate) bool {
	for _, sc := range s.Coordinates {
		if sc == c {
			return true
		}
	}
	return false
}

func (s *Ship) String() string {
	return fmt.Sprintf("%s%v", s.kind, s.Coordinates)
}

// Validate проверяет форму корабля: длину, границы и непрерывную прямую линию
func (s *Ship) Validate() error {
	size := s.kind.Size()
	if size == 0 {
		return ErrUnknownKind
	}
	if len(s.Coordinates) != size {
		return fmt.Errorf("%w: %s needs %d, got %d", ErrWrongSize, s.kind, size, len(s.Coordinates))
	}
	for _, c := range s.Coordinates {
		if !c.InBounds() {
			return fmt.Errorf("%w: %s", ErrOutOfBounds, c)
		}
	}

	xs := make(map[int]struct{}, size)
	ys := make(map[int]struct{}, size)
	for _, c := range s.Coordinates {
		xs[c.X] = struct{}{}
		ys[c.Y] = struct{}{}
	}

	var line []int
	switch {
	case len(xs) == 1 && len(ys) == size:
		for _, c := range s.Coordinates {
			line = append(line, c.Y)
		}
	case len(ys) == 1 && len(xs) == size:
		for _, c := range s.Coordinates {
			line = append(line, c.X)
		}
	case len(xs) == 1 || len(ys) == 1:
		// повторяющиеся клетки
		return fmt.Errorf("%w: duplicate cells", ErrNotContiguous)
	default:
		return ErrNotStraight
	}

	sort.Ints(line)
	for i := 1; i < len(line); i++ {
		if line[i] != line[i-1]+1 {
			return ErrNotContiguous
		}
	}
	return nil
}

// IsValid то же, что Validate, но возвращает bool
func (s *Ship) IsValid() bool {
	return s.Validate() == nil
}

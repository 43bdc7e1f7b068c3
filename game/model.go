package game

// Model состояние одной партии со стороны локального игрока.
// Для каждой новой партии создается новая модель
type Model struct {
	Username         string
	OpponentUsername string
	Board            *Board
}

func NewModel(username string) *Model {
	return &Model{
		Username: username,
		Board:    NewBoard(),
	}
}

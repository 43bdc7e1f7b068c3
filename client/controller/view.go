package controller

import (
	"context"

	"btlshyp/game"
	"btlshyp/protocol"
)

// View is everything the controller needs from the presentation layer.
// Methods are called from the controller goroutine; implementations hand
// user input back through Controller.SubmitShip, SubmitAttack and SubmitChat.
type View interface {
	// PromptUsername blocks until the user enters a name or ctx is done.
	PromptUsername(ctx context.Context) (string, error)
	// RequestShip asks the user to lay out a ship of the given kind.
	RequestShip(kind game.ShipKind)
	// RequestAttack tells the user it is their turn to fire.
	RequestAttack()
	DisplayAttack(result *protocol.AttackResponseMessage)
	DisplayOpponentAttack(result *protocol.AttackResponseMessage)
	DisplayChat(user, text string)
	DisplayNotification(text string)
	NotYourTurn()
	DisplayShip(ship *game.Ship)
	Reset()
}

// Network is the connection the controller drives.
type Network interface {
	Login(username string) (bool, error)
	Listen(h protocol.Handler) error
	Send(msg protocol.Message) error
	Done() <-chan struct{}
	Err() error
	Close() error
}

// Dialer opens a Network. It is called once per Run.
type Dialer func(ctx context.Context) (Network, error)

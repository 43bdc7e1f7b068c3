package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"btlshyp/game"
	"btlshyp/protocol"
)

var (
	ErrConnectionLost = errors.New("connection to server lost")
	ErrStopped        = errors.New("controller stopped")
)

const eventBuffer = 64

type messageEvent struct{ msg protocol.Message }

type shipEvent struct{ ship *game.Ship }

type attackEvent struct{ coord game.Coordinate }

type chatEvent struct{ text string }

type lostEvent struct{ err error }

// Controller runs one client session: connect, log in, then play games
// until the server refuses a join, the connection drops or the context ends.
// Game state is owned by the goroutine inside Run; everything else talks to
// it through the event queue.
type Controller struct {
	view View
	dial Dialer
	net  Network

	state State
	model *game.Model

	events   chan any
	quit     chan struct{}
	quitOnce sync.Once

	// err is returned from Run once DONE is reached.
	err error
}

func New(view View, dial Dialer) *Controller {
	return &Controller{
		view:   view,
		dial:   dial,
		state:  StateNew,
		model:  game.NewModel(""),
		events: make(chan any, eventBuffer),
		quit:   make(chan struct{}),
	}
}

// State returns the current state. Only safe from the Run goroutine or
// after Run has returned.
func (c *Controller) State() State { return c.state }

// Model returns the live game model, with the same caveat as State.
func (c *Controller) Model() *game.Model { return c.model }

// setState is the only writer of state.
func (c *Controller) setState(next State) {
	if c.state == StateStarted && next == StateJoined {
		log.WithField("state", c.state).Debug("Ignoring late join acceptance")
		return
	}
	if c.state != next {
		log.WithFields(log.Fields{"from": c.state, "to": next}).Info("Game state changed")
	}
	c.state = next
}

// Run drives the state machine until DONE. A cancelled ctx ends the run
// with a nil error.
func (c *Controller) Run(ctx context.Context) error {
	defer c.stop()

	for c.state != StateDone {
		if err := c.step(ctx); err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				log.Info("Controller cancelled")
				return nil
			}
			return err
		}
	}
	c.resetGame()
	return c.err
}

func (c *Controller) stop() {
	c.quitOnce.Do(func() { close(c.quit) })
	if c.net != nil {
		c.net.Close()
	}
}

func (c *Controller) step(ctx context.Context) error {
	switch c.state {
	case StateNew:
		return c.connect(ctx)
	case StateConnected:
		return c.login(ctx)
	case StateLoggedIn:
		return c.joinGame()
	case StateJoined:
		c.view.DisplayNotification("Game joined. Waiting for game to start.")
		c.setState(StateWaiting)
	case StateStarted:
		c.view.DisplayNotification("Game has started.")
		return c.placeShips(ctx)
	case StateTurnMe:
		return c.performAttack(ctx)
	case StateTurnThem:
		c.view.NotYourTurn()
		c.setState(StateWaiting)
	case StateWin:
		c.view.DisplayNotification("You won! Victory tastes so sweet!")
		c.resetGame()
		c.setState(StateLoggedIn)
	case StateLose:
		c.view.DisplayNotification("You lost... Better luck next time.")
		c.resetGame()
		c.setState(StateLoggedIn)
	case StateWaiting:
		ev, err := c.next(ctx)
		if err != nil {
			return err
		}
		return c.apply(ev)
	}
	return nil
}

func (c *Controller) connect(ctx context.Context) error {
	n, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.net = n
	c.setState(StateConnected)
	return nil
}

// login re-prompts until the server accepts a name, then starts the reader.
func (c *Controller) login(ctx context.Context) error {
	for {
		name, err := c.view.PromptUsername(ctx)
		if err != nil {
			return err
		}
		ok, err := c.net.Login(name)
		if err != nil {
			return err
		}
		if ok {
			c.model.Username = name
			break
		}
		c.view.DisplayNotification("Unable to log in to server. Username already in use.")
	}

	c.setState(StateLoggedIn)
	if err := c.net.Listen(c); err != nil {
		return err
	}
	go c.watch(c.net)
	return nil
}

// watch queues a loss event after the reader has delivered its last message.
func (c *Controller) watch(n Network) {
	<-n.Done()
	c.enqueue(lostEvent{err: n.Err()})
}

func (c *Controller) joinGame() error {
	log.WithField("username", c.model.Username).Info("Joining a new game")
	if err := c.net.Send(protocol.NewJoinAttemptMessage(c.model.Username)); err != nil {
		return err
	}
	c.setState(StateWaiting)
	return nil
}

func (c *Controller) resetGame() {
	log.Info("Resetting the game")
	c.view.Reset()
	c.model = game.NewModel(c.model.Username)
}

func (c *Controller) placeShips(ctx context.Context) error {
	for _, kind := range game.PlacementOrder {
		placed, err := c.placeShip(ctx, kind)
		if err != nil || !placed {
			return err
		}
	}

	log.Info("All ships placed")
	c.view.DisplayNotification("All ships have been placed. Waiting for the other player to place theirs.")
	if err := c.net.Send(protocol.NewShipsPlacedMessage(c.model.Username)); err != nil {
		return err
	}
	c.setState(StateWaiting)
	return nil
}

// placeShip asks for one ship until a valid one arrives. Other events are
// applied meanwhile; placed is false when one of them moved the game on.
func (c *Controller) placeShip(ctx context.Context, kind game.ShipKind) (placed bool, err error) {
	c.view.RequestShip(kind)
	for {
		ev, err := c.next(ctx)
		if err != nil {
			return false, err
		}
		se, ok := ev.(shipEvent)
		if !ok {
			if err := c.apply(ev); err != nil {
				return false, err
			}
			if c.state != StateStarted {
				return false, nil
			}
			continue
		}
		if se.ship == nil || se.ship.Kind() != kind {
			log.WithField("want", kind).Debug("Dropping ship of another kind")
			continue
		}
		if err := c.model.Board.Place(se.ship); err != nil {
			log.WithError(err).WithField("ship", se.ship).Warn("Invalid ship placement")
			c.view.DisplayNotification(fmt.Sprintf(
				"Invalid ship placement: %v.\nShips must be vertical or horizontal.\nShips must occupy their own space.", err))
			c.view.RequestShip(kind)
			continue
		}
		log.WithField("ship", se.ship).Info("Ship placed")
		c.view.DisplayShip(se.ship)
		return true, nil
	}
}

func (c *Controller) performAttack(ctx context.Context) error {
	c.view.RequestAttack()
	for {
		ev, err := c.next(ctx)
		if err != nil {
			return err
		}
		ae, ok := ev.(attackEvent)
		if !ok {
			if err := c.apply(ev); err != nil {
				return err
			}
			if c.state != StateTurnMe {
				return nil
			}
			continue
		}
		log.WithField("coordinate", ae.coord).Info("Attacking")
		if err := c.net.Send(protocol.NewAttackAttemptMessage(c.model.Username, ae.coord)); err != nil {
			return err
		}
		c.setState(StateWaiting)
		return nil
	}
}

func (c *Controller) next(ctx context.Context) (any, error) {
	select {
	case ev := <-c.events:
		return ev, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// apply handles an event that arrived outside of a prompt.
func (c *Controller) apply(ev any) error {
	switch e := ev.(type) {
	case messageEvent:
		return c.handle(e.msg)
	case chatEvent:
		return c.net.Send(protocol.NewChatMessage(c.model.Username, e.text))
	case lostEvent:
		log.WithError(e.err).Warn("Connection lost")
		c.view.DisplayNotification("Connection to server lost.")
		c.err = fmt.Errorf("%w: %v", ErrConnectionLost, e.err)
		c.setState(StateDone)
	case shipEvent, attackEvent:
		log.WithField("state", c.state).Debug("Dropping input nobody asked for")
	}
	return nil
}

func (c *Controller) enqueue(ev any) bool {
	select {
	case <-c.quit:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	case <-c.quit:
		return false
	}
}

// HandleMessage queues an inbound message. It is called on the reader goroutine.
func (c *Controller) HandleMessage(msg protocol.Message) {
	c.enqueue(messageEvent{msg: msg})
}

// SubmitShip hands a laid-out ship to the controller.
func (c *Controller) SubmitShip(ship *game.Ship) error {
	if !c.enqueue(shipEvent{ship: ship}) {
		return ErrStopped
	}
	return nil
}

// SubmitAttack hands the chosen target to the controller.
func (c *Controller) SubmitAttack(coord game.Coordinate) error {
	if !c.enqueue(attackEvent{coord: coord}) {
		return ErrStopped
	}
	return nil
}

// SubmitChat queues a chat line for sending.
func (c *Controller) SubmitChat(text string) error {
	if !c.enqueue(chatEvent{text: text}) {
		return ErrStopped
	}
	return nil
}

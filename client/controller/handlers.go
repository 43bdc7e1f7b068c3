package controller

import (
	log "github.com/sirupsen/logrus"

	"btlshyp/protocol"
)

func (c *Controller) handle(msg protocol.Message) error {
	logger := log.WithFields(log.Fields{"type": msg.MessageType(), "from": msg.Sender()})
	logger.Debug("Message received")

	switch m := msg.(type) {
	case *protocol.ChatMessage:
		c.view.DisplayChat(m.Username, m.Text)
	case *protocol.GameStartMessage:
		c.model.OpponentUsername = m.OpponentUsername
		c.setState(StateStarted)
	case *protocol.JoinResponseMessage:
		c.handleJoinResponse(m)
	case *protocol.AttackAttemptMessage:
		return c.handleAttackAttempt(m)
	case *protocol.AttackResponseMessage:
		return c.handleAttackResponse(m)
	case *protocol.TurnStartMessage:
		c.setState(StateTurnMe)
	case *protocol.GameWonAttemptMessage:
		return c.handleGameWonAttempt(m)
	case *protocol.GameWonResponseMessage:
		switch m.GameResult {
		case protocol.Win:
			c.setState(StateWin)
		case protocol.Lose:
			c.setState(StateLose)
		default:
			logger.WithField("result", m.GameResult).Warn("Unknown game result")
		}
	default:
		// join attempts, logins and ship-placed notices are for the server
		logger.Debug("No action for message")
	}
	return nil
}

func (c *Controller) handleJoinResponse(m *protocol.JoinResponseMessage) {
	if m.ConfirmJoin == protocol.Accept {
		c.setState(StateJoined)
		return
	}
	log.WithField("confirmJoin", m.ConfirmJoin).Error("Unable to join game")
	c.view.DisplayNotification("Unable to join a game.")
	c.setState(StateDone)
}

// handleAttackAttempt resolves the opponent's shot against our board.
func (c *Controller) handleAttackAttempt(m *protocol.AttackAttemptMessage) error {
	result := c.model.Board.Attack(m.Coordinate)

	hitOrMiss := protocol.Miss
	if result.Hit {
		hitOrMiss = protocol.Hit
	}
	sunk := protocol.SunkNone
	if result.Sunk && result.Ship != nil {
		sunk = protocol.ShipSunkFor(result.Ship.Kind())
	}
	resp := protocol.NewAttackResponseMessage(c.model.Username, hitOrMiss, sunk, m.Coordinate)
	log.WithFields(log.Fields{"result": resp, "fleetLost": result.Lost}).Info("Opponent attacked")

	c.view.DisplayOpponentAttack(resp)
	if err := c.net.Send(resp); err != nil {
		return err
	}
	c.setState(StateWaiting)
	return nil
}

// handleAttackResponse records the outcome of our own shot and either claims
// the win or passes the turn.
func (c *Controller) handleAttackResponse(m *protocol.AttackResponseMessage) error {
	board := c.model.Board
	board.RecordOpponentResult(m.HitOrMiss == protocol.Hit, m.Coordinate)
	if kind, ok := m.ShipSunk.Kind(); ok {
		log.WithField("ship", kind).Info("Opponent ship sunk")
		board.RecordSunkOpponent(kind)
	}
	c.view.DisplayAttack(m)
	log.WithFields(log.Fields{
		"hits": board.OpponentHitCount(),
		"sunk": board.SunkOpponentShips(),
	}).Debug("Attack recorded")

	if board.IsWon() {
		log.Info("All opponent ships hit, claiming the win")
		if err := c.net.Send(protocol.NewGameWonAttemptMessage(c.model.Username)); err != nil {
			return err
		}
		c.view.DisplayNotification("Please wait while we validate your win...")
		c.setState(StateWaiting)
		return nil
	}

	c.setState(StateTurnThem)
	return c.net.Send(protocol.NewTurnStartMessage(c.model.Username, protocol.TurnEnd))
}

// handleGameWonAttempt concedes when our fleet really is gone. The reply
// carries the claimant's result.
func (c *Controller) handleGameWonAttempt(m *protocol.GameWonAttemptMessage) error {
	if !c.model.Board.IsLost() {
		log.WithField("from", m.Username).Warn("Win claimed but ships remain afloat")
		c.view.DisplayNotification(m.Username + " claimed victory, but you still have ships afloat.")
		return nil
	}
	log.Info("Other player won")
	if err := c.net.Send(protocol.NewGameWonResponseMessage(c.model.Username, protocol.Win)); err != nil {
		return err
	}
	c.view.DisplayNotification("Other player won. We've lost...")
	c.setState(StateLose)
	return nil
}

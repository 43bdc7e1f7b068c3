package server

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"btlshyp/models"
	"btlshyp/protocol"
)

func (s *Server) handleLogin(session *Session, env *protocol.Envelope) {
	msg, err := protocol.DecodeApplication(env.Message)
	if err != nil || msg.MessageType() != protocol.TypeLogin || msg.Sender() == "" {
		s.sendNotice(session, protocol.EnvelopeError, "Invalid login")
		return
	}
	login := msg.Sender()

	// Повторный вход на том же соединении
	if session.Login != "" {
		if session.Login == login {
			s.sendNotice(session, protocol.EnvelopeAcknowledge, "Welcome "+login)
		} else {
			s.sendNotice(session, protocol.EnvelopeError, "Already logged in")
		}
		return
	}

	// Подтверждение пишется под session.mu, рассылки приходят только после него
	session.mu.Lock()
	if !s.addSession(login, session) {
		s.writeLocked(session, protocol.Notice(protocol.EnvelopeError, "", "Username already in use"))
		session.mu.Unlock()
		log.WithField("username", login).Info("Username already in use")
		return
	}
	// Игрок записан в базу до подтверждения, партия ссылается на него
	if err := s.db.TouchPlayer(login, time.Now()); err != nil {
		log.WithError(err).WithField("username", login).Error("Failed to record player")
	}
	s.writeLocked(session, protocol.Notice(protocol.EnvelopeAcknowledge, "", "Welcome "+login))
	session.mu.Unlock()
	log.WithFields(log.Fields{"username": login, "remote": session.Conn.RemoteAddr()}).Info("Player logged in")
}

// handleMessage обрабатывает игровое сообщение вошедшего игрока.
// line - исходная строка, пересылается сопернику без изменений
func (s *Server) handleMessage(session *Session, msg protocol.Message, line []byte) {
	switch m := msg.(type) {
	case *protocol.ChatMessage:
		chat := protocol.Notice(protocol.EnvelopeChat, session.Login, m.Text)
		for _, sess := range s.loggedIn() {
			s.send(sess, chat)
		}
	case *protocol.JoinAttemptMessage:
		s.handleJoin(session)
	case *protocol.ShipsPlacedMessage:
		s.handleShipsPlaced(session)
	case *protocol.AttackAttemptMessage, *protocol.AttackResponseMessage,
		*protocol.TurnStartMessage, *protocol.GameWonAttemptMessage:
		s.forward(session, msg, line)
	case *protocol.GameWonResponseMessage:
		s.handleGameWonResponse(session, m, line)
	default:
		s.sendNotice(session, protocol.EnvelopeError, "Unexpected message "+string(msg.MessageType()))
	}
}

// handleJoin ставит игрока в очередь. Двое в очереди образуют партию
func (s *Server) handleJoin(session *Session) {
	s.mu.Lock()
	if session.queued || session.match != nil {
		s.mu.Unlock()
		log.WithField("username", session.Login).Info("Join rejected")
		s.sendMessage(session, protocol.NewJoinResponseMessage(relayName, protocol.Reject))
		return
	}
	session.queued = true
	s.queue = append(s.queue, session)

	var m *match
	if len(s.queue) >= 2 {
		first, second := s.queue[0], s.queue[1]
		s.queue = s.queue[2:]
		m = &match{
			Match: models.Match{
				ID:        uuid.NewString(),
				PlayerOne: first.Login,
				PlayerTwo: second.Login,
				StartedAt: time.Now(),
			},
			players: [2]*Session{first, second},
		}
		for _, p := range m.players {
			p.queued = false
			p.match = m
		}
		s.matches[m.ID] = m
	}
	s.mu.Unlock()

	s.sendMessage(session, protocol.NewJoinResponseMessage(relayName, protocol.Accept))
	if m != nil {
		s.startMatch(m)
	}
}

func (s *Server) startMatch(m *match) {
	log.WithFields(log.Fields{
		"match":  m.ID,
		"first":  m.PlayerOne,
		"second": m.PlayerTwo,
	}).Info("Match started")

	if err := s.db.CreateMatch(&m.Match); err != nil {
		log.WithError(err).WithField("match", m.ID).Error("Failed to record match")
	}
	for _, p := range m.players {
		s.sendMessage(p, protocol.NewGameStartMessage(relayName, m.opponent(p).Login))
	}
}

// handleShipsPlaced после расстановки у обоих отдает ход первому игроку
func (s *Server) handleShipsPlaced(session *Session) {
	s.mu.Lock()
	m := session.match
	if m == nil {
		s.mu.Unlock()
		s.sendNotice(session, protocol.EnvelopeError, "Not in a game")
		return
	}
	m.placed[m.index(session)] = true
	ready := m.placed[0] && m.placed[1]
	first := m.players[0]
	s.mu.Unlock()

	if ready {
		log.WithField("match", m.ID).Info("All ships placed")
		s.sendMessage(first, protocol.NewTurnStartMessage(relayName, protocol.TurnStart))
	}
}

// forward пересылает сообщение сопернику
func (s *Server) forward(session *Session, msg protocol.Message, line []byte) {
	s.mu.RLock()
	m := session.match
	s.mu.RUnlock()
	if m == nil {
		log.WithFields(log.Fields{"username": session.Login, "type": msg.MessageType()}).Warn("Message outside of a game")
		s.sendNotice(session, protocol.EnvelopeError, "Not in a game")
		return
	}
	s.send(m.opponent(session), line)
}

// handleGameWonResponse: WIN закрывает партию, победитель - получатель ответа.
// Партия снимается до пересылки ответа
func (s *Server) handleGameWonResponse(session *Session, m *protocol.GameWonResponseMessage, line []byte) {
	s.mu.Lock()
	game := session.match
	if game == nil {
		s.mu.Unlock()
		log.WithFields(log.Fields{"username": session.Login, "type": m.MessageType()}).Warn("Message outside of a game")
		s.sendNotice(session, protocol.EnvelopeError, "Not in a game")
		return
	}
	winner := game.opponent(session)
	finished := m.GameResult == protocol.Win
	if finished {
		s.endMatchLocked(game)
	}
	s.mu.Unlock()

	s.send(winner, line)
	if finished {
		s.finishMatch(game, winner.Login, "win")
	}
}

// endMatchLocked освобождает игроков партии. Вызывается под s.mu
func (s *Server) endMatchLocked(m *match) {
	delete(s.matches, m.ID)
	for _, p := range m.players {
		if p.match == m {
			p.match = nil
		}
	}
}

func (s *Server) finishMatch(m *match, winner, reason string) {
	log.WithFields(log.Fields{"match": m.ID, "winner": winner, "reason": reason}).Info("Match finished")
	if err := s.db.FinishMatch(m.ID, winner, reason, time.Now()); err != nil {
		log.WithError(err).WithField("match", m.ID).Error("Failed to record match result")
	}
}

// disconnect убирает сессию отовсюду. Соперник в партии получает победу
func (s *Server) disconnect(session *Session) {
	s.mu.Lock()
	delete(s.conns, session)
	if session.Login != "" && s.sessions[session.Login] == session {
		delete(s.sessions, session.Login)
	}
	for i, q := range s.queue {
		if q == session {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			break
		}
	}
	session.queued = false

	m := session.match
	var opponent *Session
	if m != nil {
		opponent = m.opponent(session)
		s.endMatchLocked(m)
	}
	closed := s.closed
	s.mu.Unlock()

	if m == nil || closed {
		return
	}
	log.WithFields(log.Fields{"username": session.Login, "match": m.ID}).Info("Player left a running match")
	s.sendMessage(opponent, protocol.NewGameWonResponseMessage(relayName, protocol.Win))
	s.finishMatch(m, opponent.Login, "forfeit")
}

// Shutdown уведомляет всех клиентов, закрывает соединения и останавливает
// слушателей. Незавершенные партии закрываются с причиной shutdown
func (s *Server) Shutdown(reason string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	sessions := make([]*Session, 0, len(s.conns))
	for sess := range s.conns {
		sessions = append(sessions, sess)
	}
	matches := make([]*match, 0, len(s.matches))
	for _, m := range s.matches {
		matches = append(matches, m)
		s.endMatchLocked(m)
	}
	cancel := s.cancel
	s.mu.Unlock()

	log.WithFields(log.Fields{"reason": reason, "connections": len(sessions)}).Info("Shutting down")

	for _, m := range matches {
		s.finishMatch(m, "", "shutdown")
	}
	notice := protocol.Notice(protocol.EnvelopeAdministration, "", "Server shutting down: "+reason)
	for _, sess := range sessions {
		s.send(sess, notice)
		sess.Conn.Close()
	}
	if cancel != nil {
		cancel()
	}
}

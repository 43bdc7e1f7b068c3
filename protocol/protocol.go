package protocol

import (
	"fmt"

	"btlshyp/game"
)

// Module метка всех сообщений игры на общем сервере
const Module = "BtlShyp"

// EnvelopeType внешний тег кадра
type EnvelopeType string

const (
	EnvelopeApplication    EnvelopeType = "application"
	EnvelopeChat           EnvelopeType = "chat"
	EnvelopeLogin          EnvelopeType = "login"
	EnvelopeAcknowledge    EnvelopeType = "acknowledge"
	EnvelopeError          EnvelopeType = "error"
	EnvelopeAdministration EnvelopeType = "administration"
)

// MessageType тип вложенного сообщения
type MessageType string

const (
	TypeChat            MessageType = "CHAT"
	TypeJoinAttempt     MessageType = "JOIN_ATTEMPT"
	TypeJoinResponse    MessageType = "JOIN_RESPONSE"
	TypeGameStart       MessageType = "GAME_START"
	TypeShipsPlaced     MessageType = "SHIPS_PLACED"
	TypeAttackAttempt   MessageType = "ATTACK_ATTEMPT"
	TypeAttackResponse  MessageType = "ATTACK_RESPONSE"
	TypeTurn            MessageType = "TURN"
	TypeGameWonAttempt  MessageType = "GAME_WON_ATTEMPT"
	TypeGameWonResponse MessageType = "GAME_WON_RESPONSE"
	TypeLogin           MessageType = "LOGIN"
)

var MessageTypes = []MessageType{
	TypeChat, TypeJoinAttempt, TypeJoinResponse, TypeGameStart, TypeShipsPlaced,
	TypeAttackAttempt, TypeAttackResponse, TypeTurn, TypeGameWonAttempt,
	TypeGameWonResponse, TypeLogin,
}

type HitOrMiss string

const (
	Hit  HitOrMiss = "HIT"
	Miss HitOrMiss = "MISS"
)

type ShipSunk string

const (
	SunkNone       ShipSunk = "NONE"
	SunkPatrolBoat ShipSunk = "PATROL_BOAT"
	SunkSubmarine  ShipSunk = "SUBMARINE"
	SunkDestroyer  ShipSunk = "DESTROYER"
	SunkBattleship ShipSunk = "BATTLESHIP"
)

// ShipSunkFor возвращает имя типа корабля для протокола
func ShipSunkFor(kind game.ShipKind) ShipSunk {
	switch kind {
	case game.PatrolBoat:
		return SunkPatrolBoat
	case game.Submarine:
		return SunkSubmarine
	case game.Destroyer:
		return SunkDestroyer
	case game.Battleship:
		return SunkBattleship
	default:
		return SunkNone
	}
}

// Kind обратное преобразование, ok == false для NONE
func (s ShipSunk) Kind() (kind game.ShipKind, ok bool) {
	switch s {
	case SunkPatrolBoat:
		return game.PatrolBoat, true
	case SunkSubmarine:
		return game.Submarine, true
	case SunkDestroyer:
		return game.Destroyer, true
	case SunkBattleship:
		return game.Battleship, true
	default:
		return 0, false
	}
}

type ConfirmJoin string

const (
	Accept ConfirmJoin = "ACCEPT"
	Reject ConfirmJoin = "REJECT"
)

type Turn string

const (
	TurnStart Turn = "START"
	TurnEnd   Turn = "END"
)

type GameResult string

const (
	Win  GameResult = "WIN"
	Lose GameResult = "LOSE"
)

// Header общие поля всех сообщений
type Header struct {
	Module   string      `json:"module"`
	Type     MessageType `json:"type"`
	Username string      `json:"username"`
}

func (h Header) MessageType() MessageType { return h.Type }
func (h Header) Sender() string           { return h.Username }
func (h Header) ModuleName() string       { return h.Module }

// Message интерфейс всех сообщений
type Message interface {
	MessageType() MessageType
	Sender() string
	ModuleName() string
}

func newHeader(t MessageType, username string) Header {
	return Header{Module: Module, Type: t, Username: username}
}

type ChatMessage struct {
	Header
	Text string `json:"text"`
}

func NewChatMessage(username, text string) *ChatMessage {
	return &ChatMessage{Header: newHeader(TypeChat, username), Text: text}
}

type JoinAttemptMessage struct {
	Header
}

func NewJoinAttemptMessage(username string) *JoinAttemptMessage {
	return &JoinAttemptMessage{Header: newHeader(TypeJoinAttempt, username)}
}

type JoinResponseMessage struct {
	Header
	ConfirmJoin ConfirmJoin `json:"confirmJoin"`
}

func NewJoinResponseMessage(username string, confirm ConfirmJoin) *JoinResponseMessage {
	return &JoinResponseMessage{Header: newHeader(TypeJoinResponse, username), ConfirmJoin: confirm}
}

type GameStartMessage struct {
	Header
	OpponentUsername string `json:"opponentUsername"`
}

func NewGameStartMessage(username, opponent string) *GameStartMessage {
	return &GameStartMessage{Header: newHeader(TypeGameStart, username), OpponentUsername: opponent}
}

type ShipsPlacedMessage struct {
	Header
}

func NewShipsPlacedMessage(username string) *ShipsPlacedMessage {
	return &ShipsPlacedMessage{Header: newHeader(TypeShipsPlaced, username)}
}

type AttackAttemptMessage struct {
	Header
	Coordinate game.Coordinate `json:"coordinate"`
}

func NewAttackAttemptMessage(username string, c game.Coordinate) *AttackAttemptMessage {
	return &AttackAttemptMessage{Header: newHeader(TypeAttackAttempt, username), Coordinate: c}
}

type AttackResponseMessage struct {
	Header
	HitOrMiss  HitOrMiss       `json:"hitOrMiss"`
	ShipSunk   ShipSunk        `json:"shipSunk"`
	Coordinate game.Coordinate `json:"coordinate"`
}

func NewAttackResponseMessage(username string, hm HitOrMiss, sunk ShipSunk, c game.Coordinate) *AttackResponseMessage {
	return &AttackResponseMessage{
		Header:     newHeader(TypeAttackResponse, username),
		HitOrMiss:  hm,
		ShipSunk:   sunk,
		Coordinate: c,
	}
}

func (m *AttackResponseMessage) String() string {
	s := fmt.Sprintf("%s at %s", m.HitOrMiss, m.Coordinate)
	if m.ShipSunk != "" && m.ShipSunk != SunkNone {
		s += fmt.Sprintf(", %s sunk", m.ShipSunk)
	}
	return s
}

type TurnStartMessage struct {
	Header
	Turn Turn `json:"turn"`
}

func NewTurnStartMessage(username string, turn Turn) *TurnStartMessage {
	return &TurnStartMessage{Header: newHeader(TypeTurn, username), Turn: turn}
}

type GameWonAttemptMessage struct {
	Header
}

func NewGameWonAttemptMessage(username string) *GameWonAttemptMessage {
	return &GameWonAttemptMessage{Header: newHeader(TypeGameWonAttempt, username)}
}

type GameWonResponseMessage struct {
	Header
	GameResult GameResult `json:"gameResult"`
}

func NewGameWonResponseMessage(username string, result GameResult) *GameWonResponseMessage {
	return &GameWonResponseMessage{Header: newHeader(TypeGameWonResponse, username), GameResult: result}
}

type LoginMessage struct {
	Header
}

func NewLoginMessage(username string) *LoginMessage {
	return &LoginMessage{Header: newHeader(TypeLogin, username)}
}

// variants конструкторы сообщений по типу
var variants = map[MessageType]func() Message{
	TypeChat:            func() Message { return &ChatMessage{} },
	TypeJoinAttempt:     func() Message { return &JoinAttemptMessage{} },
	TypeJoinResponse:    func() Message { return &JoinResponseMessage{} },
	TypeGameStart:       func() Message { return &GameStartMessage{} },
	TypeShipsPlaced:     func() Message { return &ShipsPlacedMessage{} },
	TypeAttackAttempt:   func() Message { return &AttackAttemptMessage{} },
	TypeAttackResponse:  func() Message { return &AttackResponseMessage{} },
	TypeTurn:            func() Message { return &TurnStartMessage{} },
	TypeGameWonAttempt:  func() Message { return &GameWonAttemptMessage{} },
	TypeGameWonResponse: func() Message { return &GameWonResponseMessage{} },
	TypeLogin:           func() Message { return &LoginMessage{} },
}

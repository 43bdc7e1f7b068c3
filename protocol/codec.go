package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformed          = errors.New("malformed frame")
	ErrForeignModule      = errors.New("message belongs to another module")
	ErrUnknownMessageType = errors.New("unknown message type")
	ErrUnknownEnvelope    = errors.New("unknown envelope type")
)

// Envelope внешний кадр. Message разбирается по значению Type
type Envelope struct {
	Type     EnvelopeType    `json:"type"`
	Message  json.RawMessage `json:"message,omitempty"`
	FromUser string          `json:"fromUser,omitempty"`
}

// Text возвращает Message, если это JSON-строка
func (e *Envelope) Text() string {
	var s string
	if len(e.Message) == 0 || json.Unmarshal(e.Message, &s) != nil {
		return ""
	}
	return s
}

// ParseEnvelope разбирает внешний кадр строки
func ParseEnvelope(line []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return &env, nil
}

// DecodeApplication декодирует вложенное сообщение в конкретный тип
func DecodeApplication(raw json.RawMessage) (Message, error) {
	var h Header
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if h.Module != Module {
		return nil, fmt.Errorf("%w: %q", ErrForeignModule, h.Module)
	}
	newMsg, ok := variants[h.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, h.Type)
	}
	msg := newMsg()
	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, h.Type, err)
	}
	return msg, nil
}

// Decode превращает входящую строку в игровое сообщение.
// Рассылка чата становится ChatMessage от отправителя
func Decode(line []byte) (Message, error) {
	env, err := ParseEnvelope(line)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case EnvelopeApplication:
		return DecodeApplication(env.Message)
	case EnvelopeChat:
		return NewChatMessage(env.FromUser, env.Text()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnvelope, env.Type)
	}
}

// Handler получает декодированные сообщения
type Handler interface {
	HandleMessage(Message)
}

type HandlerFunc func(Message)

func (f HandlerFunc) HandleMessage(m Message) { f(m) }

// Dispatch декодирует строку и передает сообщение обработчику.
// При ошибке обработчик не вызывается. ErrForeignModule на общем сервере нормален
func Dispatch(line []byte, h Handler) error {
	msg, err := Decode(line)
	if err != nil {
		return err
	}
	h.HandleMessage(msg)
	return nil
}

// Wrap строит внешний кадр. Логин идет под своим тегом
func Wrap(msg Message) (*Envelope, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	t := EnvelopeApplication
	if msg.MessageType() == TypeLogin {
		t = EnvelopeLogin
	}
	return &Envelope{Type: t, Message: raw}, nil
}

// Encode сериализует сообщение в одну строку с \n
func Encode(msg Message) ([]byte, error) {
	env, err := Wrap(msg)
	if err != nil {
		return nil, err
	}
	return EncodeEnvelope(env)
}

func EncodeEnvelope(env *Envelope) ([]byte, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Notice строит кадр с текстовым сообщением (чат, подтверждение, ошибка)
func Notice(t EnvelopeType, fromUser, text string) []byte {
	raw, _ := json.Marshal(text)
	b, _ := EncodeEnvelope(&Envelope{Type: t, Message: raw, FromUser: fromUser})
	return b
}

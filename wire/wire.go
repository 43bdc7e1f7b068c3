package wire

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// LineConn carries newline-delimited frames in both directions.
type LineConn interface {
	ReadLine() ([]byte, error)
	WriteLine(line []byte) error
	Close() error
	RemoteAddr() string
}

// StreamConn frames lines over a byte stream such as TCP.
type StreamConn struct {
	conn   net.Conn
	reader *bufio.Reader
}

func NewStreamConn(conn net.Conn) *StreamConn {
	return &StreamConn{conn: conn, reader: bufio.NewReader(conn)}
}

// ReadLine returns the next line without its terminator. Blank lines are skipped.
func (s *StreamConn) ReadLine() ([]byte, error) {
	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			return nil, err
		}
		line = bytes.TrimRight(line, "\r\n")
		if len(line) > 0 {
			return line, nil
		}
	}
}

func (s *StreamConn) WriteLine(line []byte) error {
	if !bytes.HasSuffix(line, []byte("\n")) {
		line = append(line, '\n')
	}
	_, err := s.conn.Write(line)
	return err
}

func (s *StreamConn) Close() error { return s.conn.Close() }

func (s *StreamConn) RemoteAddr() string { return s.conn.RemoteAddr().String() }

func (s *StreamConn) SetReadDeadline(t time.Time) error { return s.conn.SetReadDeadline(t) }

func (s *StreamConn) SetWriteDeadline(t time.Time) error { return s.conn.SetWriteDeadline(t) }

// WSConn carries one line per websocket text frame.
type WSConn struct {
	conn *websocket.Conn
}

func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

func (w *WSConn) ReadLine() ([]byte, error) {
	for {
		kind, data, err := w.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		data = bytes.TrimRight(data, "\r\n")
		if len(data) > 0 {
			return data, nil
		}
	}
}

func (w *WSConn) WriteLine(line []byte) error {
	return w.conn.WriteMessage(websocket.TextMessage, bytes.TrimRight(line, "\n"))
}

func (w *WSConn) Close() error {
	w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return w.conn.Close()
}

func (w *WSConn) RemoteAddr() string { return w.conn.RemoteAddr().String() }

func (w *WSConn) SetReadDeadline(t time.Time) error { return w.conn.SetReadDeadline(t) }

func (w *WSConn) SetWriteDeadline(t time.Time) error { return w.conn.SetWriteDeadline(t) }

// Deadliner is implemented by connections that support I/O deadlines.
type Deadliner interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// Dial picks the transport from the address scheme: ws:// and wss://
// use websocket, tcp:// or a bare host:port use a plain stream.
func Dial(ctx context.Context, addr string, timeout time.Duration) (LineConn, error) {
	if strings.HasPrefix(addr, "ws://") || strings.HasPrefix(addr, "wss://") {
		dialer := websocket.Dialer{
			HandshakeTimeout: timeout,
		}
		conn, _, err := dialer.DialContext(ctx, addr, nil)
		if err != nil {
			return nil, err
		}
		return NewWSConn(conn), nil
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", strings.TrimPrefix(addr, "tcp://"))
	if err != nil {
		return nil, err
	}
	return NewStreamConn(conn), nil
}

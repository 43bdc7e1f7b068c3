package network

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"btlshyp/protocol"
	"btlshyp/wire"
)

// ConnectionError means the server could not be reached.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// CommunicationError means a frame could not be written or read.
type CommunicationError struct {
	Op  string
	Err error
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CommunicationError) Unwrap() error { return e.Err }

var (
	ErrAlreadyListening = errors.New("listener already running")
	ErrClosed           = errors.New("connection closed")
)

// Client is one connection to the relay server.
type Client struct {
	conn   wire.LineConn
	sendMu sync.Mutex

	listenOnce sync.Once
	listening  bool

	done    chan struct{}
	errMu   sync.Mutex
	err     error
	closeMu sync.Mutex
	closed  bool
}

// Dial connects to addr within timeout.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	conn, err := wire.Dial(ctx, addr, timeout)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}
	log.WithField("addr", conn.RemoteAddr()).Info("Connected to server")
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn wire.LineConn) *Client {
	return &Client{
		conn: conn,
		done: make(chan struct{}),
	}
}

// Login sends the login frame and waits for exactly one reply line. It must
// be called before Listen.
func (c *Client) Login(username string) (bool, error) {
	if c.isListening() {
		return false, ErrAlreadyListening
	}
	if err := c.Send(protocol.NewLoginMessage(username)); err != nil {
		return false, err
	}

	line, err := c.conn.ReadLine()
	if err != nil {
		return false, &CommunicationError{Op: "read login reply", Err: err}
	}
	env, err := protocol.ParseEnvelope(line)
	if err != nil {
		log.WithError(err).Warn("Unreadable login reply")
		return false, nil
	}
	if env.Type != protocol.EnvelopeAcknowledge {
		log.WithFields(log.Fields{
			"username": username,
			"reply":    env.Type,
			"message":  env.Text(),
		}).Info("Login rejected")
		return false, nil
	}
	log.WithField("username", username).Info("Logged in")
	return true, nil
}

// Listen starts the single reader goroutine. Every decoded message is passed
// to h on that goroutine. Done is closed when the reader stops.
func (c *Client) Listen(h protocol.Handler) error {
	started := false
	c.listenOnce.Do(func() {
		c.sendMu.Lock()
		c.listening = true
		c.sendMu.Unlock()
		started = true
		go c.readLoop(h)
	})
	if !started {
		return ErrAlreadyListening
	}
	return nil
}

func (c *Client) isListening() bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.listening
}

func (c *Client) readLoop(h protocol.Handler) {
	defer close(c.done)
	for {
		line, err := c.conn.ReadLine()
		if err != nil {
			if c.isClosed() {
				err = ErrClosed
			}
			c.setErr(err)
			log.WithError(err).Info("Reader stopped")
			return
		}
		if err := protocol.Dispatch(line, h); err != nil {
			if errors.Is(err, protocol.ErrForeignModule) {
				log.WithError(err).Debug("Ignoring frame")
				continue
			}
			log.WithError(err).WithField("frame", string(line)).Warn("Dropping frame")
		}
	}
}

// Send writes msg as one frame. Concurrent calls are serialized.
func (c *Client) Send(msg protocol.Message) error {
	line, err := protocol.Encode(msg)
	if err != nil {
		return &CommunicationError{Op: "encode " + string(msg.MessageType()), Err: err}
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := c.conn.WriteLine(line); err != nil {
		return &CommunicationError{Op: "send " + string(msg.MessageType()), Err: err}
	}
	log.WithField("type", msg.MessageType()).Debug("Sent")
	return nil
}

// Done is closed once the reader goroutine has exited.
func (c *Client) Done() <-chan struct{} { return c.done }

// Err returns why the reader exited, nil while it runs.
func (c *Client) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.err
}

func (c *Client) setErr(err error) {
	c.errMu.Lock()
	c.err = err
	c.errMu.Unlock()
}

func (c *Client) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}

// Close shuts the connection. A running reader exits with ErrClosed.
func (c *Client) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	c.closeMu.Unlock()
	return c.conn.Close()
}

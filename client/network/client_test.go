package network

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"btlshyp/game"
	"btlshyp/protocol"
	"btlshyp/wire"
)

// pipeClient returns a client on one end of an in-memory pipe and a reader
// on the server end.
func pipeClient(t *testing.T) (*Client, net.Conn, *bufio.Reader) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() {
		serverConn.Close()
		clientConn.Close()
	})
	return NewClient(wire.NewStreamConn(clientConn)), serverConn, bufio.NewReader(serverConn)
}

func readFrame(t *testing.T, r *bufio.Reader) protocol.Message {
	t.Helper()
	line, err := r.ReadBytes('\n')
	require.NoError(t, err)
	env, err := protocol.ParseEnvelope(line)
	require.NoError(t, err)
	msg, err := protocol.DecodeApplication(env.Message)
	require.NoError(t, err)
	return msg
}

func TestLoginAcknowledged(t *testing.T) {
	c, server, r := pipeClient(t)

	go func() {
		line, err := r.ReadBytes('\n')
		if err != nil {
			return
		}
		env, _ := protocol.ParseEnvelope(line)
		if env != nil && env.Type == protocol.EnvelopeLogin {
			server.Write(protocol.Notice(protocol.EnvelopeAcknowledge, "", "Welcome alice"))
		}
	}()

	ok, err := c.Login("alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginRejected(t *testing.T) {
	c, server, r := pipeClient(t)

	go func() {
		if _, err := r.ReadBytes('\n'); err != nil {
			return
		}
		server.Write(protocol.Notice(protocol.EnvelopeError, "", "Username already in use"))
	}()

	ok, err := c.Login("alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoginReadFailure(t *testing.T) {
	c, server, r := pipeClient(t)

	go func() {
		r.ReadBytes('\n')
		server.Close()
	}()

	ok, err := c.Login("alice")
	assert.False(t, ok)
	var commErr *CommunicationError
	assert.ErrorAs(t, err, &commErr)
}

func TestListenDispatchesAndReportsLoss(t *testing.T) {
	c, server, _ := pipeClient(t)

	got := make(chan protocol.Message, 4)
	require.NoError(t, c.Listen(protocol.HandlerFunc(func(m protocol.Message) { got <- m })))
	assert.ErrorIs(t, c.Listen(protocol.HandlerFunc(func(protocol.Message) {})), ErrAlreadyListening)

	frames := []string{
		`{"type":"application","message":{"module":"Checkers","type":"JOIN_RESPONSE","username":"x"}}`,
		`not json at all`,
		`{"type":"application","message":{"module":"BtlShyp","type":"JOIN_RESPONSE","username":"bob","confirmJoin":"ACCEPT"}}`,
		`{"type":"chat","fromUser":"bob","message":"hi"}`,
	}
	go func() {
		for _, f := range frames {
			server.Write([]byte(f + "\n"))
		}
		server.Close()
	}()

	first := <-got
	join, ok := first.(*protocol.JoinResponseMessage)
	require.True(t, ok)
	assert.Equal(t, protocol.Accept, join.ConfirmJoin)

	second := <-got
	chat, ok := second.(*protocol.ChatMessage)
	require.True(t, ok)
	assert.Equal(t, "hi", chat.Text)

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not stop")
	}
	assert.Error(t, c.Err())
	assert.Empty(t, got)
}

func TestLoginAfterListen(t *testing.T) {
	c, _, _ := pipeClient(t)
	require.NoError(t, c.Listen(protocol.HandlerFunc(func(protocol.Message) {})))
	_, err := c.Login("alice")
	assert.ErrorIs(t, err, ErrAlreadyListening)
}

func TestSendSerializesFrames(t *testing.T) {
	c, _, r := pipeClient(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Send(protocol.NewAttackAttemptMessage("alice", game.Coordinate{X: i % 5, Y: i / 5 % 5}))
		}(i)
	}

	for i := 0; i < n; i++ {
		msg := readFrame(t, r)
		assert.Equal(t, protocol.TypeAttackAttempt, msg.MessageType())
	}
	wg.Wait()
}

func TestSendAfterCloseFails(t *testing.T) {
	c, _, _ := pipeClient(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	err := c.Send(protocol.NewJoinAttemptMessage("alice"))
	var commErr *CommunicationError
	assert.ErrorAs(t, err, &commErr)
}

func TestCloseStopsReader(t *testing.T) {
	c, _, _ := pipeClient(t)
	require.NoError(t, c.Listen(protocol.HandlerFunc(func(protocol.Message) {})))
	require.NoError(t, c.Close())

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("reader did not stop")
	}
	assert.ErrorIs(t, c.Err(), ErrClosed)
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(context.Background(), addr, time.Second)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, addr, connErr.Addr)
}

func TestDialTCP(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	lines := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		line, _ := bufio.NewReader(conn).ReadString('\n')
		lines <- line
	}()

	c, err := Dial(context.Background(), "tcp://"+ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(protocol.NewJoinAttemptMessage("alice")))
	assert.Contains(t, <-lines, `"JOIN_ATTEMPT"`)
}

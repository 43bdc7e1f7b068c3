package wire

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamConnFraming(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	go func() {
		b.Write([]byte("\n\r\n{\"type\":\"chat\"}\r\n"))
		b.Write([]byte("second"))
		b.Write([]byte("\n"))
	}()

	s := NewStreamConn(a)
	line, err := s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"chat"}`, string(line))

	line, err = s.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "second", string(line))
}

func TestStreamConnAppendsNewline(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	go NewStreamConn(a).WriteLine([]byte("hello"))

	line, err := NewStreamConn(b).ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(line))
}

// echoServer answers every text frame with the same frame.
func echoServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			conn.WriteMessage(kind, data)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDialWebsocket(t *testing.T) {
	srv := echoServer(t)
	url := "ws://" + strings.TrimPrefix(srv.URL, "http://") + "/play"

	conn, err := Dial(context.Background(), url, time.Second)
	require.NoError(t, err)
	defer conn.Close()
	_, ok := conn.(*WSConn)
	require.True(t, ok)

	require.NoError(t, conn.WriteLine([]byte("{\"type\":\"login\"}\n")))
	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, `{"type":"login"}`, string(line))
}

func TestDialPicksStreamForBareAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		if c, err := ln.Accept(); err == nil {
			c.Close()
		}
	}()

	conn, err := Dial(context.Background(), ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer conn.Close()
	_, ok := conn.(*StreamConn)
	assert.True(t, ok)
}

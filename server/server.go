package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/matryer/way"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"btlshyp/db"
	"btlshyp/models"
	"btlshyp/protocol"
	"btlshyp/wire"
)

// URIPlay путь websocket-подключения
const URIPlay = "/play"

// relayName подставляется в username сообщений от самого сервера
const relayName = "relay"

type Server struct {
	db       *db.DB
	config   *Config
	router   *way.Router
	upgrader *websocket.Upgrader

	mu       sync.RWMutex
	sessions map[string]*Session   // только вошедшие, по логину
	conns    map[*Session]struct{} // все открытые соединения
	queue    []*Session
	matches  map[string]*match
	cancel   context.CancelFunc
	closed   bool
}

type Config struct {
	Port         int
	WSAddr       string // пусто - websocket не слушаем
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Session struct {
	Login string
	Conn  wire.LineConn

	// под Server.mu
	queued bool
	match  *match

	mu sync.Mutex // сериализует запись
}

// match партия двух игроков. Первый в очереди ходит первым
type match struct {
	models.Match
	players [2]*Session
	placed  [2]bool
}

func (m *match) index(s *Session) int {
	if m.players[0] == s {
		return 0
	}
	return 1
}

func (m *match) opponent(s *Session) *Session {
	return m.players[1-m.index(s)]
}

func New(database *db.DB, config *Config) *Server {
	s := &Server{
		db:       database,
		config:   config,
		upgrader: &websocket.Upgrader{},
		sessions: make(map[string]*Session),
		conns:    make(map[*Session]struct{}),
		matches:  make(map[string]*match),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router = way.NewRouter()
	s.router.HandleFunc("GET", URIPlay, s.handleWebSocket)
}

// Handler HTTP-обработчик с websocket-точкой /play
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start слушает TCP-порт из конфигурации и обслуживает до отмены ctx или Shutdown
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(s.config.Port))
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve принимает TCP-соединения с listener и, если задан WSAddr, websocket.
// Оба слушателя работают в одной errgroup
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return nil
	}
	s.cancel = cancel
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)

	log.WithField("addr", listener.Addr().String()).Info("BtlShyp relay started")
	g.Go(func() error {
		return s.acceptLoop(listener)
	})

	var httpServer *http.Server
	if s.config.WSAddr != "" {
		httpServer = &http.Server{Addr: s.config.WSAddr, Handler: s.router}
		g.Go(func() error {
			log.WithField("addr", s.config.WSAddr).Info("WebSocket listener started")
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("websocket listener: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		listener.Close()
		if httpServer != nil {
			httpServer.Close()
		}
		return nil
	})

	return g.Wait()
}

func (s *Server) acceptLoop(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.WithError(err).Warn("Error accepting connection")
			continue
		}

		go s.handleConnection(wire.NewStreamConn(conn))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	s.handleConnection(wire.NewWSConn(conn))
}

func (s *Server) handleConnection(conn wire.LineConn) {
	defer conn.Close()

	remoteAddr := conn.RemoteAddr()
	logger := log.WithField("remote", remoteAddr)
	logger.Info("New client connected")

	session := &Session{Conn: conn}
	if !s.track(session) {
		return
	}

	for {
		if d, ok := conn.(wire.Deadliner); ok && s.config.ReadTimeout > 0 {
			d.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		}
		line, err := conn.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Debug("Connection closed")
			} else {
				logger.WithError(err).Warn("Error reading from client")
			}
			break
		}

		logger.WithField("line", string(line)).Debug("Received")
		s.handleLine(session, line)
	}

	s.disconnect(session)
	if session.Login != "" {
		logger.WithField("username", session.Login).Info("Client disconnected")
	} else {
		logger.Info("Client disconnected")
	}
}

func (s *Server) track(session *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[session] = struct{}{}
	return true
}

// handleLine разбирает внешний кадр. До входа принимается только login
func (s *Server) handleLine(session *Session, line []byte) {
	env, err := protocol.ParseEnvelope(line)
	if err != nil {
		log.WithError(err).WithField("remote", session.Conn.RemoteAddr()).Warn("Invalid frame")
		s.sendNotice(session, protocol.EnvelopeError, "Invalid frame")
		return
	}

	switch env.Type {
	case protocol.EnvelopeLogin:
		s.handleLogin(session, env)
	case protocol.EnvelopeApplication:
		if session.Login == "" {
			s.sendNotice(session, protocol.EnvelopeError, "Not logged in")
			return
		}
		msg, err := protocol.DecodeApplication(env.Message)
		if errors.Is(err, protocol.ErrForeignModule) {
			s.broadcast(session, line)
			return
		}
		if err != nil {
			log.WithError(err).WithField("username", session.Login).Warn("Invalid message")
			s.sendNotice(session, protocol.EnvelopeError, "Invalid message")
			return
		}
		s.handleMessage(session, msg, line)
	default:
		s.sendNotice(session, protocol.EnvelopeError, "Unsupported envelope")
	}
}

// send пишет одну строку в соединение сессии
func (s *Server) send(session *Session, line []byte) {
	session.mu.Lock()
	defer session.mu.Unlock()
	s.writeLocked(session, line)
}

// writeLocked пишет строку, вызывающий держит session.mu
func (s *Server) writeLocked(session *Session, line []byte) {
	if d, ok := session.Conn.(wire.Deadliner); ok && s.config.WriteTimeout > 0 {
		d.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	}
	if err := session.Conn.WriteLine(line); err != nil {
		log.WithError(err).WithField("remote", session.Conn.RemoteAddr()).Warn("Error writing to connection")
	}
}

func (s *Server) sendMessage(session *Session, msg protocol.Message) {
	line, err := protocol.Encode(msg)
	if err != nil {
		log.WithError(err).WithField("type", msg.MessageType()).Error("Encode failed")
		return
	}
	s.send(session, line)
}

func (s *Server) sendNotice(session *Session, t protocol.EnvelopeType, text string) {
	s.send(session, protocol.Notice(t, "", text))
}

// broadcast отправляет строку всем вошедшим, кроме from
func (s *Server) broadcast(from *Session, line []byte) {
	for _, sess := range s.loggedIn() {
		if sess != from {
			s.send(sess, line)
		}
	}
}

func (s *Server) loggedIn() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	return sessions
}

func (s *Server) addSession(login string, session *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.sessions[login]; taken {
		return false
	}
	session.Login = login
	s.sessions[login] = session
	return true
}

// GetStats возвращает статистику сервера строкой для управляющего сокета
func (s *Server) GetStats() string {
	s.mu.RLock()
	users := make([]string, 0, len(s.sessions))
	for login := range s.sessions {
		users = append(users, login)
	}
	connections := len(s.conns)
	queued := len(s.queue)
	active := len(s.matches)
	s.mu.RUnlock()
	sort.Strings(users)

	stats := "connections=" + strconv.Itoa(connections) +
		",users=" + strings.Join(users, ";") +
		",queued=" + strconv.Itoa(queued) +
		",matches=" + strconv.Itoa(active)

	if ledger, err := s.db.Stats(); err == nil {
		stats += ",players=" + strconv.Itoa(ledger.Players) +
			",played=" + strconv.Itoa(ledger.MatchesPlayed)
	}
	return stats
}

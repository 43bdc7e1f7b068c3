package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"btlshyp/config"
	"btlshyp/db"
	"btlshyp/logging"
	"btlshyp/server"
)

func main() {
	fs := flag.NewFlagSet("btlshyp-relay", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	port := fs.Int("port", 0, "TCP port for line-framed clients")
	wsAddr := fs.String("ws", "", "listen address for websocket clients, e.g. :8990")
	dbPath := fs.String("db", "", "sqlite match ledger (file path or sqlite URI)")
	controlSocket := fs.String("control", "", "unix control socket path")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Relay.Port = *port
		case "ws":
			cfg.Relay.WSAddr = *wsAddr
		case "db":
			cfg.Relay.DBPath = *dbPath
		case "control":
			cfg.Relay.ControlSocket = *controlSocket
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})

	closeLog, err := logging.Setup(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	database, err := db.New(cfg.Relay.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	srv := server.New(database, &server.Config{
		Port:         cfg.Relay.Port,
		WSAddr:       cfg.Relay.WSAddr,
		ReadTimeout:  cfg.Relay.ReadTimeout,
		WriteTimeout: cfg.Relay.WriteTimeout,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Start control socket for management commands
	if cfg.Relay.ControlSocket != "" {
		go startControlSocket(ctx, srv, cfg.Relay.ControlSocket)
	}

	err = srv.Start(ctx)
	srv.Shutdown("maintenance")
	if err != nil {
		log.WithError(err).Error("Relay stopped")
		os.Exit(1)
	}
	log.Info("Relay stopped")
}

func startControlSocket(ctx context.Context, srv *server.Server, path string) {
	// Remove a stale socket file
	os.Remove(path)

	listener, err := net.Listen("unix", path)
	if err != nil {
		log.WithError(err).Warn("Failed to create control socket")
		return
	}
	defer os.Remove(path)
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	log.WithField("path", path).Info("Control socket listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}

		go handleControlCommand(srv, conn)
	}
}

// handleControlCommand serves one request: "stats" or "shutdown|reason".
func handleControlCommand(srv *server.Server, conn net.Conn) {
	defer conn.Close()

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return
	}
	parts := strings.SplitN(strings.TrimSpace(line), "|", 2)

	switch parts[0] {
	case "stats":
		conn.Write([]byte("OK|" + srv.GetStats() + "\n"))

	case "shutdown":
		reason := "maintenance"
		if len(parts) == 2 && parts[1] != "" {
			reason = parts[1]
		}
		conn.Write([]byte("OK|Shutting down\n"))
		log.WithField("reason", reason).Info("Shutdown requested")
		srv.Shutdown(reason)

	default:
		conn.Write([]byte("ERROR|Unknown command\n"))
	}
}

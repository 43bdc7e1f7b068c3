package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"btlshyp/client/controller"
	"btlshyp/client/network"
	"btlshyp/client/ui"
	"btlshyp/config"
	"btlshyp/logging"
)

func main() {
	fs := flag.NewFlagSet("btlshyp", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a YAML config file")
	serverAddr := fs.String("server", "", "server address (host:port, tcp://host:port or ws://host:port/play)")
	username := fs.String("username", "", "username to prefill in the login dialog")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	logFile := fs.String("log-file", "btlshyp.log", "log file; the terminal belongs to the UI")
	fs.Parse(os.Args[1:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Log.File == "" {
		cfg.Log.File = *logFile
	}
	// Explicit flags win over file and environment.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "server":
			cfg.Client.Server = *serverAddr
		case "username":
			cfg.Client.Username = *username
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-file":
			cfg.Log.File = *logFile
		}
	})

	closeLog, err := logging.Setup(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := ui.NewApp(cfg.Client.Server)
	app.SetUsername(cfg.Client.Username)

	dial := func(ctx context.Context) (controller.Network, error) {
		return network.Dial(ctx, cfg.Client.Server, cfg.Client.ConnectTimeout)
	}
	ctrl := controller.New(app, dial)
	app.Bind(ctrl)

	log.WithField("server", cfg.Client.Server).Info("Starting client")

	result := make(chan error, 1)
	go func() {
		err := ctrl.Run(ctx)
		if err != nil {
			log.WithError(err).Error("Session ended")
		}
		app.Finish(err)
		result <- err
	}()

	if err := app.Run(ctx); err != nil {
		log.WithError(err).Error("UI failed")
		cancel()
		<-result
		closeLog()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cancel()
	if err := <-result; err != nil {
		closeLog()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

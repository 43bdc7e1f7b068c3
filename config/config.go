package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Client holds player binary settings.
type Client struct {
	// host:port, tcp://host:port or ws://host:port/play
	Server         string        `yaml:"server"`
	Username       string        `yaml:"username"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Relay holds development relay settings.
type Relay struct {
	Port          int           `yaml:"port"`
	WSAddr        string        `yaml:"ws_addr"`
	DBPath        string        `yaml:"db_path"`
	ControlSocket string        `yaml:"control_socket"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
}

type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type Config struct {
	Client Client `yaml:"client"`
	Relay  Relay  `yaml:"relay"`
	Log    Log    `yaml:"log"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Client: Client{
			Server:         "localhost:8989",
			ConnectTimeout: 5 * time.Second,
		},
		Relay: Relay{
			Port:          8989,
			DBPath:        "file::memory:?cache=shared",
			ControlSocket: "/tmp/btlshyp.sock",
			ReadTimeout:   0,
			WriteTimeout:  10 * time.Second,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load layers the defaults, the YAML file at path (when not empty) and
// BTLSHYP_* environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("BTLSHYP_SERVER"); v != "" {
		cfg.Client.Server = v
	}
	if v := os.Getenv("BTLSHYP_USERNAME"); v != "" {
		cfg.Client.Username = v
	}
	if v := os.Getenv("BTLSHYP_CONNECT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Client.ConnectTimeout = d
		}
	}

	if v := os.Getenv("BTLSHYP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Relay.Port = port
		}
	}
	if v := os.Getenv("BTLSHYP_WS_ADDR"); v != "" {
		cfg.Relay.WSAddr = v
	}
	if v := os.Getenv("BTLSHYP_DB_PATH"); v != "" {
		cfg.Relay.DBPath = v
	}
	if v := os.Getenv("BTLSHYP_CONTROL_SOCKET"); v != "" {
		cfg.Relay.ControlSocket = v
	}
	if v := os.Getenv("BTLSHYP_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Relay.ReadTimeout = d
		}
	}
	if v := os.Getenv("BTLSHYP_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Relay.WriteTimeout = d
		}
	}

	if v := os.Getenv("BTLSHYP_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("BTLSHYP_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
}

var ErrInvalid = errors.New("invalid config")

func (c *Config) Validate() error {
	if c.Client.Server == "" {
		return fmt.Errorf("%w: client.server is empty", ErrInvalid)
	}
	if c.Client.ConnectTimeout <= 0 {
		return fmt.Errorf("%w: client.connect_timeout must be positive", ErrInvalid)
	}
	if c.Relay.Port < 0 || c.Relay.Port > 65535 {
		return fmt.Errorf("%w: relay.port %d out of range", ErrInvalid, c.Relay.Port)
	}
	if c.Relay.ReadTimeout < 0 || c.Relay.WriteTimeout < 0 {
		return fmt.Errorf("%w: relay timeouts must not be negative", ErrInvalid)
	}
	return nil
}

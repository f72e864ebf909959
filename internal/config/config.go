// Package config loads the client's settings from a .env file, the
// environment and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	ServerURL string `env:"CUBEROOM_SERVER_URL" envDefault:"ws://localhost:8000/socket"`
	HTTPAddr  string `env:"CUBEROOM_HTTP_ADDR" envDefault:"127.0.0.1:8080"`

	UserID      string `env:"CUBEROOM_USER_ID"`
	DisplayName string `env:"CUBEROOM_DISPLAY_NAME"`
	AuthToken   string `env:"CUBEROOM_AUTH_TOKEN"`

	// RoomID, when set, is joined as soon as the client starts.
	RoomID       string `env:"CUBEROOM_ROOM_ID"`
	RoomPassword string `env:"CUBEROOM_ROOM_PASSWORD"`

	Development bool   `env:"CUBEROOM_DEV" envDefault:"false"`
	LogLevel    string `env:"CUBEROOM_LOG_LEVEL" envDefault:"info"`

	ReconnectInitial time.Duration `env:"CUBEROOM_RECONNECT_INITIAL" envDefault:"500ms"`
	ReconnectMax     time.Duration `env:"CUBEROOM_RECONNECT_MAX" envDefault:"30s"`
	ReconnectStable  time.Duration `env:"CUBEROOM_RECONNECT_STABLE" envDefault:"10s"`
	OutboxSize       int           `env:"CUBEROOM_OUTBOX_SIZE" envDefault:"64"`
	// ReadLimit caps one inbound frame. Room snapshots grow with every
	// attempt, so it is far above the websocket library's 32 KiB default.
	ReadLimit int64 `env:"CUBEROOM_READ_LIMIT" envDefault:"16777216"`
}

// Load reads dotenv (missing files are skipped), then the environment, then
// args parsed against fs.
func Load(fset *flag.FlagSet, args []string, dotenv ...string) (Config, error) {
	for _, path := range dotenv {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fset.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "room server websocket URL")
	fset.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, "local HTTP listen address")
	fset.StringVar(&cfg.UserID, "user", cfg.UserID, "session user id")
	fset.StringVar(&cfg.DisplayName, "name", cfg.DisplayName, "session display name")
	fset.StringVar(&cfg.RoomID, "room", cfg.RoomID, "room to join on start")
	fset.StringVar(&cfg.RoomPassword, "password", cfg.RoomPassword, "password for -room")
	fset.BoolVar(&cfg.Development, "dev", cfg.Development, "development logging, panic on malformed payloads")
	fset.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	fset.Int64Var(&cfg.ReadLimit, "read-limit", cfg.ReadLimit, "max inbound frame size in bytes")
	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.ServerURL == "":
		return fmt.Errorf("%w: server url is required", ErrInvalid)
	case c.ReconnectInitial <= 0 || c.ReconnectMax < c.ReconnectInitial:
		return fmt.Errorf("%w: reconnect backoff %v..%v", ErrInvalid, c.ReconnectInitial, c.ReconnectMax)
	case c.ReconnectStable <= 0:
		return fmt.Errorf("%w: reconnect stable window %v", ErrInvalid, c.ReconnectStable)
	case c.OutboxSize <= 0:
		return fmt.Errorf("%w: outbox size %d", ErrInvalid, c.OutboxSize)
	case c.ReadLimit <= 0:
		return fmt.Errorf("%w: read limit %d", ErrInvalid, c.ReadLimit)
	case c.RoomPassword != "" && c.RoomID == "":
		return fmt.Errorf("%w: room password without room", ErrInvalid)
	}
	return nil
}

// Header is sent with the websocket handshake.
func (c Config) Header() http.Header {
	h := http.Header{}
	if c.AuthToken != "" {
		h.Set("Authorization", "Bearer "+c.AuthToken)
	}
	return h
}

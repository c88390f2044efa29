// Command daifugo is a client for Daifugo room servers.
//
// It supports several modes:
//  1. "serve" – runs the local HTTP API, the viewer WebSocket and an /mcp endpoint
//  2. "mcp" – runs an MCP stdio server, starting an internal API if none is reachable
//  3. "play" – plays one seat from the terminal
//  4. "rooms", "replay", "version" – utilities
//
// Global flags pick the room server, an optional config file and debug
// logging. A .env file in the working directory is loaded first.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/daifugo/game/config"
	"github.com/wricardo/mcp-training/daifugo/game/service"
	"github.com/wricardo/mcp-training/daifugo/game/session"
	"github.com/wricardo/mcp-training/daifugo/transport/rooms"
	"github.com/wricardo/mcp-training/daifugo/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Daifugo Client"
)

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the command tree
func newApp() *cli.Command {
	return &cli.Command{
		Name:    "daifugo",
		Usage:   "play Daifugo against a room server",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "backend",
				Usage:   "room server as host[:port] or ws(s)/http(s) URL",
				Sources: cli.EnvVars(config.EnvBackend),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file (.json, .yaml or .yml)",
				Sources: cli.EnvVars("DAIFUGO_CONFIG"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			slog.SetDefault(newLogger(os.Stderr, cmd.Bool("debug")))
			return ctx, nil
		},
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			roomsCommand(),
			playCommand(),
			replayCommand(),
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					fmt.Fprintf(writer(cmd), "%s v%s\n", AppName, Version)
					return nil
				},
			},
		},
	}
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// loadConfig reads the config file and env, then applies --backend
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if backend := cmd.String("backend"); backend != "" {
		cfg.Backend = backend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// buildService wires the session manager, room client and websocket dialer
// into a GameService. listener may be nil.
func buildService(cfg *config.Config, logger *slog.Logger, listener service.Listener) (service.GameService, *session.Manager, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, nil, err
	}

	manager := session.NewManager()
	if cfg.SessionsDir != "" {
		persistence, err := session.NewFilePersistence(cfg.SessionsDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		manager = session.NewManagerWithPersistence(persistence, logger)
	}

	roomClient, err := rooms.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}

	svc := service.NewGameService(service.Options{
		Sessions: manager,
		Rooms:    roomClient,
		Dial:     dialer(timeout, logger),
		Endpoint: cfg.WebSocketURL,
		Policy:   cfg.Policy(),
		Listener: listener,
		Logger:   logger,
	})
	return svc, manager, nil
}

func dialer(timeout time.Duration, logger *slog.Logger) service.Dialer {
	return func(ctx context.Context, endpoint string, farewell []byte) (service.Connection, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		conn, err := websocket.Dial(ctx, endpoint,
			websocket.WithFarewell(farewell),
			websocket.WithLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

func writer(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func reader(cmd *cli.Command) io.Reader {
	if r := cmd.Root().Reader; r != nil {
		return r
	}
	return os.Stdin
}

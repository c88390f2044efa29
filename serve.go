package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/daifugo/api"
	"github.com/wricardo/mcp-training/daifugo/game/config"
	"github.com/wricardo/mcp-training/daifugo/game/session"
	"github.com/wricardo/mcp-training/daifugo/transport/mcp"
	"github.com/wricardo/mcp-training/daifugo/transport/websocket"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the local API, viewer websocket and /mcp endpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "local listen address (default from config)",
				Sources: cli.EnvVars(config.EnvListen),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "expose the local API through an ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-auth",
				Usage:   "ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "custom ngrok domain",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: runServe,
	}
}

// runServe starts the HTTP server with REST API, viewer hub and an /mcp
// proxy endpoint. With --ngrok it also serves through a public tunnel.
func runServe(ctx context.Context, cmd *cli.Command) error {
	logger := slog.Default()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	addr := cmd.String("listen")
	if addr == "" {
		addr = cfg.Listen
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return err
	}

	hub := websocket.NewHub(logger)
	svc, manager, err := buildService(cfg, logger, hub)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	apiServer := api.NewServer(svc, hub, logger)
	mcpClient := mcp.NewClient(localURL(addr), timeout)
	apiServer.Router().Handle("/mcp", mcpHandler(mcpClient.GetMCPServer())).Methods("POST")

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apiServer,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", addr, "backend", cfg.Backend)
		logger.Info("endpoints",
			"api", localURL(addr)+"/api",
			"ws", "ws://"+hostPort(addr)+"/ws?session=<session_id>",
			"mcp", localURL(addr)+"/mcp")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if cmd.Bool("ngrok") {
		g.Go(func() error {
			return serveNgrok(ctx, logger, cmd.String("ngrok-auth"), cmd.String("ngrok-domain"), apiServer)
		})
	}

	g.Go(func() error {
		sessionCleanupRoutine(ctx, manager, logger)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
		}
		if err := manager.CloseAll(); err != nil {
			logger.Error("closing sessions", "error", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("server stopped")
	return err
}

// serveNgrok serves handler through an ngrok tunnel until ctx ends. A
// missing token only disables the tunnel.
func serveNgrok(ctx context.Context, logger *slog.Logger, authToken, domain string, handler http.Handler) error {
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use --ngrok-auth or NGROK_AUTHTOKEN)")
		return nil
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", "error", err)
		return nil
	}

	logger.Info("ngrok tunnel established", "url", tun.URL())

	srv := &http.Server{Handler: handler}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("ngrok server error", "error", err)
	}
	logger.Info("ngrok tunnel closed")
	return nil
}

// mcpHandler answers single JSON-RPC messages posted to /mcp
func mcpHandler(mcpServer *server.MCPServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := mcpServer.HandleMessage(r.Context(), body)

		w.Header().Set("Content-Type", "application/json")
		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Write(responseData)
	}
}

// sessionCleanupRoutine archives sessions whose connection ended but were
// not archived by their read loop
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, logger *slog.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := manager.CleanupClosedSessions(); removed > 0 {
				logger.Info("archived closed sessions", "count", removed)
			}
		}
	}
}

// hostPort turns a listen address into something a local client can dial
func hostPort(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}

func localURL(addr string) string {
	return "http://" + hostPort(addr)
}

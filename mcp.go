package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/daifugo/api"
	"github.com/wricardo/mcp-training/daifugo/transport/mcp"
)

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "run an MCP stdio server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "local API to proxy (default: the configured listen address)",
				Sources: cli.EnvVars("DAIFUGO_API"),
			},
		},
		Action: runStdioMCP,
	}
}

// runStdioMCP runs an MCP stdio server. It reuses a running serve instance
// when one answers; otherwise it starts an internal API on a random
// loopback port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	logger := slog.Default()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return err
	}

	baseURL := cmd.String("api")
	if baseURL == "" {
		baseURL = localURL(cfg.Listen)
	}

	if apiAvailable(ctx, baseURL) {
		logger.Info("using external API for MCP", "url", baseURL)
	} else {
		logger.Info("no external API found, starting internal HTTP server", "tried", baseURL)

		svc, manager, err := buildService(cfg, logger, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize services: %w", err)
		}
		defer manager.CloseAll()

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}

		httpServer := &http.Server{Handler: api.NewServer(svc, nil, logger)}
		go func() {
			if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
				logger.Error("internal HTTP server error", "error", err)
			}
		}()
		defer httpServer.Close()

		baseURL = "http://" + listener.Addr().String()
		logger.Info("internal HTTP server ready", "url", baseURL)
	}

	mcpClient := mcp.NewClient(baseURL, timeout)

	logger.Info("MCP stdio server ready")
	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}

func apiAvailable(ctx context.Context, baseURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Package rooms is a client for the room server's companion HTTP endpoints:
// listing rooms and creating one by name.
package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/wricardo/mcp-training/daifugo/game/config"
)

// ErrRoomRequest wraps every failed room call
var ErrRoomRequest = errors.New("room request failed")

// Client talks to GET {prefix}/rooms and POST {prefix}/rooms/{room}
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
}

// NewClient builds a client from a validated config
func NewClient(cfg *config.Config) (*Client, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}
	if _, err := cfg.RoomsURL(); err != nil {
		return nil, err
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// ListRooms returns the room names the server knows, sorted
func (c *Client) ListRooms(ctx context.Context) ([]string, error) {
	url, err := c.cfg.RoomsURL()
	if err != nil {
		return nil, err
	}

	var rooms []string
	if err := c.call(ctx, http.MethodGet, url, &rooms); err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []string{}
	}
	sort.Strings(rooms)
	return rooms, nil
}

// CreateRoom creates a room, or does nothing if it already exists
func (c *Client) CreateRoom(ctx context.Context, room string) error {
	if room == "" {
		return fmt.Errorf("%w: room name is empty", ErrRoomRequest)
	}
	url, err := c.cfg.RoomURL(room)
	if err != nil {
		return err
	}
	return c.call(ctx, http.MethodPost, url, nil)
}

func (c *Client) call(ctx context.Context, method, url string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRoomRequest, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrRoomRequest, method, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrRoomRequest, method, url, resp.StatusCode, body)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", ErrRoomRequest, url, err)
	}
	return nil
}

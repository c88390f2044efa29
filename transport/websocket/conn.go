package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// ErrTransportClosed reports that the game connection ended abnormally.
// There is no reconnect; the session is over.
var ErrTransportClosed = errors.New("transport closed")

// Conn is the single client connection of one session to a room server.
type Conn struct {
	ws         *websocket.Conn
	logger     *slog.Logger
	farewell   []byte
	pingPeriod time.Duration
	pongWait   time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
	closing   chan struct{}
	done      chan struct{}
}

type dialOptions struct {
	dialer     *websocket.Dialer
	header     http.Header
	logger     *slog.Logger
	farewell   []byte
	pingPeriod time.Duration
}

// DialOption configures Dial
type DialOption func(*dialOptions)

// WithFarewell sets the message written just before the connection closes
func WithFarewell(msg []byte) DialOption {
	return func(o *dialOptions) {
		o.farewell = msg
	}
}

// WithLogger sets the connection logger
func WithLogger(l *slog.Logger) DialOption {
	return func(o *dialOptions) {
		o.logger = l
	}
}

// WithPingPeriod overrides the keepalive interval. The read deadline is
// derived from it.
func WithPingPeriod(d time.Duration) DialOption {
	return func(o *dialOptions) {
		o.pingPeriod = d
	}
}

// WithHeader adds headers to the handshake request
func WithHeader(h http.Header) DialOption {
	return func(o *dialOptions) {
		o.header = h
	}
}

// Dial opens the connection. It does not start reading; call Run.
func Dial(ctx context.Context, endpoint string, opts ...DialOption) (*Conn, error) {
	o := dialOptions{
		dialer:     websocket.DefaultDialer,
		logger:     slog.Default(),
		pingPeriod: pingPeriod,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ws, resp, err := o.dialer.DialContext(ctx, endpoint, o.header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", endpoint, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}

	return &Conn{
		ws:         ws,
		logger:     o.logger.With("endpoint", endpoint),
		farewell:   o.farewell,
		pingPeriod: o.pingPeriod,
		pongWait:   o.pingPeriod * 10 / 9,
		closing:    make(chan struct{}),
		done:       make(chan struct{}),
	}, nil
}

// Send writes one text message. After Close it is a silent no-op. A write
// failure on an open connection closes it and is returned.
func (c *Conn) Send(data []byte) error {
	c.writeMu.Lock()
	select {
	case <-c.closing:
		c.writeMu.Unlock()
		return nil
	default:
	}
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	err := c.ws.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()

	if err != nil {
		c.Close()
		return fmt.Errorf("%w: %v", ErrTransportClosed, err)
	}
	return nil
}

// Run reads messages and passes each to handler, one at a time and in
// arrival order, until the connection ends. It closes the connection on
// return. A normal closure, a cancelled ctx or a local Close yield nil.
func (c *Conn) Run(ctx context.Context, handler func([]byte)) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.readLoop(handler)
	})

	g.Go(func() error {
		return c.pingLoop(gctx)
	})

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-c.closing:
		}
		c.Close()
		return nil
	})

	return g.Wait()
}

func (c *Conn) readLoop(handler func([]byte)) error {
	defer c.Close()

	c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.isClosing() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("connection closed", "reason", err)
				return nil
			}
			c.logger.Warn("connection lost", "error", err)
			return fmt.Errorf("%w: %v", ErrTransportClosed, err)
		}
		c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
		handler(data)
	}
}

func (c *Conn) pingLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.closing:
			return nil
		case <-ticker.C:
			// WriteControl is safe alongside other writers.
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				if c.isClosing() {
					return nil
				}
				return fmt.Errorf("%w: ping: %v", ErrTransportClosed, err)
			}
		}
	}
}

// Close runs the release sequence exactly once: farewell, close frame,
// socket close. Later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		close(c.closing)
		deadline := time.Now().Add(writeWait)
		if c.farewell != nil {
			c.ws.SetWriteDeadline(deadline)
			if err := c.ws.WriteMessage(websocket.TextMessage, c.farewell); err != nil {
				c.logger.Debug("farewell not delivered", "error", err)
			}
		}
		c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.writeMu.Unlock()

		c.closeErr = c.ws.Close()
		close(c.done)
	})
	return c.closeErr
}

// Done is closed once the connection has been released
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) isClosing() bool {
	select {
	case <-c.closing:
		return true
	default:
		return false
	}
}

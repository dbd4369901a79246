// Package realtime is a Socket.IO client for the dashboard's push channel.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/zishang520/engine.io/v2/types"
	sio "github.com/zishang520/socket.io-client-go/socket"

	"heartwork/internal/service"
)

// Event names pushed by the server.
const (
	EventTaskUpdate = "taskUpdate"
	EventNewNote    = "newNote"
	EventNewGallery = "newGalleryImage"
)

// Reasons the library reports for a disconnect.
const (
	reasonClient = "io client disconnect"
	reasonServer = "io server disconnect"
)

// ErrClosed is returned when using a closed client.
var ErrClosed = errors.New("realtime client closed")

// Options configures a Client.
type Options struct {
	// Token is sent in the CONNECT auth payload when non-empty.
	Token string

	ReconnectAttempts int
	ReconnectDelay    time.Duration
	DialTimeout       time.Duration

	Log zerolog.Logger
}

// Client wraps a Socket.IO socket on the default namespace. The socket
// reconnects on its own after a dropped connection; Done reports when it
// stopped trying.
type Client struct {
	origin string
	path   string
	opts   Options
	log    zerolog.Logger

	mu       sync.Mutex
	handlers map[string]map[int]func(json.RawMessage)
	bound    map[string]bool
	nextID   int
	sock     *sio.Socket
	started  bool
	closed   bool
	err      error

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a client for the server at serverURL (http, https, ws or wss).
func New(serverURL string, opts Options) (*Client, error) {
	origin, path, err := socketURL(serverURL)
	if err != nil {
		return nil, err
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = time.Second
	}
	return &Client{
		origin:   origin,
		path:     path,
		opts:     opts,
		log:      opts.Log,
		handlers: make(map[string]map[int]func(json.RawMessage)),
		bound:    make(map[string]bool),
		done:     make(chan struct{}),
	}, nil
}

// socketURL splits serverURL into the origin the socket dials and the
// Engine.IO path under it. The URL path would otherwise select a namespace.
func socketURL(serverURL string) (origin, path string, err error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "http"
	case "https", "wss":
		u.Scheme = "https"
	default:
		return "", "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}
	path = strings.TrimSuffix(u.Path, "/") + "/socket.io"
	u.Path, u.RawPath, u.RawQuery, u.Fragment = "", "", "", ""
	return u.String(), path, nil
}

// URL returns the origin and Engine.IO path the client connects to.
func (c *Client) URL() string {
	return c.origin + c.path + "/"
}

// On registers fn for an event and returns a function removing only that
// registration. fn receives the event's first argument as JSON.
func (c *Client) On(event string, fn func(payload json.RawMessage)) (off func()) {
	c.mu.Lock()
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[int]func(json.RawMessage))
	}
	id := c.nextID
	c.nextID++
	c.handlers[event][id] = fn
	sock := c.sock
	bind := sock != nil && !c.bound[event]
	if bind {
		c.bound[event] = true
	}
	c.mu.Unlock()

	if bind {
		sock.On(types.EventName(event), c.listener(event))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.handlers[event], id)
		})
	}
}

// Connect opens the socket and waits for the server to accept it. A rejected
// token is reported as service.ErrUnauthorized.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return errors.New("realtime client already connected")
	}
	c.started = true
	c.mu.Unlock()

	sock, err := sio.Io(c.origin, c.socketOptions())
	if err != nil {
		return fmt.Errorf("creating socket: %w", err)
	}

	result := make(chan error, 1)
	settle := func(err error) {
		select {
		case result <- err:
		default:
		}
	}
	sock.On("connect", func(...any) {
		c.log.Debug().Str("url", c.URL()).Msg("realtime connected")
		settle(nil)
	})
	sock.On("connect_error", func(args ...any) {
		settle(connectError(sock, args))
	})
	sock.On("disconnect", func(args ...any) {
		c.onDisconnect(sock, args)
	})
	c.watchManager(sock.Io())

	c.mu.Lock()
	c.sock = sock
	events := make([]string, 0, len(c.handlers))
	for event := range c.handlers {
		if !c.bound[event] {
			c.bound[event] = true
			events = append(events, event)
		}
	}
	c.mu.Unlock()
	for _, event := range events {
		sock.On(types.EventName(event), c.listener(event))
	}

	sock.Connect()

	ctx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()
	select {
	case err := <-result:
		if err != nil {
			sock.Disconnect()
			return err
		}
	case <-ctx.Done():
		sock.Disconnect()
		return fmt.Errorf("connecting to %s: %w: %v", c.origin, service.ErrNetwork, ctx.Err())
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		sock.Disconnect()
		return ErrClosed
	}
	return nil
}

func (c *Client) socketOptions() *sio.Options {
	opts := sio.DefaultOptions()
	opts.SetTransports(types.NewSet(sio.WebSocket))
	opts.SetPath(c.path)
	opts.SetForceNew(true)
	opts.SetAutoConnect(false)
	opts.SetTimeout(c.opts.DialTimeout)

	opts.SetReconnection(c.opts.ReconnectAttempts > 0)
	opts.SetReconnectionAttempts(float64(c.opts.ReconnectAttempts))
	delay := float64(c.opts.ReconnectDelay.Milliseconds())
	opts.SetReconnectionDelay(delay)
	opts.SetReconnectionDelayMax(5 * delay)

	if c.opts.Token != "" {
		opts.SetAuth(map[string]any{"token": c.opts.Token})
	}
	return opts
}

// watchManager logs reconnection progress and stops the client when the
// manager gives up.
func (c *Client) watchManager(m *sio.Manager) {
	var mu sync.Mutex
	var lastErr error

	m.On("reconnect_attempt", func(args ...any) {
		c.log.Info().Interface("attempt", first(args)).Msg("realtime reconnecting")
	})
	m.On("reconnect_error", func(args ...any) {
		err, _ := first(args).(error)
		mu.Lock()
		lastErr = err
		mu.Unlock()
	})
	m.On("reconnect", func(...any) {
		c.log.Info().Msg("realtime reconnected")
	})
	m.On("reconnect_failed", func(...any) {
		mu.Lock()
		err := lastErr
		mu.Unlock()
		if err == nil {
			err = errors.New("server unreachable")
		}
		c.stop(fmt.Errorf("giving up after %d attempts: %w: %v", c.opts.ReconnectAttempts, service.ErrNetwork, err))
	})
}

// onDisconnect stops the client when the socket will not come back on its own.
func (c *Client) onDisconnect(sock *sio.Socket, args []any) {
	reason, _ := first(args).(string)
	if reason == reasonClient {
		return
	}
	c.log.Warn().Str("reason", reason).Msg("realtime connection lost")

	switch {
	case reason == reasonServer || !sock.Active():
		c.stop(fmt.Errorf("server disconnected the socket: %w", service.ErrNetwork))
	case c.opts.ReconnectAttempts <= 0:
		c.stop(fmt.Errorf("%s: %w", reason, service.ErrNetwork))
	}
}

// listener adapts library arguments to a JSON payload and acknowledges the
// event when the server asked for it.
func (c *Client) listener(event string) func(...any) {
	return func(args ...any) {
		var ack func([]any, error)
		if n := len(args); n > 0 {
			if fn, ok := args[n-1].(func([]any, error)); ok {
				ack = fn
				args = args[:n-1]
			}
		}

		var payload json.RawMessage
		if len(args) > 0 {
			b, err := json.Marshal(args[0])
			if err != nil {
				c.log.Warn().Err(err).Str("event", event).Msg("dropping event")
				return
			}
			payload = b
		}
		c.dispatch(event, payload)

		if ack != nil {
			ack([]any{}, nil)
		}
	}
}

func (c *Client) dispatch(event string, payload json.RawMessage) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	fns := make([]func(json.RawMessage), 0, len(c.handlers[event]))
	for _, fn := range c.handlers[event] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	c.log.Debug().Str("event", event).Int("handlers", len(fns)).Msg("realtime event")
	for _, fn := range fns {
		fn(payload)
	}
}

// Emit sends an event with the given arguments.
func (c *Client) Emit(event string, args ...any) error {
	c.mu.Lock()
	sock := c.sock
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if sock == nil || !sock.Connected() {
		return errors.New("realtime client not connected")
	}
	return sock.Emit(event, args...)
}

// Done is closed once the client stops for good, after Close or when
// reconnecting gave up.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns why the client stopped, nil after a clean Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) stop(err error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.err = err
	c.mu.Unlock()

	c.log.Error().Err(err).Msg("realtime stopped")
	c.doneOnce.Do(func() { close(c.done) })
}

// Close disconnects and stops reconnecting. It is safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	sock := c.sock
	c.sock = nil
	c.mu.Unlock()

	if sock != nil {
		sock.Disconnect()
	}
	c.doneOnce.Do(func() { close(c.done) })
	return nil
}

// connectError classifies a connect_error. The library destroys the socket
// only when the server refused the CONNECT packet, so an inactive socket
// means the token was rejected.
func connectError(sock *sio.Socket, args []any) error {
	msg := "connection failed"
	switch v := first(args).(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	}
	if !sock.Active() {
		return fmt.Errorf("realtime: %s: %w", msg, service.ErrUnauthorized)
	}
	return fmt.Errorf("realtime: %s: %w", msg, service.ErrNetwork)
}

func first(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

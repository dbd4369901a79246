package commands

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"heartwork/internal/backend/heartapi"
	"heartwork/internal/config"
	"heartwork/internal/exitcode"
	"heartwork/internal/notify"
	"heartwork/internal/realtime"
	"heartwork/internal/service"
	"heartwork/internal/todo"
)

func init() {
	Register(&WatchCmd{})
}

// PushChannel is a connected push channel.
type PushChannel interface {
	todo.Channel
	Close() error
}

// ChannelFactory connects the push channel used by watch.
type ChannelFactory func(ctx context.Context, cfg *config.Config) (PushChannel, error)

// WatchCmd implements the watch command.
type WatchCmd struct {
	bell    bool
	channel ChannelFactory
}

// SetChannelFactory replaces the realtime connection (for testing).
func (c *WatchCmd) SetChannelFactory(f ChannelFactory) {
	c.channel = f
}

func (c *WatchCmd) Name() string      { return "watch" }
func (c *WatchCmd) Aliases() []string { return nil }
func (c *WatchCmd) Synopsis() string  { return "Follow the lists live until interrupted" }
func (c *WatchCmd) Usage() string     { return "heartwork watch [--bell]" }
func (c *WatchCmd) NeedsAuth() bool   { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.bell, "bell", false, "")
}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	out = &syncWriter{w: out}

	connect := c.channel
	if connect == nil {
		connect = dialRealtime
	}

	var push todo.Channel
	var dropped <-chan struct{}
	ch, err := connect(ctx, cfg)
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return report(errOut, err)
	case err != nil:
		fmt.Fprintf(errOut, "warning: live updates unavailable: %v\n", err)
	default:
		defer ch.Close()
		push = ch
		if d, ok := ch.(interface{ Done() <-chan struct{} }); ok {
			dropped = d.Done()
		}
	}

	ws := openWorkspace(cfg, svc)
	defer ws.close()
	for _, category := range cfg.Categories {
		ws.seed(category)
	}

	if push != nil {
		n := notify.New(out, c.bell, cfg.Log)
		n.Subscribe(push)
		defer n.Close()
	}

	session := todo.NewSession(ws.coord, push, cfg.Categories, cfg.SyncInterval, cfg.Log)
	if err := session.Start(ctx); err != nil {
		return report(errOut, err)
	}
	defer session.Close()

	updates, stop := ws.store().Watch()
	defer stop()

	letters := CategoryLetters(cfg.Categories)
	show := func(categories ...string) {
		var buf bytes.Buffer
		for _, category := range categories {
			printCategory(&buf, category, letters[category], ws.store().Tasks(category))
			if err := ws.store().Err(category); err != nil {
				fmt.Fprintf(&buf, "error: %v\n", err)
			} else {
				ws.save(category)
			}
		}
		out.Write(buf.Bytes())
	}
	show(cfg.Categories...)

	for {
		select {
		case <-ctx.Done():
			return exitcode.Success
		case <-dropped:
			dropped = nil
			if e, ok := ch.(interface{ Err() error }); ok && e.Err() != nil {
				fmt.Fprintf(errOut, "warning: live updates stopped: %v\n", e.Err())
			}
		case category, ok := <-updates:
			if !ok {
				return exitcode.Success
			}
			changed := []string{category}
			// Coalesce a burst of changes into one redraw
		drain:
			for {
				select {
				case more, ok := <-updates:
					if !ok {
						break drain
					}
					if !contains(changed, more) {
						changed = append(changed, more)
					}
				default:
					break drain
				}
			}
			show(changed...)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// dialRealtime connects to the server's Socket.IO endpoint with the stored token.
func dialRealtime(ctx context.Context, cfg *config.Config) (PushChannel, error) {
	var token string
	if tok, err := heartapi.LoadToken(cfg.TokenPath()); err == nil {
		token = tok.AccessToken
	}

	client, err := realtime.New(cfg.ServerURL, realtime.Options{
		Token:             token,
		ReconnectAttempts: cfg.ReconnectAttempts,
		ReconnectDelay:    cfg.ReconnectDelay,
		DialTimeout:       cfg.DialTimeout,
		Log:               cfg.Log,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Connect(ctx); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"heartwork/internal/backend/heartapi"
	"heartwork/internal/config"
	"heartwork/internal/exitcode"
	"heartwork/internal/service"
)

func init() {
	Register(&StatusCmd{})
}

// pinger is implemented by backends with a health endpoint.
type pinger interface {
	Ping(ctx context.Context) (string, error)
}

// StatusCmd implements the status command.
type StatusCmd struct{}

func (c *StatusCmd) Name() string      { return "status" }
func (c *StatusCmd) Aliases() []string { return []string{"whoami"} }
func (c *StatusCmd) Synopsis() string  { return "Show the logged-in user and server" }
func (c *StatusCmd) Usage() string     { return "heartwork status [common flags]" }
func (c *StatusCmd) NeedsAuth() bool   { return true }

func (c *StatusCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatusCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	user, err := svc.Verify(ctx)
	if err != nil {
		return report(errOut, err)
	}

	fmt.Fprintf(out, "logged in as %s\n", user.Username)
	fmt.Fprintf(out, "server: %s\n", cfg.ServerURL)
	if p, ok := svc.(pinger); ok {
		if msg, err := p.Ping(ctx); err == nil && msg != "" {
			fmt.Fprintf(out, "server says: %s\n", msg)
		}
	}
	if tok, err := heartapi.LoadToken(cfg.TokenPath()); err == nil && !tok.Expiry.IsZero() {
		fmt.Fprintf(out, "token expires: %s\n", tok.Expiry.Local().Format("2006-01-02 15:04"))
	}
	return exitcode.Success
}

package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"heartwork/internal/config"
	"heartwork/internal/exitcode"
	"heartwork/internal/service"
	"heartwork/internal/todo"
)

func init() {
	Register(&ResetCmd{})
}

// ResetCmd implements the reset command.
type ResetCmd struct {
	category string
}

// SetCategory sets the category (for testing).
func (c *ResetCmd) SetCategory(name string) {
	c.category = name
}

func (c *ResetCmd) Name() string      { return "reset" }
func (c *ResetCmd) Aliases() []string { return nil }
func (c *ResetCmd) Synopsis() string  { return "Recreate the daily tasks now" }
func (c *ResetCmd) Usage() string     { return "heartwork reset [--category <name>]" }
func (c *ResetCmd) NeedsAuth() bool   { return true }

func (c *ResetCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
}

func (c *ResetCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	categories, err := selectCategories(cfg, c.category)
	if err != nil {
		return report(errOut, err)
	}

	ws := openWorkspace(cfg, svc)
	defer ws.close()

	for _, category := range categories {
		_, err := ws.sync(ctx, category, true)
		switch {
		case err == nil:
		case errors.Is(err, todo.ErrResetFailed) && !errors.Is(err, service.ErrUnauthorized):
			fmt.Fprintf(errOut, "error: backend error: could not reset %s, will retry on next sync\n", category)
			return exitcode.BackendError
		default:
			return report(errOut, err)
		}
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"heartwork/internal/config"
	"heartwork/internal/exitcode"
	"heartwork/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	category string
}

// SetCategory sets the category (for testing).
func (c *AddCmd) SetCategory(name string) {
	c.category = name
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Add a task" }
func (c *AddCmd) Usage() string     { return "heartwork add [--category <name>] <text...>" }
func (c *AddCmd) NeedsAuth() bool   { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(errOut, "error: task text required")
		return exitcode.UserError
	}

	category, err := targetCategory(cfg, c.category)
	if err != nil {
		return report(errOut, err)
	}

	ws := openWorkspace(cfg, svc)
	defer ws.close()

	if _, err := ws.coord.AddTask(ctx, text, category); err != nil {
		return report(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

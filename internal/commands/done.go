package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"heartwork/internal/config"
	"heartwork/internal/exitcode"
	"heartwork/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. Running it on a completed task
// reopens it.
type DoneCmd struct {
	category string
}

// SetCategory sets the category (for testing).
func (c *DoneCmd) SetCategory(name string) {
	c.category = name
}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string  { return "Toggle a task's completion" }
func (c *DoneCmd) Usage() string     { return "heartwork done [--category <name>] <ref>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	category, num, code, ok := resolveTaskArgs(cfg, c.category, args, errOut)
	if !ok {
		return code
	}

	ws := openWorkspace(cfg, svc)
	defer ws.close()

	task, found, err := ws.lookup(ctx, category, num)
	if err != nil {
		return report(errOut, err)
	}
	if !found {
		fmt.Fprintf(errOut, "error: task number out of range: %d\n", num)
		return exitcode.UserError
	}

	updated, err := ws.coord.ToggleComplete(ctx, task.ID)
	if err != nil {
		return report(errOut, err)
	}
	ws.save(category)

	if !cfg.Quiet {
		if updated.Completed {
			fmt.Fprintf(out, "done: %s\n", updated.Text)
		} else {
			fmt.Fprintf(out, "reopened: %s\n", updated.Text)
		}
	}
	return exitcode.Success
}

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
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	category string
}

// SetCategory sets the category (for testing).
func (c *RmCmd) SetCategory(name string) {
	c.category = name
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task (daily tasks cannot be deleted)" }
func (c *RmCmd) Usage() string     { return "heartwork rm [--category <name>] <ref>" }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
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

	if err := ws.coord.DeleteTask(ctx, task.ID); err != nil {
		return report(errOut, err)
	}
	ws.save(category)

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

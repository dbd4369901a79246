package commands

import (
	"context"
	"flag"
	"io"

	"heartwork/internal/config"
	"heartwork/internal/exitcode"
	"heartwork/internal/service"
)

func init() {
	Register(&TodosCmd{})
}

// TodosCmd implements the todos command.
// Handles both `heartwork` (no args) and `heartwork todos --category <name>`.
type TodosCmd struct {
	category string
}

// SetCategory sets the category (for testing).
func (c *TodosCmd) SetCategory(name string) {
	c.category = name
}

func (c *TodosCmd) Name() string      { return "todos" }
func (c *TodosCmd) Aliases() []string { return []string{"list", "ls"} }
func (c *TodosCmd) Synopsis() string  { return "Show the to-do lists, resetting daily tasks when due" }
func (c *TodosCmd) Usage() string     { return "heartwork todos [--category <name>]" }
func (c *TodosCmd) NeedsAuth() bool   { return true }

func (c *TodosCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.category, "c", "", "")
}

func (c *TodosCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	categories, err := selectCategories(cfg, c.category)
	if err != nil {
		return report(errOut, err)
	}

	ws := openWorkspace(cfg, svc)
	defer ws.close()

	letters := CategoryLetters(cfg.Categories)
	code := exitcode.Success
	for _, category := range categories {
		// A failed sync still prints the last known list
		tasks, err := ws.sync(ctx, category, false)
		printCategory(out, category, letters[category], tasks)
		if err != nil {
			if rc := report(errOut, err); code == exitcode.Success {
				code = rc
			}
		}
	}
	return code
}

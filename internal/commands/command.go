// Package commands implements the heartwork subcommands. Each file registers
// its commands with DefaultRegistry from init.
package commands

import (
	"context"
	"flag"
	"io"

	"heartwork/internal/config"
	"heartwork/internal/service"
)

// Command is one CLI subcommand.
type Command interface {
	// Name is the primary command name.
	Name() string

	// Aliases are alternative names.
	Aliases() []string

	// Synopsis is the one-line help text.
	Synopsis() string

	// Usage is the usage line for help output.
	Usage() string

	// NeedsAuth reports whether Run needs a logged-in Service.
	NeedsAuth() bool

	// RegisterFlags adds command-specific flags to fs.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command with its positional args and returns the exit
	// code. cfg is always set; svc is nil when NeedsAuth is false.
	Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int
}

var (
	_ Command = (*TodosCmd)(nil)
	_ Command = (*AddCmd)(nil)
	_ Command = (*DoneCmd)(nil)
	_ Command = (*RmCmd)(nil)
	_ Command = (*ResetCmd)(nil)
	_ Command = (*WatchCmd)(nil)
	_ Command = (*NotesCmd)(nil)
	_ Command = (*GalleryCmd)(nil)
	_ Command = (*LoginCmd)(nil)
	_ Command = (*StatusCmd)(nil)
)

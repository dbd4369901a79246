package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"heartwork/internal/config"
	"heartwork/internal/exitcode"
	"heartwork/internal/output"
	"heartwork/internal/service"
)

func init() {
	Register(&NotesCmd{})
	Register(&AddNoteCmd{})
	Register(&EditNoteCmd{})
	Register(&RmNoteCmd{})
}

// NotesCmd implements the notes command.
type NotesCmd struct{}

func (c *NotesCmd) Name() string      { return "notes" }
func (c *NotesCmd) Aliases() []string { return nil }
func (c *NotesCmd) Synopsis() string  { return "List sticky notes" }
func (c *NotesCmd) Usage() string     { return "heartwork notes" }
func (c *NotesCmd) NeedsAuth() bool   { return true }

func (c *NotesCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *NotesCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	notes, err := svc.ListNotes(ctx)
	if err != nil {
		return report(errOut, err)
	}
	if len(notes) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no notes")
		}
		return exitcode.Success
	}
	for i, n := range notes {
		output.FormatNote(out, i+1, n)
	}
	return exitcode.Success
}

// AddNoteCmd implements the addnote command.
type AddNoteCmd struct{}

func (c *AddNoteCmd) Name() string      { return "addnote" }
func (c *AddNoteCmd) Aliases() []string { return nil }
func (c *AddNoteCmd) Synopsis() string  { return "Leave a sticky note" }
func (c *AddNoteCmd) Usage() string     { return "heartwork addnote <text...>" }
func (c *AddNoteCmd) NeedsAuth() bool   { return true }

func (c *AddNoteCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *AddNoteCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		fmt.Fprintln(errOut, "error: note text required")
		return exitcode.UserError
	}
	if _, err := svc.CreateNote(ctx, text); err != nil {
		return report(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// EditNoteCmd implements the editnote command.
type EditNoteCmd struct{}

func (c *EditNoteCmd) Name() string      { return "editnote" }
func (c *EditNoteCmd) Aliases() []string { return nil }
func (c *EditNoteCmd) Synopsis() string  { return "Replace the text of a sticky note" }
func (c *EditNoteCmd) Usage() string     { return "heartwork editnote <n> <text...>" }
func (c *EditNoteCmd) NeedsAuth() bool   { return true }

func (c *EditNoteCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *EditNoteCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: note number required")
		return exitcode.UserError
	}
	text := strings.TrimSpace(strings.Join(args[1:], " "))
	if text == "" {
		fmt.Fprintln(errOut, "error: note text required")
		return exitcode.UserError
	}

	note, code, ok := findNote(ctx, svc, args[0], errOut)
	if !ok {
		return code
	}
	if _, err := svc.UpdateNote(ctx, note.ID, text); err != nil {
		return report(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// RmNoteCmd implements the rmnote command.
type RmNoteCmd struct{}

func (c *RmNoteCmd) Name() string      { return "rmnote" }
func (c *RmNoteCmd) Aliases() []string { return nil }
func (c *RmNoteCmd) Synopsis() string  { return "Delete a sticky note" }
func (c *RmNoteCmd) Usage() string     { return "heartwork rmnote <n>" }
func (c *RmNoteCmd) NeedsAuth() bool   { return true }

func (c *RmNoteCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmNoteCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: note number required")
		return exitcode.UserError
	}
	note, code, ok := findNote(ctx, svc, args[0], errOut)
	if !ok {
		return code
	}
	if err := svc.DeleteNote(ctx, note.ID); err != nil {
		return report(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// findNote resolves a 1-based note number, printing any error.
func findNote(ctx context.Context, svc service.Service, arg string, errOut io.Writer) (service.Note, int, bool) {
	num, err := parseNumber(arg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return service.Note{}, exitcode.UserError, false
	}
	notes, err := svc.ListNotes(ctx)
	if err != nil {
		return service.Note{}, report(errOut, err), false
	}
	if num > len(notes) {
		fmt.Fprintf(errOut, "error: note number out of range: %d\n", num)
		return service.Note{}, exitcode.UserError, false
	}
	return notes[num-1], exitcode.Success, true
}

// parseNumber parses a positive 1-based item number.
func parseNumber(s string) (int, error) {
	if !isAllDigits(s) {
		return 0, fmt.Errorf("invalid number: %s", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid number: %s", s)
	}
	return n, nil
}

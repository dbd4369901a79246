package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"heartwork/internal/config"
	"heartwork/internal/exitcode"
	"heartwork/internal/output"
	"heartwork/internal/service"
)

func init() {
	Register(&GalleryCmd{})
	Register(&UploadCmd{})
	Register(&RmImageCmd{})
}

// GalleryCmd implements the gallery command.
type GalleryCmd struct{}

func (c *GalleryCmd) Name() string      { return "gallery" }
func (c *GalleryCmd) Aliases() []string { return []string{"photos"} }
func (c *GalleryCmd) Synopsis() string  { return "List gallery photos" }
func (c *GalleryCmd) Usage() string     { return "heartwork gallery" }
func (c *GalleryCmd) NeedsAuth() bool   { return true }

func (c *GalleryCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *GalleryCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	images, err := svc.ListImages(ctx)
	if err != nil {
		return report(errOut, err)
	}
	if len(images) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no photos")
		}
		return exitcode.Success
	}
	for i, img := range images {
		output.FormatImage(out, i+1, img)
	}
	return exitcode.Success
}

// UploadCmd implements the upload command.
type UploadCmd struct{}

func (c *UploadCmd) Name() string      { return "upload" }
func (c *UploadCmd) Aliases() []string { return nil }
func (c *UploadCmd) Synopsis() string  { return "Upload a photo (images up to 5MB)" }
func (c *UploadCmd) Usage() string     { return "heartwork upload <file>" }
func (c *UploadCmd) NeedsAuth() bool   { return true }

func (c *UploadCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UploadCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: exactly one file required")
		return exitcode.UserError
	}

	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	defer f.Close()

	img, err := svc.UploadImage(ctx, filepath.Base(args[0]), f)
	if err != nil {
		return report(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "ok %s\n", img.URL)
	}
	return exitcode.Success
}

// RmImageCmd implements the rmimage command.
type RmImageCmd struct{}

func (c *RmImageCmd) Name() string      { return "rmimage" }
func (c *RmImageCmd) Aliases() []string { return nil }
func (c *RmImageCmd) Synopsis() string  { return "Delete a gallery photo" }
func (c *RmImageCmd) Usage() string     { return "heartwork rmimage <n>" }
func (c *RmImageCmd) NeedsAuth() bool   { return true }

func (c *RmImageCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *RmImageCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: photo number required")
		return exitcode.UserError
	}
	num, err := parseNumber(args[0])
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}

	images, err := svc.ListImages(ctx)
	if err != nil {
		return report(errOut, err)
	}
	if num > len(images) {
		fmt.Fprintf(errOut, "error: photo number out of range: %d\n", num)
		return exitcode.UserError
	}

	if err := svc.DeleteImage(ctx, images[num-1].ID); err != nil {
		return report(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

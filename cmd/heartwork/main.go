// Package main is the entry point for the heartwork CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"heartwork/internal/backend/heartapi"
	"heartwork/internal/cli"
	"heartwork/internal/commands"
	"heartwork/internal/config"
	"heartwork/internal/service"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		c, err := heartapi.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)

	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}

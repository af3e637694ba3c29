package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"grain-orders/internal/adapters/cli"
	"grain-orders/internal/app"
	"grain-orders/internal/config"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit code: 2 for usage and configuration errors, 1 for failed commands.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, cli.Usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 2
	}
	// Keep stdout for tables; log to stderr at warn and above unless LOG_LEVEL says otherwise.
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	logger := config.NewLogger(cfg)
	logger.SetOutput(stderr)

	svc, cleanup, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("startup failed")
		return 1
	}
	defer cleanup()

	if err := cli.Run(ctx, svc, args, stdout); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	return 0
}

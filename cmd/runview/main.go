package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/roach88/runview/internal/cli"
)

func main() {
	// Commands install their own logger; this covers anything before that.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

package main

import (
	"log/slog"
	"os"

	"go.olrik.dev/autodisplay/cmd"
)

func main() {
	root := cmd.NewRootCommand()
	if err := root.Execute(); err != nil {
		slog.Error("autodisplay stopped", "error", err)
		os.Exit(1)
	}
}

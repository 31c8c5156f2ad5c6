package main

import (
	"log/slog"
	"os"

	"github.com/nverno/inf-perl/internal/cli"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))
	cli.Execute()
}

package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmault/buscope/internal/display"
	"github.com/jmault/buscope/internal/log"
)

// Tree draws the profiled topology bus by bus, devices nested under the
// hub they hang off.
type Tree struct {
	Source  SourceConfig  `embed:""`
	Query   QueryConfig   `embed:""`
	Display DisplayConfig `embed:""`
}

// Run is called by Kong when the tree command is executed.
func (t *Tree) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := t.Source.Profile(ctx, logger, rawLogger)
	if err != nil {
		return err
	}
	if err := t.Query.Apply(p); err != nil {
		return err
	}
	r := display.New(os.Stdout, t.Display.Settings(true, t.Query.Group), t.Display.Names(logger))
	return r.Render(p)
}

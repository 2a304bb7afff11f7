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

// List prints profiled devices as a flat table, one line per device.
type List struct {
	Source  SourceConfig  `embed:""`
	Query   QueryConfig   `embed:""`
	Display DisplayConfig `embed:""`
}

// Run is called by Kong when the list command is executed.
func (l *List) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := l.Source.Profile(ctx, logger, rawLogger)
	if err != nil {
		return err
	}
	if err := l.Query.Apply(p); err != nil {
		return err
	}
	r := display.New(os.Stdout, l.Display.Settings(false, l.Query.Group), l.Display.Names(logger))
	return r.Render(p)
}

package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmault/buscope/internal/log"
	"github.com/jmault/buscope/internal/watch"
)

// Watch redraws the topology whenever a device connects or disconnects,
// with a short event history under the tree. On Linux the trigger is a
// kernel uevent socket; elsewhere, and as a fallback, periodic polling.
type Watch struct {
	Source  SourceConfig  `embed:""`
	Query   QueryConfig   `embed:""`
	Display DisplayConfig `embed:""`

	Poll     bool          `help:"Poll on a timer instead of listening for kernel events"`
	Interval time.Duration `help:"Poll interval" default:"2s" env:"BUSCOPE_INTERVAL"`
}

// Run is called by Kong when the watch command is executed.
func (w *Watch) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watcher := &watch.Watcher{
		Opts:      w.Source.Options(logger, rawLogger),
		Settings:  w.Display.Settings(true, w.Query.Group),
		Names:     w.Display.Names(logger),
		Interval:  w.Interval,
		Logger:    logger,
		Out:       os.Stdout,
		In:        os.Stdin,
		Transform: w.Query.Apply,
	}
	if w.Poll {
		watcher.Source = &watch.PollSource{Interval: w.Interval}
	}
	return watcher.Run(ctx)
}

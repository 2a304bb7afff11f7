package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmault/buscope/internal/configpaths"
	"github.com/jmault/buscope/internal/log"
	"github.com/jmault/buscope/profile"
)

// Dump serializes the profiled tree, diagnostics and provenance included,
// so a later run can re-profile it with --from-json.
type Dump struct {
	Source SourceConfig `embed:""`
	Query  QueryConfig  `embed:""`

	Format string `help:"Serialization format" enum:"json,yaml" default:"json"`
	Output string `help:"Destination file (default: stdout)" short:"o"`
}

// Run is called by Kong when the dump command is executed.
func (d *Dump) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := d.Source.Profile(ctx, logger, rawLogger)
	if err != nil {
		return err
	}
	if err := d.Query.Apply(p); err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if d.Output != "" {
		if err := configpaths.EnsureDir(d.Output); err != nil {
			return err
		}
		f, err := os.Create(d.Output)
		if err != nil {
			return fmt.Errorf("creating dump file: %w", err)
		}
		defer f.Close()
		out = f
	}

	switch d.Format {
	case "yaml":
		err = profile.EncodeYAML(out, p)
	default:
		err = profile.EncodeJSON(out, p)
	}
	if err != nil {
		return err
	}
	if d.Output != "" {
		logger.Info("Wrote profile dump", "path", d.Output, "format", d.Format, "devices", p.Len())
	}
	return nil
}

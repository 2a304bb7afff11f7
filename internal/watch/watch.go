// Package watch re-profiles the buses whenever devices come or go and
// redraws the result. On Linux change notifications come from kernel
// uevents over a netlink socket; everywhere else (and when the socket is
// unavailable) a timer triggers periodic re-profiling. Every notification
// runs a full pass: the displayed tree is rebuilt, never mutated.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/jmault/buscope/internal/display"
	"github.com/jmault/buscope/profile"
	"github.com/jmault/buscope/profiler"
	"github.com/jmault/buscope/usbids"
)

// Source delivers coarse change notifications. Implementations send on
// notify whenever the bus population may have changed and coalesce
// bursts; the watcher re-profiles once per notification.
type Source interface {
	Name() string
	Watch(ctx context.Context, notify chan<- struct{}) error
}

// PollSource re-profiles on a fixed interval. It is the portable fallback
// and the last resort when the platform source fails.
type PollSource struct {
	Interval time.Duration
}

func (s *PollSource) Name() string { return "poll" }

func (s *PollSource) Watch(ctx context.Context, notify chan<- struct{}) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			select {
			case notify <- struct{}{}:
			default:
			}
		}
	}
}

// Watcher owns one watch session: a notification source, the profiling
// pass options and the render settings.
type Watcher struct {
	Opts     profiler.Options
	Settings display.Settings
	Names    *usbids.DB
	// Source overrides the platform default when set.
	Source Source
	// Interval tunes the polling fallback.
	Interval time.Duration
	Logger   *slog.Logger
	Out      *os.File
	// In is read for quit keys when it is a terminal; nil disables key
	// handling.
	In *os.File
	// Transform is applied to every freshly profiled tree before it is
	// diffed and drawn. Filtering and sorting hook in here.
	Transform func(*profile.Profile) error

	maxEvents int
	events    []profile.Event
}

func (w *Watcher) pass(ctx context.Context) (*profile.Profile, error) {
	p, err := profiler.Run(ctx, w.Opts)
	if err != nil {
		return nil, err
	}
	if w.Transform != nil {
		if err := w.Transform(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Run blocks until the user quits or ctx is canceled. The first profiling
// pass must succeed; later failing passes keep the previous picture on
// screen and are logged.
func (w *Watcher) Run(ctx context.Context) error {
	if w.Logger == nil {
		w.Logger = slog.Default()
	}
	if w.maxEvents == 0 {
		w.maxEvents = 8
	}
	// The renderer sees a wrapping writer, so resolve the terminal width
	// from the real file up front.
	if w.Settings.Width == 0 && w.Out != nil {
		if fd := int(w.Out.Fd()); term.IsTerminal(fd) {
			if width, _, err := term.GetSize(fd); err == nil {
				w.Settings.Width = width
			}
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := io.Writer(w.Out)
	if w.In != nil && term.IsTerminal(int(w.In.Fd())) {
		oldState, err := term.MakeRaw(int(w.In.Fd()))
		if err != nil {
			return fmt.Errorf("entering raw mode: %w", err)
		}
		defer term.Restore(int(w.In.Fd()), oldState)
		go w.readKeys(ctx, cancel)
		// Raw mode stops the tty translating newlines.
		out = &crlfWriter{w: w.Out}
	}

	notify := make(chan struct{}, 1)
	go w.watchSource(ctx, notify)

	current, err := w.pass(ctx)
	if err != nil {
		return err
	}
	w.redraw(out, current)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-notify:
			next, err := w.pass(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				var nse *profiler.NoSourceError
				if errors.As(err, &nse) {
					w.Logger.Warn("Profiling pass produced no data, keeping previous tree", "error", err)
					continue
				}
				return err
			}
			w.recordEvents(profile.Diff(current, next, time.Now()))
			current = next
			w.redraw(out, current)
		}
	}
}

func (w *Watcher) watchSource(ctx context.Context, notify chan struct{}) {
	src := w.Source
	if src == nil {
		src = defaultSource(w.Interval)
	}
	err := src.Watch(ctx, notify)
	if err == nil || ctx.Err() != nil {
		return
	}
	w.Logger.Warn("Watch source failed, falling back to polling", "source", src.Name(), "error", err)
	if _, isPoll := src.(*PollSource); !isPoll {
		_ = (&PollSource{Interval: w.Interval}).Watch(ctx, notify)
	}
}

// readKeys cancels the session on q, Esc or Ctrl-C. In raw mode Ctrl-C
// arrives as a plain byte, not a signal.
func (w *Watcher) readKeys(ctx context.Context, cancel context.CancelFunc) {
	buf := make([]byte, 1)
	for {
		n, err := w.In.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		switch buf[0] {
		case 'q', 'Q', 0x1b, 0x03:
			cancel()
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (w *Watcher) recordEvents(events []profile.Event) {
	w.events = append(w.events, events...)
	if len(w.events) > w.maxEvents {
		w.events = w.events[len(w.events)-w.maxEvents:]
	}
}

func (w *Watcher) redraw(out io.Writer, p *profile.Profile) {
	fmt.Fprint(out, "\x1b[2J\x1b[H")
	if err := display.New(out, w.Settings, w.Names).Render(p); err != nil {
		w.Logger.Error("Render failed", "error", err)
		return
	}
	fmt.Fprintln(out)
	for _, e := range w.events {
		fmt.Fprintf(out, "%s %-12s %s\n", e.Time.Format("15:04:05"), e.Kind, e.Device.Summary())
	}
	fmt.Fprintln(out, "watching... press q to quit")
}

// crlfWriter rewrites bare newlines as CRLF for a terminal in raw mode.
type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	s := strings.ReplaceAll(string(p), "\n", "\r\n")
	if _, err := c.w.Write([]byte(s)); err != nil {
		return 0, err
	}
	return len(p), nil
}

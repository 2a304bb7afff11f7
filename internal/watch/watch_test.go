package watch_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jmault/buscope/internal/watch"
	"github.com/jmault/buscope/profile"
	"github.com/jmault/buscope/profiler"
)

func TestPollSourceNotifies(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	notify := make(chan struct{}, 1)
	src := &watch.PollSource{Interval: 10 * time.Millisecond}
	go func() { _ = src.Watch(ctx, notify) }()

	select {
	case <-notify:
	case <-ctx.Done():
		t.Fatal("poll source never notified")
	}
}

type countingBackend struct {
	name   string
	passes *atomic.Int32
}

func (b *countingBackend) Name() string { return b.name }

func (b *countingBackend) Enumerate(context.Context) (*profiler.Enumeration, error) {
	b.passes.Add(1)
	return &profiler.Enumeration{
		Devices: []profiler.RawDevice{
			{Bus: 1, Address: 1, Record: profile.Device{Name: "xHCI Host Controller"}},
		},
	}, nil
}

type stubSource struct {
	fire chan struct{}
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Watch(ctx context.Context, notify chan<- struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.fire:
			select {
			case notify <- struct{}{}:
			default:
			}
		}
	}
}

func TestWatcherReprofilesOnNotify(t *testing.T) {
	var passes atomic.Int32
	profiler.RegisterBackend(&countingBackend{name: "fake-watch", passes: &passes})

	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if !assert.NoError(t, err) {
		return
	}
	defer devnull.Close()

	fire := make(chan struct{}, 1)
	w := &watch.Watcher{
		Opts:   profiler.Options{Backends: []string{"fake-watch"}},
		Source: &stubSource{fire: fire},
		Out:    devnull,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	if !assert.Eventually(t, func() bool { return passes.Load() >= 1 }, time.Second, 10*time.Millisecond) {
		return
	}
	fire <- struct{}{}
	assert.Eventually(t, func() bool { return passes.Load() >= 2 }, time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}


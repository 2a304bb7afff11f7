// Package profiler runs profiling passes. A pass asks each enumeration
// backend for its raw view of the buses, decodes descriptor blobs, builds
// a per-backend tree and reconciles the trees into one canonical profile.
// Backends run sequentially; a failing backend degrades the pass, and only
// a pass in which no backend produced data fails outright.
package profiler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jmault/buscope/internal/log"
	"github.com/jmault/buscope/profile"
)

// RawDevice is one device as a backend saw it: an optional raw descriptor
// blob plus a partial record with whatever structured metadata the backend
// natively knows. Fields decoded from the blob overwrite the corresponding
// record fields during the decode step.
type RawDevice struct {
	Bus     int
	Address int
	// PortPath is nil for backends that cannot see topology.
	PortPath []int
	// Descriptors is a concatenated device-plus-configurations blob in bus
	// order, as read from a usbfs node or the sysfs descriptors attribute.
	Descriptors []byte
	// Record carries backend-native metadata (names, driver, speed, ...).
	// The placement fields above take precedence over its copies of them.
	Record profile.Device
}

// Enumeration is the complete product of one backend scan.
type Enumeration struct {
	Buses   []*profile.Bus
	Devices []RawDevice
}

// Backend is one source of enumeration data. Enumerate performs a full
// scan when called; the core calls it once per pass and never re-enters a
// backend mid-pipeline.
type Backend interface {
	Name() string
	Enumerate(ctx context.Context) (*Enumeration, error)
}

var (
	backendRegistry = make(map[string]Backend)
	backendOrder    []string
	backendMu       sync.RWMutex
)

// Default pass order: the OS-native view first, then raw descriptors.
func init() {
	RegisterBackend(NewSysfsBackend())
	RegisterBackend(NewDevfsBackend())
}

// RegisterBackend registers a backend for use in profiling passes. This is
// called from init functions; re-registering a name replaces the backend
// but keeps its position in the default run order.
func RegisterBackend(b Backend) {
	backendMu.Lock()
	defer backendMu.Unlock()
	name := b.Name()
	if _, exists := backendRegistry[name]; !exists {
		backendOrder = append(backendOrder, name)
	}
	backendRegistry[name] = b
}

// GetBackend retrieves a registered backend by name. Returns nil if not
// found.
func GetBackend(name string) Backend {
	backendMu.RLock()
	defer backendMu.RUnlock()
	return backendRegistry[name]
}

// BackendNames returns the registered backend names in registration order.
func BackendNames() []string {
	backendMu.RLock()
	defer backendMu.RUnlock()
	names := make([]string, len(backendOrder))
	copy(names, backendOrder)
	return names
}

// BackendError wraps a backend failure with the backend's name.
type BackendError struct {
	Backend string
	Err     error
}

func (e *BackendError) Error() string { return e.Backend + ": " + e.Err.Error() }
func (e *BackendError) Unwrap() error { return e.Err }

// NoSourceError is the fatal outcome of a pass in which every backend
// failed to enumerate. It names the backends that were attempted.
type NoSourceError struct {
	Attempted []string
	Failures  []*BackendError
}

func (e *NoSourceError) Error() string {
	var sb strings.Builder
	sb.WriteString("no usable enumeration source (attempted ")
	sb.WriteString(strings.Join(e.Attempted, ", "))
	sb.WriteString(")")
	for _, f := range e.Failures {
		sb.WriteString("\n  ")
		sb.WriteString(f.Error())
	}
	return sb.String()
}

// Options selects and tunes the backends of a profiling pass.
type Options struct {
	// Backends to run, in order. Empty runs every registered backend.
	Backends []string
	// FromJSON substitutes a profile dump file for live enumeration.
	FromJSON string
	Policy   profile.MergePolicy
	Logger   *slog.Logger
	// RawLog, when set, receives a hex dump of every descriptor blob a
	// backend reads, before decoding.
	RawLog log.RawLogger
}

// Run performs one profiling pass and returns the canonical profile.
// Backend failures are downgraded to diagnostics; only a pass where no
// backend produced any data returns an error (a NoSourceError).
func Run(ctx context.Context, opts Options) (*profile.Profile, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	backends, err := selectBackends(opts)
	if err != nil {
		return nil, err
	}

	var (
		trees     []profile.BackendTree
		diags     []profile.Diagnostic
		failures  []*BackendError
		attempted []string
	)
	for _, b := range backends {
		// A pass is all or nothing: once the caller's deadline hits,
		// partial results must not masquerade as a canonical profile.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		attempted = append(attempted, b.Name())
		enum, err := b.Enumerate(ctx)
		if err != nil {
			failures = append(failures, &BackendError{Backend: b.Name(), Err: err})
			diags = append(diags, profile.Diagnostic{
				Kind:    profile.DiagBackendUnavailable,
				Backend: b.Name(),
				Detail:  err.Error(),
			})
			logger.Warn("Backend unavailable", "backend", b.Name(), "error", err)
			continue
		}
		if opts.RawLog != nil {
			for _, raw := range enum.Devices {
				opts.RawLog.Log(b.Name(), raw.Bus, raw.Address, raw.Descriptors)
			}
		}
		records, recDiags := decodeEnumeration(b.Name(), enum)
		tree := profile.Build(b.Name(), enum.Buses, records)
		tree.Diagnostics = append(recDiags, tree.Diagnostics...)
		logger.Debug("Backend enumerated", "backend", b.Name(), "buses", len(tree.Buses), "devices", tree.Len())
		trees = append(trees, profile.BackendTree{Backend: b.Name(), Tree: tree})
	}
	if len(trees) == 0 {
		return nil, &NoSourceError{Attempted: attempted, Failures: failures}
	}

	p := profile.Reconcile(trees, opts.Policy)
	p.Diagnostics = append(diags, p.Diagnostics...)
	logger.Debug("Pass reconciled", "backends", len(trees), "devices", p.Len(), "diagnostics", len(p.Diagnostics))
	return p, nil
}

func selectBackends(opts Options) ([]Backend, error) {
	if opts.FromJSON != "" {
		return []Backend{NewDumpBackend(opts.FromJSON)}, nil
	}
	names := opts.Backends
	if len(names) == 0 {
		names = BackendNames()
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no enumeration backends registered")
	}
	out := make([]Backend, 0, len(names))
	for _, n := range names {
		b := GetBackend(n)
		if b == nil {
			return nil, fmt.Errorf("unknown backend %q (registered: %s)", n, strings.Join(BackendNames(), ", "))
		}
		out = append(out, b)
	}
	return out, nil
}

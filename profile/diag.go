package profile

import "fmt"

// DiagnosticKind labels a non-fatal issue accumulated during a profiling
// pass. Every kind is recoverable; a pass only fails outright when no
// backend produced any data at all.
type DiagnosticKind string

const (
	DiagTruncatedDescriptor DiagnosticKind = "truncated_descriptor"
	DiagMalformedDescriptor DiagnosticKind = "malformed_descriptor"
	DiagDanglingPortPath    DiagnosticKind = "dangling_port_path"
	DiagIdentityConflict    DiagnosticKind = "identity_conflict"
	DiagBackendUnavailable  DiagnosticKind = "backend_unavailable"
)

// Diagnostic is one recoverable issue: what went wrong, which backend saw
// it, and which device it concerns.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind" yaml:"kind"`
	Backend string         `json:"backend,omitempty" yaml:"backend,omitempty"`
	Device  string         `json:"device,omitempty" yaml:"device,omitempty"`
	Detail  string         `json:"detail" yaml:"detail"`
}

func (d Diagnostic) String() string {
	s := string(d.Kind)
	if d.Backend != "" {
		s += " [" + d.Backend + "]"
	}
	if d.Device != "" {
		s += " " + d.Device
	}
	if d.Detail != "" {
		s += ": " + d.Detail
	}
	return s
}

func diagf(kind DiagnosticKind, backend, device, format string, args ...any) Diagnostic {
	return Diagnostic{
		Kind:    kind,
		Backend: backend,
		Device:  device,
		Detail:  fmt.Sprintf(format, args...),
	}
}

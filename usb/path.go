package usb

import (
	"fmt"
	"strconv"
	"strings"
)

// PortPath locates a device on a bus as the ordered chain of hub port
// numbers walked from the bus root to reach it. A root hub has an empty
// chain. No two devices on one bus may share an identical PortPath.
type PortPath struct {
	Bus   int
	Ports []int
}

// RootPath returns the root-hub path for a bus.
func RootPath(bus int) PortPath {
	return PortPath{Bus: bus}
}

// ParsePortPath parses the sysfs-style textual forms: "2-1.4" (bus 2, hub
// port 1, then port 4), "2-0" and "usb2" (both the root hub of bus 2).
func ParsePortPath(s string) (PortPath, error) {
	if rest, ok := strings.CutPrefix(s, "usb"); ok {
		bus, err := strconv.Atoi(rest)
		if err != nil {
			return PortPath{}, fmt.Errorf("invalid port path %q: %w", s, err)
		}
		return RootPath(bus), nil
	}

	busPart, portPart, found := strings.Cut(s, "-")
	if !found {
		return PortPath{}, fmt.Errorf("invalid port path %q: missing bus separator", s)
	}
	bus, err := strconv.Atoi(busPart)
	if err != nil {
		return PortPath{}, fmt.Errorf("invalid port path %q: %w", s, err)
	}
	if portPart == "0" {
		return RootPath(bus), nil
	}
	fields := strings.Split(portPart, ".")
	ports := make([]int, 0, len(fields))
	for _, f := range fields {
		p, err := strconv.Atoi(f)
		if err != nil {
			return PortPath{}, fmt.Errorf("invalid port path %q: %w", s, err)
		}
		if p <= 0 {
			return PortPath{}, fmt.Errorf("invalid port path %q: port numbers are positive", s)
		}
		ports = append(ports, p)
	}
	return PortPath{Bus: bus, Ports: ports}, nil
}

// String renders the sysfs form; root hubs render as "bus-0".
func (p PortPath) String() string {
	if p.IsRoot() {
		return fmt.Sprintf("%d-0", p.Bus)
	}
	parts := make([]string, len(p.Ports))
	for i, port := range p.Ports {
		parts[i] = strconv.Itoa(port)
	}
	return fmt.Sprintf("%d-%s", p.Bus, strings.Join(parts, "."))
}

// IsRoot reports whether the path addresses the bus root hub.
func (p PortPath) IsRoot() bool { return len(p.Ports) == 0 }

// Depth is the number of hubs between the bus root and the device,
// inclusive of the device's own port.
func (p PortPath) Depth() int { return len(p.Ports) }

// Parent returns the path of the immediate parent hub; the parent of a
// depth-1 device is the root hub. ok is false for a root path.
func (p PortPath) Parent() (PortPath, bool) {
	if p.IsRoot() {
		return PortPath{}, false
	}
	parent := PortPath{Bus: p.Bus, Ports: append([]int(nil), p.Ports[:len(p.Ports)-1]...)}
	return parent, true
}

// Trunk returns the depth-1 ancestor: the device plugged directly into the
// bus root. The trunk of a root path is the root path itself.
func (p PortPath) Trunk() PortPath {
	if p.IsRoot() {
		return p
	}
	return PortPath{Bus: p.Bus, Ports: []int{p.Ports[0]}}
}

// Child returns the path of a device behind the given downstream port.
func (p PortPath) Child(port int) PortPath {
	ports := make([]int, 0, len(p.Ports)+1)
	ports = append(ports, p.Ports...)
	ports = append(ports, port)
	return PortPath{Bus: p.Bus, Ports: ports}
}

// Equal reports full path identity.
func (p PortPath) Equal(other PortPath) bool {
	return p.Bus == other.Bus && equalPorts(p.Ports, other.Ports)
}

// IsAncestorOf reports whether p is a proper prefix of child on the same
// bus. The root path is an ancestor of every non-root device on its bus.
func (p PortPath) IsAncestorOf(child PortPath) bool {
	if p.Bus != child.Bus || len(p.Ports) >= len(child.Ports) {
		return false
	}
	return equalPorts(p.Ports, child.Ports[:len(p.Ports)])
}

// IsParentOf reports whether p is the immediate parent of child.
func (p PortPath) IsParentOf(child PortPath) bool {
	return len(child.Ports) == len(p.Ports)+1 && p.IsAncestorOf(child)
}

// Compare imposes the canonical total order: bus, then chain length
// (shallower first), then element-wise port comparison. The order
// guarantees every ancestor sorts before all of its descendants.
func (p PortPath) Compare(other PortPath) int {
	switch {
	case p.Bus != other.Bus:
		return compareInt(p.Bus, other.Bus)
	case len(p.Ports) != len(other.Ports):
		return compareInt(len(p.Ports), len(other.Ports))
	default:
		for i := range p.Ports {
			if c := compareInt(p.Ports[i], other.Ports[i]); c != 0 {
				return c
			}
		}
		return 0
	}
}

func equalPorts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

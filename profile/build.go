package profile

import (
	"sort"

	"github.com/jmault/buscope/usb"
)

// Build assembles the flat device records one backend produced into a
// bus-indexed tree. Records are sorted so that parents precede children,
// then each device is attached under the deepest device whose port path is
// a proper prefix of its own. A record whose immediate parent hub is
// missing is attached as deep as the surviving ancestors allow and marked
// detached; a record with no port path at all (coarse backends report only
// bus and address) sits detached directly under its bus.
//
// The bus slice carries backend-supplied bus metadata such as PCI identity;
// buses only referenced by device records are created on the fly. Build
// takes ownership of both slices.
func Build(backend string, buses []*Bus, records []*Device) *Profile {
	p := &Profile{}
	for _, b := range buses {
		b.RootHub = nil
		b.Devices = nil
		p.Buses = append(p.Buses, b)
	}

	busFor := func(n int) *Bus {
		for _, b := range p.Buses {
			if b.Number == n {
				return b
			}
		}
		b := &Bus{Number: n}
		p.Buses = append(p.Buses, b)
		return b
	}

	var placed []*Device
	for _, r := range records {
		r.Devices = nil
		if len(r.PortPath) > 0 {
			placed = append(placed, r)
			continue
		}
		b := busFor(r.Bus)
		if r.Address == 1 {
			// On Linux the root hub always enumerates at address 1 and
			// carries an empty port path.
			if b.RootHub != nil {
				p.Diagnostics = append(p.Diagnostics, diagf(DiagDanglingPortPath, backend, r.Summary(),
					"second root hub record for bus %d", r.Bus))
				r.Detached = true
				attach(b, nil, r)
				continue
			}
			b.RootHub = r
			if b.Name == "" {
				b.Name = r.DisplayName()
			}
			if b.HostController == "" {
				b.HostController = r.Manufacturer
			}
			continue
		}
		r.Detached = true
		attach(b, nil, r)
	}

	sort.SliceStable(placed, func(i, j int) bool {
		return placed[i].Path().Compare(placed[j].Path()) < 0
	})

	nodes := make(map[string]*Device, len(placed))
	for _, d := range placed {
		b := busFor(d.Bus)
		key := d.Path().String()
		if _, ok := nodes[key]; ok {
			p.Diagnostics = append(p.Diagnostics, diagf(DiagDanglingPortPath, backend, d.Summary(),
				"duplicate port path %s", key))
			d.Detached = true
			attach(b, nil, d)
			continue
		}
		nodes[key] = d

		parent, depth := ancestorOf(nodes, d.Path())
		if depth < len(d.PortPath)-1 {
			// Immediate parent hub never showed up; note the gap but keep
			// the device under the nearest enumerated ancestor.
			d.Detached = true
			p.Diagnostics = append(p.Diagnostics, diagf(DiagDanglingPortPath, backend, d.Summary(),
				"parent hub %s not enumerated", usb.PortPath{Bus: d.Bus, Ports: d.PortPath[:len(d.PortPath)-1]}))
		}
		attach(b, parent, d)
	}

	sort.SliceStable(p.Buses, func(i, j int) bool { return p.Buses[i].Number < p.Buses[j].Number })
	return p
}

// attach appends child to parent's device list, or to the bus trunk when
// parent is nil, and assigns its branch position.
func attach(b *Bus, parent *Device, child *Device) {
	if parent != nil {
		child.branch = len(parent.Devices)
		parent.Devices = append(parent.Devices, child)
		return
	}
	child.branch = len(b.Devices)
	b.Devices = append(b.Devices, child)
}

// ancestorOf finds the deepest already-placed device whose port path is a
// proper prefix of path. It returns nil when only the bus root qualifies;
// depth is the length of the ancestor's path.
func ancestorOf(nodes map[string]*Device, path usb.PortPath) (*Device, int) {
	for n := len(path.Ports) - 1; n > 0; n-- {
		prefix := usb.PortPath{Bus: path.Bus, Ports: path.Ports[:n]}
		if d, ok := nodes[prefix.String()]; ok {
			return d, n
		}
	}
	return nil, 0
}

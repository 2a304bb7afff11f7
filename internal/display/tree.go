package display

import (
	"fmt"
	"strings"

	"github.com/jmault/buscope/profile"
)

func (r *Renderer) renderTree(p *profile.Profile) error {
	for i, b := range p.Buses {
		if i > 0 {
			fmt.Fprintln(r.w)
		}
		r.busLine(b)
		for j, d := range b.Devices {
			r.treeDevice(d, "", j+1 == len(b.Devices))
		}
	}
	return nil
}

// busLine renders the bus header. The root hub's identity is already
// folded into the bus metadata by the builder, so it is not repeated as a
// child node.
func (r *Renderer) busLine(b *profile.Bus) {
	label := b.Label()
	if b.HostController != "" {
		label += "  " + b.HostController
	}
	if b.PCIVendor != nil && b.PCIDevice != nil {
		label += fmt.Sprintf("  %04x:%04x", uint16(*b.PCIVendor), uint16(*b.PCIDevice))
	}
	r.println(r.g.BusStart + " " + label)
}

func (r *Renderer) treeDevice(d *profile.Device, prefix string, last bool) {
	edge, childPrefix := r.g.Edge, prefix+r.g.Line
	if last {
		edge, childPrefix = r.g.Corner, prefix+r.g.Blank
	}
	r.println(prefix + edge + " " + r.treeLabel(d))
	if r.s.Verbosity > 0 {
		r.treeDetail(d, childPrefix)
	}
	for i, child := range d.Devices {
		r.treeDevice(child, childPrefix, i+1 == len(d.Devices))
	}
}

func (r *Renderer) treeLabel(d *profile.Device) string {
	parts := []string{fmt.Sprintf("%3d", d.Address), idPair(d), r.deviceName(d)}
	if s := r.serial(d); s != "" {
		parts = append(parts, s)
	}
	if rate := d.Speed.Rate(); rate != "" {
		parts = append(parts, rate)
	}
	if d.Detached {
		parts = append(parts, "[detached]")
	}
	return strings.Join(parts, " ")
}

func (r *Renderer) treeDetail(d *profile.Device, prefix string) {
	for _, cfg := range d.Configurations {
		r.println(prefix + r.g.Config + " " + r.configLine(cfg))
		if r.s.Verbosity < 2 {
			continue
		}
		for _, iface := range cfg.Interfaces {
			r.println(prefix + "  " + r.g.Interface + " " + r.interfaceLine(iface))
			if r.s.Verbosity < 3 {
				continue
			}
			for _, ep := range iface.Endpoints {
				glyph, text := r.endpointLine(ep)
				r.println(prefix + "    " + glyph + " " + text)
			}
		}
	}
}

// println writes one line, truncated to the terminal width when known.
func (r *Renderer) println(line string) {
	fmt.Fprintln(r.w, truncate(line, r.s.Width))
}

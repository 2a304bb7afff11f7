package display

import (
	"fmt"

	"github.com/jmault/buscope/profile"
)

// listRow is one device reduced to the fixed list columns.
type listRow struct {
	device *profile.Device
	bus    string
	addr   string
	id     string
	name   string
	serial string
	speed  string
}

type listWidths struct {
	bus, addr, id, name, serial, speed int
}

func (r *Renderer) renderList(p *profile.Profile) error {
	if r.s.Group == profile.GroupBus {
		for i, grp := range profile.GroupByBus(p) {
			if i > 0 {
				fmt.Fprintln(r.w)
			}
			fmt.Fprintln(r.w, grp.Bus.Label())
			devices := grp.Devices
			if grp.Bus.RootHub != nil {
				devices = append([]*profile.Device{grp.Bus.RootHub}, devices...)
			}
			if err := r.listTable(devices); err != nil {
				return err
			}
		}
		return nil
	}

	var devices []*profile.Device
	for _, b := range p.Buses {
		if b.RootHub != nil {
			devices = append(devices, b.RootHub)
		}
		devices = append(devices, b.FlattenedDevices()...)
	}
	return r.listTable(devices)
}

func (r *Renderer) listTable(devices []*profile.Device) error {
	rows := make([]listRow, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, listRow{
			device: d,
			bus:    fmt.Sprintf("%3d", d.Bus),
			addr:   fmt.Sprintf("%3d", d.Address),
			id:     idPair(d),
			name:   r.deviceName(d),
			serial: r.serial(d),
			speed:  d.Speed.Rate(),
		})
	}

	w := r.sizeColumns(rows)
	if r.s.Headings {
		fmt.Fprintf(r.w, "%s %s %s  %s  %s  %s\n",
			pad("BUS", w.bus), pad("DEV", w.addr), pad("ID", w.id),
			pad("NAME", w.name), pad("SERIAL", w.serial), pad("SPEED", w.speed))
	}
	for _, row := range rows {
		fmt.Fprintf(r.w, "%s %s %s  %s  %s  %s\n",
			pad(row.bus, w.bus), pad(row.addr, w.addr), pad(row.id, w.id),
			pad(truncate(row.name, w.name), w.name),
			pad(truncate(row.serial, w.serial), w.serial),
			pad(row.speed, w.speed))
		if r.s.Verbosity > 0 {
			r.listDetail(row.device)
		}
	}
	return nil
}

// sizeColumns computes column widths from the data. When a terminal width
// is known the name column absorbs whatever the fixed columns leave over.
func (r *Renderer) sizeColumns(rows []listRow) listWidths {
	w := listWidths{bus: 3, addr: 3, id: 9, speed: 5}
	if r.s.Headings {
		w.name, w.serial = len("NAME"), len("SERIAL")
	}
	for _, row := range rows {
		if n := len([]rune(row.name)); n > w.name {
			w.name = n
		}
		if n := len([]rune(row.serial)); n > w.serial {
			w.serial = n
		}
	}
	if r.s.Width > 0 {
		fixed := w.bus + w.addr + w.id + w.speed + w.serial + 8
		if room := r.s.Width - fixed; room > 8 && w.name > room {
			w.name = room
		}
	}
	return w
}

// listDetail prints the nested descriptor rows under one list row.
func (r *Renderer) listDetail(d *profile.Device) {
	for _, cfg := range d.Configurations {
		fmt.Fprintf(r.w, "  %s %s\n", r.g.Config, r.configLine(cfg))
		if r.s.Verbosity < 2 {
			continue
		}
		for _, iface := range cfg.Interfaces {
			fmt.Fprintf(r.w, "    %s %s\n", r.g.Interface, r.interfaceLine(iface))
			if r.s.Verbosity < 3 {
				continue
			}
			for _, ep := range iface.Endpoints {
				glyph, text := r.endpointLine(ep)
				fmt.Fprintf(r.w, "      %s %s\n", glyph, text)
			}
		}
	}
}

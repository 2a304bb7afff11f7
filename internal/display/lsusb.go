package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jmault/buscope/profile"
)

// renderLsusb prints one line per device in the exact shape lsusb uses,
// so existing scripts that scrape that output keep working.
func (r *Renderer) renderLsusb(p *profile.Profile) error {
	var devices []*profile.Device
	for _, b := range p.Buses {
		if b.RootHub != nil {
			devices = append(devices, b.RootHub)
		}
		devices = append(devices, b.FlattenedDevices()...)
	}
	sort.SliceStable(devices, func(i, j int) bool {
		if devices[i].Bus != devices[j].Bus {
			return devices[i].Bus < devices[j].Bus
		}
		return devices[i].Address < devices[j].Address
	})
	for _, d := range devices {
		fmt.Fprintln(r.w, r.lsusbLine(d))
	}
	return nil
}

func (r *Renderer) lsusbLine(d *profile.Device) string {
	vid, pid := uint16(0), uint16(0)
	if d.VendorID != nil {
		vid = uint16(*d.VendorID)
	}
	if d.ProductID != nil {
		pid = uint16(*d.ProductID)
	}
	tail := strings.TrimSpace(r.vendorName(d) + " " + r.deviceName(d))
	return strings.TrimSpace(fmt.Sprintf("Bus %03d Device %03d: ID %04x:%04x %s",
		d.Bus, d.Address, vid, pid, tail))
}

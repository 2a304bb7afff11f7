package profile

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jmault/buscope/usb"
)

// Filter selects devices from a profile. All set criteria must match on
// the same device; name and serial are case-sensitive substring matches,
// and a class criterion matches when either the device class or any
// interface class equals it. Applying a filter prunes the tree in place
// but always keeps the hub ancestors of a matching device so the path from
// bus root to match stays intact.
type Filter struct {
	VendorID  *uint16
	ProductID *uint16
	Bus       *int
	Address   *int
	Name      string
	Serial    string
	Class     *usb.ClassCode
}

func (f *Filter) IsZero() bool {
	return f == nil || (f.VendorID == nil && f.ProductID == nil && f.Bus == nil &&
		f.Address == nil && f.Name == "" && f.Serial == "" && f.Class == nil)
}

// Matches reports whether the device itself satisfies every set criterion.
// Descendants are not consulted.
func (f *Filter) Matches(d *Device) bool {
	if f == nil {
		return true
	}
	if f.VendorID != nil && (d.VendorID == nil || uint16(*d.VendorID) != *f.VendorID) {
		return false
	}
	if f.ProductID != nil && (d.ProductID == nil || uint16(*d.ProductID) != *f.ProductID) {
		return false
	}
	if f.Bus != nil && d.Bus != *f.Bus {
		return false
	}
	if f.Address != nil && d.Address != *f.Address {
		return false
	}
	if f.Name != "" && !strings.Contains(d.Name, f.Name) {
		return false
	}
	if f.Serial != "" && !strings.Contains(d.Serial, f.Serial) {
		return false
	}
	if f.Class != nil && !d.MatchesClass(*f.Class) {
		return false
	}
	return true
}

// Apply prunes p to devices that match or have a matching descendant.
// Root hubs are kept as long as their bus survives; buses themselves are
// never removed here (see HideEmptyBuses).
func (f *Filter) Apply(p *Profile) {
	if f.IsZero() {
		return
	}
	for _, b := range p.Buses {
		b.Devices = f.retain(b.Devices)
	}
}

func (f *Filter) retain(devices []*Device) []*Device {
	kept := devices[:0]
	for _, d := range devices {
		d.Devices = f.retain(d.Devices)
		if f.Matches(d) || len(d.Devices) > 0 {
			kept = append(kept, d)
		}
	}
	return kept
}

// ParseVidPid parses a VID[:PID] filter argument. Values are hexadecimal,
// with or without an 0x prefix.
func ParseVidPid(s string) (vid, pid *uint16, err error) {
	v, p, found := strings.Cut(s, ":")
	vid, err = parseHex16(v)
	if err != nil {
		return nil, nil, fmt.Errorf("vidpid %q: %w", s, err)
	}
	if found && p != "" {
		pid, err = parseHex16(p)
		if err != nil {
			return nil, nil, fmt.Errorf("vidpid %q: %w", s, err)
		}
	}
	return vid, pid, nil
}

// ParseBusAddress parses a [bus:]devnum filter argument. Values are
// decimal.
func ParseBusAddress(s string) (bus, address *int, err error) {
	first, second, found := strings.Cut(s, ":")
	if !found {
		address, err = parseDec(first)
		if err != nil {
			return nil, nil, fmt.Errorf("show %q: %w", s, err)
		}
		return nil, address, nil
	}
	bus, err = parseDec(first)
	if err != nil {
		return nil, nil, fmt.Errorf("show %q: %w", s, err)
	}
	if second != "" {
		address, err = parseDec(second)
		if err != nil {
			return nil, nil, fmt.Errorf("show %q: %w", s, err)
		}
	}
	return bus, address, nil
}

func parseHex16(s string) (*uint16, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return nil, err
	}
	u := uint16(v)
	return &u, nil
}

func parseDec(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// HideEmptyHubs removes, bottom up, every hub that has no children left
// and does not itself match the filter. A nil filter hides all childless
// hubs.
func HideEmptyHubs(p *Profile, f *Filter) {
	for _, b := range p.Buses {
		b.Devices = pruneEmptyHubs(b.Devices, f)
	}
}

func pruneEmptyHubs(devices []*Device, f *Filter) []*Device {
	kept := devices[:0]
	for _, d := range devices {
		d.Devices = pruneEmptyHubs(d.Devices, f)
		if d.IsHub() && len(d.Devices) == 0 && !(f != nil && !f.IsZero() && f.Matches(d)) {
			continue
		}
		kept = append(kept, d)
	}
	return kept
}

// HideEmptyBuses removes buses with no devices under them.
func HideEmptyBuses(p *Profile) {
	kept := p.Buses[:0]
	for _, b := range p.Buses {
		if !b.IsEmpty() {
			kept = append(kept, b)
		}
	}
	p.Buses = kept
}

// SortKey selects the ordering applied within each sibling group.
type SortKey string

const (
	SortDeviceNumber   SortKey = "device-number"
	SortBranchPosition SortKey = "branch-position"
	SortNone           SortKey = "no-sort"
)

// Apply reorders every sibling group of the profile. Sorting is stable, so
// devices the key cannot distinguish keep their insertion order.
func (k SortKey) Apply(p *Profile) {
	if k == SortNone || k == "" {
		return
	}
	for _, b := range p.Buses {
		k.sortSiblings(b.Devices)
	}
}

func (k SortKey) sortSiblings(devices []*Device) {
	sort.SliceStable(devices, func(i, j int) bool {
		if k == SortBranchPosition {
			return devices[i].branch < devices[j].branch
		}
		return devices[i].Address < devices[j].Address
	})
	for _, d := range devices {
		k.sortSiblings(d.Devices)
	}
}

// GroupKey selects how unified output is partitioned.
type GroupKey string

const (
	GroupNone GroupKey = "no-group"
	GroupBus  GroupKey = "bus"
)

// BusGroup is one bus with its subtree flattened depth first, parents
// before children.
type BusGroup struct {
	Bus     *Bus
	Devices []*Device
}

// GroupByBus flattens each bus of the profile into a BusGroup, preserving
// the current (possibly sorted and filtered) tree order.
func GroupByBus(p *Profile) []BusGroup {
	groups := make([]BusGroup, 0, len(p.Buses))
	for _, b := range p.Buses {
		groups = append(groups, BusGroup{Bus: b, Devices: b.FlattenedDevices()})
	}
	return groups
}

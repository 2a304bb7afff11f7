// Package profile holds the canonical USB topology model: buses, devices,
// configurations, interfaces and endpoints as reconciled from one or more
// enumeration backends. The tree is rebuilt from scratch on every profiling
// pass; nothing in this package mutates a tree across passes.
package profile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jmault/buscope/usb"
)

// ID is a vendor, product or PCI identifier. It serializes as a plain
// number but deserializes from either a number or a hex string such as
// "0x1d6b", the format written by other USB tooling.
type ID uint16

func (i ID) String() string { return fmt.Sprintf("0x%04x", uint16(i)) }

// UnmarshalJSON accepts both uint16 and hex string formats.
func (i *ID) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := parseUint16OrHex(raw)
	if err != nil {
		return err
	}
	*i = ID(v)
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML dumps.
func (i *ID) UnmarshalYAML(value *yaml.Node) error {
	var raw any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	v, err := parseUint16OrHex(raw)
	if err != nil {
		return err
	}
	*i = ID(v)
	return nil
}

// parseUint16OrHex accepts either a number or a hex string like "0x1d6b"
func parseUint16OrHex(v any) (uint16, error) {
	switch val := v.(type) {
	case float64:
		if val < 0 || val > 65535 {
			return 0, fmt.Errorf("value %v out of uint16 range", val)
		}
		return uint16(val), nil
	case int:
		if val < 0 || val > 65535 {
			return 0, fmt.Errorf("value %v out of uint16 range", val)
		}
		return uint16(val), nil
	case string:
		s := strings.TrimSpace(val)
		base := 10
		if strings.HasPrefix(strings.ToLower(s), "0x") {
			s = s[2:]
			base = 16
		} else if strings.ContainsAny(s, "abcdefABCDEF") {
			base = 16
		}
		parsed, err := strconv.ParseUint(s, base, 16)
		if err != nil {
			return 0, fmt.Errorf("invalid hex/numeric string %q: %w", val, err)
		}
		return uint16(parsed), nil
	default:
		return 0, fmt.Errorf("expected number or hex string, got %T", v)
	}
}

// Profile is the result of one profiling pass: every bus the active
// backends could see, reconciled into a single tree, plus the diagnostics
// the pass accumulated along the way.
type Profile struct {
	Buses       []*Bus       `json:"buses" yaml:"buses"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Bus is a root-level container. The root hub is modeled as a
// distinguished field rather than a device child; buses with no devices
// are retained, hiding them is a query concern.
type Bus struct {
	Number         int       `json:"number" yaml:"number"`
	Name           string    `json:"name,omitempty" yaml:"name,omitempty"`
	HostController string    `json:"host_controller,omitempty" yaml:"host_controller,omitempty"`
	PCIVendor      *ID       `json:"pci_vendor,omitempty" yaml:"pci_vendor,omitempty"`
	PCIDevice      *ID       `json:"pci_device,omitempty" yaml:"pci_device,omitempty"`
	PCIRevision    *uint16   `json:"pci_revision,omitempty" yaml:"pci_revision,omitempty"`
	RootHub        *Device   `json:"root_hub,omitempty" yaml:"root_hub,omitempty"`
	Devices        []*Device `json:"devices,omitempty" yaml:"devices,omitempty"`
}

// Device is one node of the canonical tree. Fields unknown for a device
// are omitted from serialized output rather than emitted as null, keeping
// partially populated records lossless through round-trips.
type Device struct {
	Bus      int   `json:"bus" yaml:"bus"`
	Address  int   `json:"address,omitempty" yaml:"address,omitempty"`
	PortPath []int `json:"port_path,omitempty" yaml:"port_path,omitempty"`

	VendorID  *ID `json:"vendor_id,omitempty" yaml:"vendor_id,omitempty"`
	ProductID *ID `json:"product_id,omitempty" yaml:"product_id,omitempty"`

	Name         string `json:"name,omitempty" yaml:"name,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Serial       string `json:"serial,omitempty" yaml:"serial,omitempty"`

	Class         *usb.ClassTriplet `json:"class,omitempty" yaml:"class,omitempty"`
	USBVersion    *usb.Version      `json:"bcd_usb,omitempty" yaml:"bcd_usb,omitempty"`
	DeviceVersion *usb.Version      `json:"bcd_device,omitempty" yaml:"bcd_device,omitempty"`
	Speed         usb.Speed         `json:"speed,omitempty" yaml:"speed,omitempty"`
	MaxPacketSize uint8             `json:"max_packet_size,omitempty" yaml:"max_packet_size,omitempty"`

	NumConfigurations   uint8           `json:"num_configurations,omitempty" yaml:"num_configurations,omitempty"`
	Configurations      []Configuration `json:"configurations,omitempty" yaml:"configurations,omitempty"`
	ActiveConfiguration *uint8          `json:"active_configuration,omitempty" yaml:"active_configuration,omitempty"`

	Driver    string `json:"driver,omitempty" yaml:"driver,omitempty"`
	SysfsPath string `json:"sysfs_path,omitempty" yaml:"sysfs_path,omitempty"`

	// Detached marks a device whose reported parent hub could not be found;
	// it hangs directly under the bus root instead of being dropped.
	Detached bool `json:"detached,omitempty" yaml:"detached,omitempty"`

	// Provenance records which backend supplied each populated field.
	Provenance map[string]string `json:"provenance,omitempty" yaml:"provenance,omitempty"`

	Devices []*Device `json:"devices,omitempty" yaml:"devices,omitempty"`

	// branch is the index this device held in its parent's child list when
	// the topology was built. It survives filtering (which never reorders)
	// and is restored from array order when a dump is loaded.
	branch int
}

// Configuration mirrors one configuration descriptor of a device.
type Configuration struct {
	Value      uint8       `json:"value" yaml:"value"`
	Name       string      `json:"name,omitempty" yaml:"name,omitempty"`
	Attributes []string    `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	MaxPower   int         `json:"max_power,omitempty" yaml:"max_power,omitempty"` // mA
	Interfaces []Interface `json:"interfaces,omitempty" yaml:"interfaces,omitempty"`
}

// Interface is one interface alternate setting.
type Interface struct {
	Number     uint8            `json:"number" yaml:"number"`
	AltSetting uint8            `json:"alt_setting,omitempty" yaml:"alt_setting,omitempty"`
	Class      usb.ClassTriplet `json:"class" yaml:"class"`
	Name       string           `json:"name,omitempty" yaml:"name,omitempty"`
	Driver     string           `json:"driver,omitempty" yaml:"driver,omitempty"`
	SysfsPath  string           `json:"sysfs_path,omitempty" yaml:"sysfs_path,omitempty"`
	Endpoints  []Endpoint       `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
}

// Endpoint keeps the raw descriptor fields; the usb package accessors
// interpret the bitfields.
type Endpoint struct {
	Address       uint8  `json:"address" yaml:"address"`
	Attributes    uint8  `json:"attributes" yaml:"attributes"`
	MaxPacketSize uint16 `json:"max_packet_size" yaml:"max_packet_size"`
	Interval      uint8  `json:"interval,omitempty" yaml:"interval,omitempty"`
}

func (e Endpoint) EndpointAddress() usb.EndpointAddress { return usb.EndpointAddress(e.Address) }
func (e Endpoint) TransferType() usb.TransferType       { return usb.TransferType(e.Attributes & 0x03) }
func (e Endpoint) PacketSize() int                      { return int(e.MaxPacketSize & 0x07ff) }

// PacketString renders the max packet size, unfolding the extra
// transactions per microframe that high-bandwidth endpoints encode in
// bits 11-12.
func (e Endpoint) PacketString() string {
	if tx := (e.MaxPacketSize >> 11) & 0x03; tx > 0 {
		return fmt.Sprintf("%dx%d bytes", tx+1, e.PacketSize())
	}
	return fmt.Sprintf("%d bytes", e.PacketSize())
}

// Path returns the device position as a PortPath.
func (d *Device) Path() usb.PortPath {
	return usb.PortPath{Bus: d.Bus, Ports: d.PortPath}
}

// IsRootHub reports whether the device is the bus itself seen as a device.
func (d *Device) IsRootHub() bool {
	return len(d.PortPath) == 0 || (len(d.PortPath) == 1 && d.PortPath[0] == 0)
}

// IsHub reports whether the device is a hub, by class code or, for coarse
// records without one, by the advertised name.
func (d *Device) IsHub() bool {
	if d.Class != nil {
		return d.Class.Base == usb.ClassHub
	}
	return strings.Contains(strings.ToLower(d.Name), "hub")
}

// HasDevices reports whether any child devices hang off this one.
func (d *Device) HasDevices() bool { return len(d.Devices) > 0 }

// Depth is the number of hubs between the bus root and the device.
func (d *Device) Depth() int { return len(d.PortPath) }

// IsTrunk reports whether the device is plugged directly into the root hub.
func (d *Device) IsTrunk() bool { return len(d.PortPath) == 1 }

// BranchPosition is the index this device held within its parent's child
// list when the tree was built.
func (d *Device) BranchPosition() int { return d.branch }

// HasInterfaceClass reports whether any interface of any configuration
// carries the class. Devices that defer classification to their interfaces
// declare class zero at the device level, so class queries must look here.
func (d *Device) HasInterfaceClass(c usb.ClassCode) bool {
	for _, cfg := range d.Configurations {
		for _, iface := range cfg.Interfaces {
			if iface.Class.Base == c {
				return true
			}
		}
	}
	return false
}

// MatchesClass reports whether the device-level class or any interface
// class matches.
func (d *Device) MatchesClass(c usb.ClassCode) bool {
	if d.Class != nil && d.Class.Base == c {
		return true
	}
	return d.HasInterfaceClass(c)
}

// DisplayName returns the best human name available for the device.
func (d *Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	if d.VendorID != nil && d.ProductID != nil {
		return fmt.Sprintf("%04x:%04x", uint16(*d.VendorID), uint16(*d.ProductID))
	}
	return "Unknown device"
}

// Summary renders the lsusb-style one line identity for the device.
func (d *Device) Summary() string {
	vid, pid := uint16(0xffff), uint16(0xffff)
	if d.VendorID != nil {
		vid = uint16(*d.VendorID)
	}
	if d.ProductID != nil {
		pid = uint16(*d.ProductID)
	}
	return fmt.Sprintf("Bus %03d Device %03d: ID %04x:%04x %s %s",
		d.Bus, d.Address, vid, pid, strings.TrimSpace(d.Manufacturer), strings.TrimSpace(d.Name))
}

// GetNode finds the device with the exact path in this device's subtree,
// including the device itself.
func (d *Device) GetNode(path usb.PortPath) *Device {
	if d.Path().Equal(path) {
		return d
	}
	if !d.Path().IsAncestorOf(path) {
		return nil
	}
	for _, child := range d.Devices {
		if found := child.GetNode(path); found != nil {
			return found
		}
	}
	return nil
}

// FlattenedDevices returns the subtree below this device in depth-first
// order, not including the device itself.
func (d *Device) FlattenedDevices() []*Device {
	var out []*Device
	for _, child := range d.Devices {
		out = append(out, child)
		out = append(out, child.FlattenedDevices()...)
	}
	return out
}

// Len is the number of devices on the bus, the root hub excluded.
func (b *Bus) Len() int {
	n := 0
	for _, d := range b.Devices {
		n += 1 + len(d.FlattenedDevices())
	}
	return n
}

// IsEmpty reports whether no devices beyond the root hub are present.
func (b *Bus) IsEmpty() bool { return len(b.Devices) == 0 }

// GetNode finds a device by exact path anywhere on the bus. A root path
// resolves to the root hub when one is known.
func (b *Bus) GetNode(path usb.PortPath) *Device {
	if path.Bus != b.Number {
		return nil
	}
	if path.IsRoot() {
		return b.RootHub
	}
	for _, d := range b.Devices {
		if found := d.GetNode(path); found != nil {
			return found
		}
	}
	return nil
}

// FlattenedDevices returns every device on the bus in depth-first order,
// the root hub excluded.
func (b *Bus) FlattenedDevices() []*Device {
	var out []*Device
	for _, d := range b.Devices {
		out = append(out, d)
		out = append(out, d.FlattenedDevices()...)
	}
	return out
}

// HasEmptyHubs reports whether any hub on the bus has no child devices.
func (b *Bus) HasEmptyHubs() bool {
	for _, d := range b.FlattenedDevices() {
		if d.IsHub() && !d.HasDevices() {
			return true
		}
	}
	return false
}

// Label is the bus heading used by group-by-bus output.
func (b *Bus) Label() string {
	if b.Name != "" {
		return fmt.Sprintf("Bus %03d: %s", b.Number, b.Name)
	}
	return fmt.Sprintf("Bus %03d", b.Number)
}

// GetBus finds a bus by number.
func (p *Profile) GetBus(number int) *Bus {
	for _, b := range p.Buses {
		if b.Number == number {
			return b
		}
	}
	return nil
}

// GetNode finds a device by exact path anywhere in the profile.
func (p *Profile) GetNode(path usb.PortPath) *Device {
	if b := p.GetBus(path.Bus); b != nil {
		return b.GetNode(path)
	}
	return nil
}

// Len is the total device count across all buses, root hubs excluded.
func (p *Profile) Len() int {
	n := 0
	for _, b := range p.Buses {
		n += b.Len()
	}
	return n
}

// FlattenedDevices returns every device in the profile, bus by bus, in
// depth-first order.
func (p *Profile) FlattenedDevices() []*Device {
	var out []*Device
	for _, b := range p.Buses {
		out = append(out, b.FlattenedDevices()...)
	}
	return out
}

// renumberBranches restores construction-time branch positions from the
// serialized array order after a dump load.
func (p *Profile) renumberBranches() {
	var walk func(devs []*Device)
	walk = func(devs []*Device) {
		for i, d := range devs {
			d.branch = i
			walk(d.Devices)
		}
	}
	for _, b := range p.Buses {
		walk(b.Devices)
	}
}

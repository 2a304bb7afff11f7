package profile

import (
	"strconv"

	"github.com/jmault/buscope/usb"
)

// Backend names as they appear in provenance maps and diagnostics.
const (
	BackendSysfs = "sysfs"
	BackendDevfs = "devfs"
	BackendDump  = "dump"
)

// MergePolicy tunes how the reconciler matches records across backends.
type MergePolicy struct {
	// AllowProvisional enables the weak (vendor, product, serial) identity
	// fallback for records that carry neither a port path nor a device
	// address. Matches made this way are marked in the provenance map
	// under the "identity" key.
	AllowProvisional bool
}

func DefaultMergePolicy() MergePolicy {
	return MergePolicy{AllowProvisional: true}
}

// BackendTree pairs one backend's tree with its name for reconciliation.
type BackendTree struct {
	Backend string
	Tree    *Profile
}

// Reconcile folds per-backend trees into one canonical profile. Devices are
// matched by (bus, port path) first, then (bus, address), then the weak
// descriptor triple when the policy allows it. Fields merge by presence:
// a field absent from one backend never erases another backend's value,
// and when several backends supply the same field the more authoritative
// one wins. Descriptor-derived fields trust the backend that read raw
// descriptors; OS-native fields trust sysfs.
func Reconcile(trees []BackendTree, policy MergePolicy) *Profile {
	r := &reconciler{
		policy: policy,
		byPath: make(map[string]*Device),
		byAddr: make(map[string]*Device),
		byWeak: make(map[string]*Device),
	}
	for _, t := range trees {
		if t.Tree == nil {
			continue
		}
		r.diags = append(r.diags, t.Tree.Diagnostics...)
		for _, b := range t.Tree.Buses {
			r.mergeBus(t.Backend, b)
			if b.RootHub != nil {
				r.mergeDevice(t.Backend, b.RootHub)
			}
			for _, d := range b.FlattenedDevices() {
				r.mergeDevice(t.Backend, d)
			}
		}
	}

	buses := make([]*Bus, len(r.buses))
	for i, e := range r.buses {
		buses[i] = e.bus
	}
	p := Build("", buses, r.records)
	p.Diagnostics = append(r.diags, p.Diagnostics...)
	return p
}

type rankFunc func(backend string) int

// descriptorRank orders backends for fields decoded from raw descriptors.
func descriptorRank(backend string) int {
	switch backend {
	case BackendDevfs:
		return 3
	case BackendSysfs:
		return 2
	case BackendDump:
		return 1
	}
	return 0
}

// nativeRank orders backends for fields the operating system maintains,
// such as drivers, speeds and port paths.
func nativeRank(backend string) int {
	switch backend {
	case BackendSysfs:
		return 3
	case BackendDevfs:
		return 2
	case BackendDump:
		return 1
	}
	return 0
}

type busEntry struct {
	bus  *Bus
	prov map[string]string
}

type reconciler struct {
	policy  MergePolicy
	records []*Device
	buses   []*busEntry
	byPath  map[string]*Device
	byAddr  map[string]*Device
	byWeak  map[string]*Device
	diags   []Diagnostic
}

func (r *reconciler) mergeBus(backend string, src *Bus) {
	var e *busEntry
	for _, have := range r.buses {
		if have.bus.Number == src.Number {
			e = have
			break
		}
	}
	if e == nil {
		e = &busEntry{bus: &Bus{Number: src.Number}, prov: make(map[string]string)}
		r.buses = append(r.buses, e)
	}
	takeVal(e.prov, "name", &e.bus.Name, src.Name, backend, nativeRank)
	takeVal(e.prov, "host_controller", &e.bus.HostController, src.HostController, backend, nativeRank)
	takePtr(e.prov, "pci_vendor", &e.bus.PCIVendor, src.PCIVendor, backend, nativeRank)
	takePtr(e.prov, "pci_device", &e.bus.PCIDevice, src.PCIDevice, backend, nativeRank)
	takePtr(e.prov, "pci_revision", &e.bus.PCIRevision, src.PCIRevision, backend, nativeRank)
}

func (r *reconciler) mergeDevice(backend string, src *Device) {
	dst := r.lookup(src)
	if dst == nil {
		dst = &Device{Bus: src.Bus, Provenance: make(map[string]string)}
		r.records = append(r.records, dst)
	}
	r.merge(dst, src, backend)
	r.register(dst)
}

func (r *reconciler) lookup(src *Device) *Device {
	anchored := false
	if k, ok := pathKey(src); ok {
		anchored = true
		if d := r.byPath[k]; d != nil {
			return d
		}
	}
	if k, ok := addrKey(src); ok {
		anchored = true
		if d := r.byAddr[k]; d != nil {
			return d
		}
	}
	// The weak descriptor triple is only trusted for records that carry no
	// placement data at all; an anchored record that missed its lookups is
	// a new device, not a provisional match.
	if anchored || !r.policy.AllowProvisional {
		return nil
	}
	if k, ok := weakKey(src); ok {
		if d := r.byWeak[k]; d != nil {
			d.Provenance["identity"] = "provisional"
			return d
		}
	}
	return nil
}

// register indexes dst under every identity key it currently answers to.
// Keys are claimed first come first served.
func (r *reconciler) register(dst *Device) {
	if k, ok := pathKey(dst); ok {
		if _, taken := r.byPath[k]; !taken {
			r.byPath[k] = dst
		}
	}
	if k, ok := addrKey(dst); ok {
		if _, taken := r.byAddr[k]; !taken {
			r.byAddr[k] = dst
		}
	}
	if k, ok := weakKey(dst); ok {
		if _, taken := r.byWeak[k]; !taken {
			r.byWeak[k] = dst
		}
	}
}

func (r *reconciler) merge(dst *Device, src *Device, backend string) {
	if dst.VendorID != nil && src.VendorID != nil && *dst.VendorID != *src.VendorID {
		r.diags = append(r.diags, diagf(DiagIdentityConflict, backend, dst.Summary(),
			"vendor_id %s vs %s", *dst.VendorID, *src.VendorID))
	}
	if dst.ProductID != nil && src.ProductID != nil && *dst.ProductID != *src.ProductID {
		r.diags = append(r.diags, diagf(DiagIdentityConflict, backend, dst.Summary(),
			"product_id %s vs %s", *dst.ProductID, *src.ProductID))
	}
	if dst.Serial != "" && src.Serial != "" && dst.Serial != src.Serial {
		r.diags = append(r.diags, diagf(DiagIdentityConflict, backend, dst.Summary(),
			"serial %q vs %q", dst.Serial, src.Serial))
	}

	p := dst.Provenance
	takePtr(p, "vendor_id", &dst.VendorID, src.VendorID, backend, descriptorRank)
	takePtr(p, "product_id", &dst.ProductID, src.ProductID, backend, descriptorRank)
	takePtr(p, "class", &dst.Class, src.Class, backend, descriptorRank)
	takePtr(p, "bcd_usb", &dst.USBVersion, src.USBVersion, backend, descriptorRank)
	takePtr(p, "bcd_device", &dst.DeviceVersion, src.DeviceVersion, backend, descriptorRank)
	takeVal(p, "max_packet_size", &dst.MaxPacketSize, src.MaxPacketSize, backend, descriptorRank)
	takeVal(p, "num_configurations", &dst.NumConfigurations, src.NumConfigurations, backend, descriptorRank)
	takeSlice(p, "configurations", &dst.Configurations, src.Configurations, backend, descriptorRank)

	takeVal(p, "name", &dst.Name, src.Name, backend, nativeRank)
	takeVal(p, "manufacturer", &dst.Manufacturer, src.Manufacturer, backend, nativeRank)
	takeVal(p, "serial", &dst.Serial, src.Serial, backend, nativeRank)
	takeVal(p, "speed", &dst.Speed, src.Speed, backend, nativeRank)
	takeVal(p, "driver", &dst.Driver, src.Driver, backend, nativeRank)
	takeVal(p, "sysfs_path", &dst.SysfsPath, src.SysfsPath, backend, nativeRank)
	takeVal(p, "address", &dst.Address, src.Address, backend, nativeRank)
	takeSlice(p, "port_path", &dst.PortPath, src.PortPath, backend, nativeRank)
	takePtr(p, "active_configuration", &dst.ActiveConfiguration, src.ActiveConfiguration, backend, nativeRank)
}

// takeVal merges a scalar field: a zero source is ignored, a zero
// destination accepts anything, and otherwise the higher-ranked backend
// wins. The provenance map remembers who supplied the kept value.
func takeVal[T comparable](prov map[string]string, field string, dst *T, src T, backend string, rank rankFunc) {
	var zero T
	if src == zero {
		return
	}
	if *dst == zero || rank(backend) > rank(prov[field]) {
		*dst = src
		prov[field] = backend
	}
}

func takePtr[T any](prov map[string]string, field string, dst **T, src *T, backend string, rank rankFunc) {
	if src == nil {
		return
	}
	if *dst == nil || rank(backend) > rank(prov[field]) {
		*dst = src
		prov[field] = backend
	}
}

func takeSlice[T any](prov map[string]string, field string, dst *[]T, src []T, backend string, rank rankFunc) {
	if len(src) == 0 {
		return
	}
	if len(*dst) == 0 || rank(backend) > rank(prov[field]) {
		*dst = src
		prov[field] = backend
	}
}

func pathKey(d *Device) (string, bool) {
	if len(d.PortPath) > 0 || d.Address == 1 {
		return usb.PortPath{Bus: d.Bus, Ports: d.PortPath}.String(), true
	}
	return "", false
}

func addrKey(d *Device) (string, bool) {
	if d.Address > 0 {
		return strconv.Itoa(d.Bus) + ":" + strconv.Itoa(d.Address), true
	}
	return "", false
}

func weakKey(d *Device) (string, bool) {
	if d.VendorID == nil || d.ProductID == nil {
		return "", false
	}
	return d.VendorID.String() + ":" + d.ProductID.String() + ":" + d.Serial, true
}

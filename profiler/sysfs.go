package profiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmault/buscope/profile"
	"github.com/jmault/buscope/usb"
)

// SysfsBackend walks /sys/bus/usb/devices, the Linux OS-native view. It
// supplies port paths, cached descriptor strings, drivers, speeds and the
// host-controller identity of each bus, but no raw descriptor blobs.
type SysfsBackend struct {
	Root string
}

func NewSysfsBackend() *SysfsBackend {
	return &SysfsBackend{Root: "/sys/bus/usb/devices"}
}

func (s *SysfsBackend) Name() string { return profile.BackendSysfs }

func (s *SysfsBackend) Enumerate(_ context.Context) (*Enumeration, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, fmt.Errorf("sysfs not readable: %w", err)
	}

	enum := &Enumeration{}
	for _, entry := range entries {
		name := entry.Name()
		if strings.ContainsRune(name, ':') {
			// interface entries like 1-1:1.0
			continue
		}
		dir := filepath.Join(s.Root, name)
		if busStr, ok := strings.CutPrefix(name, "usb"); ok {
			busNum, err := strconv.Atoi(busStr)
			if err != nil {
				continue
			}
			raw, ok := s.readDevice(dir, busNum, nil)
			if !ok {
				continue
			}
			enum.Devices = append(enum.Devices, raw)
			enum.Buses = append(enum.Buses, busInfo(dir, busNum))
			continue
		}
		path, err := usb.ParsePortPath(name)
		if err != nil {
			continue
		}
		raw, ok := s.readDevice(dir, path.Bus, path.Ports)
		if !ok {
			continue
		}
		enum.Devices = append(enum.Devices, raw)
	}
	return enum, nil
}

// readDevice assembles a raw device from one sysfs entry. Entries without
// a device number are not devices and are skipped.
func (s *SysfsBackend) readDevice(dir string, bus int, ports []int) (RawDevice, bool) {
	devnum, err := strconv.Atoi(readAttr(dir, "devnum"))
	if err != nil {
		return RawDevice{}, false
	}

	rec := profile.Device{
		Name:         readAttr(dir, "product"),
		Manufacturer: readAttr(dir, "manufacturer"),
		Serial:       readAttr(dir, "serial"),
		Speed:        usb.SpeedFromSysfs(readAttr(dir, "speed")),
		SysfsPath:    dir,
	}
	if v, ok := readHexAttr(dir, "idVendor"); ok {
		vid := profile.ID(v)
		rec.VendorID = &vid
	}
	if v, ok := readHexAttr(dir, "idProduct"); ok {
		pid := profile.ID(v)
		rec.ProductID = &pid
	}
	if base, ok := readHexAttr(dir, "bDeviceClass"); ok {
		sub, _ := readHexAttr(dir, "bDeviceSubClass")
		proto, _ := readHexAttr(dir, "bDeviceProtocol")
		rec.Class = &usb.ClassTriplet{Base: usb.ClassCode(base), Sub: uint8(sub), Protocol: uint8(proto)}
	}
	if ver, err := usb.ParseVersion(readAttr(dir, "version")); err == nil {
		rec.USBVersion = &ver
	}
	if bcd, ok := readHexAttr(dir, "bcdDevice"); ok {
		ver := usb.VersionFromBCD(bcd)
		rec.DeviceVersion = &ver
	}
	if n, err := strconv.Atoi(readAttr(dir, "bMaxPacketSize0")); err == nil {
		rec.MaxPacketSize = uint8(n)
	}
	if n, err := strconv.Atoi(readAttr(dir, "bNumConfigurations")); err == nil {
		rec.NumConfigurations = uint8(n)
	}
	if n, err := strconv.Atoi(readAttr(dir, "bConfigurationValue")); err == nil {
		active := uint8(n)
		rec.ActiveConfiguration = &active
	}
	if target, err := os.Readlink(filepath.Join(dir, "driver")); err == nil {
		rec.Driver = filepath.Base(target)
	}

	return RawDevice{Bus: bus, Address: devnum, PortPath: ports, Record: rec}, true
}

// busInfo reads the host controller's PCI identity from the usbN entry's
// parent device.
func busInfo(dir string, busNum int) *profile.Bus {
	b := &profile.Bus{Number: busNum}
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return b
	}
	parent := filepath.Dir(resolved)
	if v, ok := readHexAttr(parent, "vendor"); ok {
		vid := profile.ID(v)
		b.PCIVendor = &vid
	}
	if v, ok := readHexAttr(parent, "device"); ok {
		did := profile.ID(v)
		b.PCIDevice = &did
	}
	if v, ok := readHexAttr(parent, "revision"); ok {
		b.PCIRevision = &v
	}
	return b
}

func readAttr(dir, name string) string {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func readHexAttr(dir, name string) (uint16, bool) {
	s := strings.TrimPrefix(readAttr(dir, name), "0x")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

package profiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jmault/buscope/profile"
)

// DevfsBackend reads raw descriptor blobs from the usbfs device nodes
// under /dev/bus/usb. The node layout is flat (bus and address only), so
// records carry no port path; reconciliation ties them to placed devices
// by (bus, address). Nodes the process may not open fall back to the
// sysfs descriptors attribute of the matching device.
type DevfsBackend struct {
	Root      string
	SysfsRoot string
}

func NewDevfsBackend() *DevfsBackend {
	return &DevfsBackend{Root: "/dev/bus/usb", SysfsRoot: "/sys/bus/usb/devices"}
}

func (d *DevfsBackend) Name() string { return profile.BackendDevfs }

func (d *DevfsBackend) Enumerate(_ context.Context) (*Enumeration, error) {
	busDirs, err := os.ReadDir(d.Root)
	if err != nil {
		return nil, fmt.Errorf("usbfs not readable: %w", err)
	}

	// Built on first use; only needed when a node is unopenable.
	var sysfsDirs map[int]string
	fallback := func(bus, addr int) []byte {
		if sysfsDirs == nil {
			sysfsDirs = mapSysfsByAddress(d.SysfsRoot)
		}
		dir, ok := sysfsDirs[busAddrKey(bus, addr)]
		if !ok {
			return nil
		}
		blob, err := os.ReadFile(filepath.Join(dir, "descriptors"))
		if err != nil {
			return nil
		}
		return blob
	}

	enum := &Enumeration{}
	for _, busDir := range busDirs {
		bus, err := strconv.Atoi(busDir.Name())
		if err != nil || !busDir.IsDir() {
			continue
		}
		nodes, err := os.ReadDir(filepath.Join(d.Root, busDir.Name()))
		if err != nil {
			continue
		}
		for _, node := range nodes {
			addr, err := strconv.Atoi(node.Name())
			if err != nil {
				continue
			}
			blob, err := os.ReadFile(filepath.Join(d.Root, busDir.Name(), node.Name()))
			if err != nil {
				blob = fallback(bus, addr)
			}
			if len(blob) == 0 {
				continue
			}
			enum.Devices = append(enum.Devices, RawDevice{
				Bus:         bus,
				Address:     addr,
				Descriptors: blob,
			})
		}
	}
	return enum, nil
}

// mapSysfsByAddress indexes sysfs device directories by (bus, address) so
// unopenable device nodes can be resolved to their descriptors attribute.
func mapSysfsByAddress(root string) map[int]string {
	dirs := make(map[int]string)
	entries, err := os.ReadDir(root)
	if err != nil {
		return dirs
	}
	for _, entry := range entries {
		if strings.ContainsRune(entry.Name(), ':') {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		bus, err1 := strconv.Atoi(readAttr(dir, "busnum"))
		addr, err2 := strconv.Atoi(readAttr(dir, "devnum"))
		if err1 != nil || err2 != nil {
			continue
		}
		dirs[busAddrKey(bus, addr)] = dir
	}
	return dirs
}

func busAddrKey(bus, addr int) int { return bus<<16 | addr }

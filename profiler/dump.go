package profiler

import (
	"context"
	"fmt"
	"os"

	"github.com/jmault/buscope/profile"
)

// DumpBackend replays a previously serialized profile as an enumeration
// source, so dumps taken elsewhere can be queried and rendered exactly
// like a live system. Records keep whatever identity data the dump holds;
// ones lacking both port path and address rely on the reconciler's
// provisional descriptor-triple match.
type DumpBackend struct {
	Path string
}

func NewDumpBackend(path string) *DumpBackend {
	return &DumpBackend{Path: path}
}

func (d *DumpBackend) Name() string { return profile.BackendDump }

func (d *DumpBackend) Enumerate(_ context.Context) (*Enumeration, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		return nil, fmt.Errorf("opening dump: %w", err)
	}
	defer f.Close()
	p, err := profile.DecodeJSON(f)
	if err != nil {
		return nil, fmt.Errorf("reading dump %s: %w", d.Path, err)
	}

	enum := &Enumeration{}
	for _, b := range p.Buses {
		enum.Buses = append(enum.Buses, &profile.Bus{
			Number:         b.Number,
			Name:           b.Name,
			HostController: b.HostController,
			PCIVendor:      b.PCIVendor,
			PCIDevice:      b.PCIDevice,
			PCIRevision:    b.PCIRevision,
		})
		if b.RootHub != nil {
			enum.Devices = append(enum.Devices, flatRecord(b.RootHub))
		}
		for _, dev := range b.FlattenedDevices() {
			enum.Devices = append(enum.Devices, flatRecord(dev))
		}
	}
	return enum, nil
}

// flatRecord detaches one dumped device from its subtree. The historical
// provenance map is dropped; the reconciler rebuilds provenance for the
// current pass.
func flatRecord(d *profile.Device) RawDevice {
	rec := *d
	rec.Devices = nil
	rec.Detached = false
	rec.Provenance = nil
	return RawDevice{
		Bus:      d.Bus,
		Address:  d.Address,
		PortPath: d.PortPath,
		Record:   rec,
	}
}

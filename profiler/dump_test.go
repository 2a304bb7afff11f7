package profiler_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmault/buscope/profile"
	"github.com/jmault/buscope/profiler"
	"github.com/jmault/buscope/usb"
)

func writeDump(t *testing.T, p *profile.Profile) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bus.json")
	f, err := os.Create(path)
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	defer f.Close()
	if !assert.NoError(t, profile.EncodeJSON(f, p)) {
		t.FailNow()
	}
	return path
}

func TestDumpBackendEnumerate(t *testing.T) {
	pciVendor, pciDevice := profile.ID(0x8086), profile.ID(0x51ed)
	hubClass := usb.ClassTriplet{Base: usb.ClassHub}
	dumped := profile.Build(profile.BackendDump,
		[]*profile.Bus{{Number: 3, PCIVendor: &pciVendor, PCIDevice: &pciDevice}},
		[]*profile.Device{
			{Bus: 3, Address: 1, Name: "xHCI Host Controller"},
			{Bus: 3, Address: 2, PortPath: []int{1}, Name: "4-Port Hub", Class: &hubClass},
			{
				Bus: 3, Address: 5, PortPath: []int{1, 3}, Name: "HD Webcam",
				Configurations: []profile.Configuration{{Value: 1, MaxPower: 500}},
			},
		})

	backend := profiler.NewDumpBackend(writeDump(t, dumped))
	assert.Equal(t, profile.BackendDump, backend.Name())

	enum, err := backend.Enumerate(context.Background())
	if !assert.NoError(t, err) {
		return
	}

	if assert.Len(t, enum.Buses, 1) {
		assert.Equal(t, 3, enum.Buses[0].Number)
		if assert.NotNil(t, enum.Buses[0].PCIVendor) {
			assert.Equal(t, profile.ID(0x8086), *enum.Buses[0].PCIVendor)
		}
		assert.Nil(t, enum.Buses[0].RootHub)
	}

	if !assert.Len(t, enum.Devices, 3) {
		return
	}
	byAddr := map[int]profiler.RawDevice{}
	for _, raw := range enum.Devices {
		byAddr[raw.Address] = raw
	}

	assert.Nil(t, byAddr[1].PortPath)
	assert.Equal(t, []int{1}, byAddr[2].PortPath)
	assert.Equal(t, []int{1, 3}, byAddr[5].PortPath)

	// The hub's record is detached from its subtree.
	assert.Nil(t, byAddr[2].Record.Devices)

	cam := byAddr[5].Record
	assert.Equal(t, "HD Webcam", cam.Name)
	if assert.Len(t, cam.Configurations, 1) {
		assert.Equal(t, 500, cam.Configurations[0].MaxPower)
	}
	assert.Nil(t, cam.Provenance)
}

func TestDumpBackendMissingFile(t *testing.T) {
	backend := profiler.NewDumpBackend(filepath.Join(t.TempDir(), "absent.json"))
	_, err := backend.Enumerate(context.Background())
	assert.Error(t, err)
}

func TestDumpBackendBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if !assert.NoError(t, os.WriteFile(path, []byte("{\"buses\": ["), 0o644)) {
		return
	}
	backend := profiler.NewDumpBackend(path)
	_, err := backend.Enumerate(context.Background())
	assert.Error(t, err)
}

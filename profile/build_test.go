package profile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmault/buscope/profile"
	"github.com/jmault/buscope/usb"
)

func id(v uint16) *profile.ID {
	i := profile.ID(v)
	return &i
}

func hubClass() *usb.ClassTriplet {
	return &usb.ClassTriplet{Base: usb.ClassHub}
}

func TestBuildSimpleTree(t *testing.T) {
	// Deliberately out of order: the builder must sort parents first.
	records := []*profile.Device{
		{Bus: 2, Address: 3, PortPath: []int{2, 1}, Name: "Keyboard"},
		{Bus: 2, Address: 1, Name: "xHCI Host Controller", Manufacturer: "Linux 6.8 xhci-hcd"},
		{Bus: 2, Address: 2, PortPath: []int{2}, Class: hubClass(), Name: "4-Port Hub"},
	}
	p := profile.Build(profile.BackendSysfs, nil, records)

	if !assert.Len(t, p.Buses, 1) {
		return
	}
	bus := p.Buses[0]
	assert.Equal(t, 2, bus.Number)
	if assert.NotNil(t, bus.RootHub) {
		assert.Equal(t, 1, bus.RootHub.Address)
		assert.True(t, bus.RootHub.IsRootHub())
	}
	assert.Equal(t, "xHCI Host Controller", bus.Name)
	assert.Equal(t, "Linux 6.8 xhci-hcd", bus.HostController)

	if !assert.Len(t, bus.Devices, 1) {
		return
	}
	hub := bus.Devices[0]
	assert.Equal(t, []int{2}, hub.PortPath)
	assert.False(t, hub.Detached)
	if assert.Len(t, hub.Devices, 1) {
		assert.Equal(t, []int{2, 1}, hub.Devices[0].PortPath)
		assert.Equal(t, 3, hub.Devices[0].Address)
	}
	assert.Equal(t, 2, p.Len())
	assert.Empty(t, p.Diagnostics)
}

func TestBuildMissingParentHub(t *testing.T) {
	records := []*profile.Device{
		{Bus: 1, Address: 2, PortPath: []int{1}, Class: hubClass()},
		{Bus: 1, Address: 5, PortPath: []int{1, 2, 3}, Name: "Camera"},
	}
	p := profile.Build(profile.BackendSysfs, nil, records)

	// The camera's immediate parent 1-1.2 never showed up, so it hangs off
	// the deepest ancestor that did.
	hub := p.GetNode(usb.PortPath{Bus: 1, Ports: []int{1}})
	if !assert.NotNil(t, hub) {
		return
	}
	if !assert.Len(t, hub.Devices, 1) {
		return
	}
	cam := hub.Devices[0]
	assert.Equal(t, "Camera", cam.Name)
	assert.True(t, cam.Detached)
	assert.Equal(t, 2, p.Len())

	if assert.Len(t, p.Diagnostics, 1) {
		assert.Equal(t, profile.DiagDanglingPortPath, p.Diagnostics[0].Kind)
		assert.Contains(t, p.Diagnostics[0].Detail, "1-1.2")
	}
}

func TestBuildNoAncestorAtAll(t *testing.T) {
	records := []*profile.Device{
		{Bus: 3, Address: 4, PortPath: []int{3, 1}, Name: "Orphan"},
	}
	p := profile.Build(profile.BackendSysfs, nil, records)

	bus := p.GetBus(3)
	if !assert.NotNil(t, bus) {
		return
	}
	if !assert.Len(t, bus.Devices, 1) {
		return
	}
	assert.True(t, bus.Devices[0].Detached)
	if assert.Len(t, p.Diagnostics, 1) {
		assert.Equal(t, profile.DiagDanglingPortPath, p.Diagnostics[0].Kind)
	}
}

func TestBuildPathlessRecords(t *testing.T) {
	// Coarse backends only know bus and address. Everything except the
	// root hub lands flat and detached, with no diagnostics; this is the
	// backend's normal shape, not an inconsistency.
	records := []*profile.Device{
		{Bus: 1, Address: 1, VendorID: id(0x1d6b), ProductID: id(0x0002)},
		{Bus: 1, Address: 4, VendorID: id(0x046d), ProductID: id(0xc31c)},
		{Bus: 1, Address: 7, VendorID: id(0x0781), ProductID: id(0x5567)},
	}
	p := profile.Build(profile.BackendDevfs, nil, records)

	bus := p.GetBus(1)
	if !assert.NotNil(t, bus) {
		return
	}
	assert.NotNil(t, bus.RootHub)
	if !assert.Len(t, bus.Devices, 2) {
		return
	}
	for _, d := range bus.Devices {
		assert.True(t, d.Detached)
		assert.Empty(t, d.PortPath)
	}
	assert.Empty(t, p.Diagnostics)
}

func TestBuildDuplicatePortPath(t *testing.T) {
	records := []*profile.Device{
		{Bus: 1, Address: 2, PortPath: []int{4}, Name: "First"},
		{Bus: 1, Address: 9, PortPath: []int{4}, Name: "Second"},
	}
	p := profile.Build(profile.BackendSysfs, nil, records)

	assert.Equal(t, 2, p.Len())
	node := p.GetNode(usb.PortPath{Bus: 1, Ports: []int{4}})
	if assert.NotNil(t, node) {
		assert.Equal(t, "First", node.Name)
	}
	if assert.Len(t, p.Diagnostics, 1) {
		assert.Equal(t, profile.DiagDanglingPortPath, p.Diagnostics[0].Kind)
		assert.Contains(t, p.Diagnostics[0].Detail, "duplicate")
	}
}

func TestBuildBranchPositions(t *testing.T) {
	records := []*profile.Device{
		{Bus: 1, Address: 5, PortPath: []int{3}},
		{Bus: 1, Address: 2, PortPath: []int{1}, Class: hubClass()},
		{Bus: 1, Address: 4, PortPath: []int{1, 4}},
		{Bus: 1, Address: 3, PortPath: []int{1, 1}},
		{Bus: 1, Address: 6, PortPath: []int{2}},
	}
	p := profile.Build(profile.BackendSysfs, nil, records)

	bus := p.GetBus(1)
	if !assert.NotNil(t, bus) {
		return
	}
	// Trunk devices insert in path order, so branch positions follow port
	// numbers here regardless of the input order.
	if !assert.Len(t, bus.Devices, 3) {
		return
	}
	assert.Equal(t, []int{1}, bus.Devices[0].PortPath)
	assert.Equal(t, 0, bus.Devices[0].BranchPosition())
	assert.Equal(t, []int{2}, bus.Devices[1].PortPath)
	assert.Equal(t, 1, bus.Devices[1].BranchPosition())
	assert.Equal(t, []int{3}, bus.Devices[2].PortPath)
	assert.Equal(t, 2, bus.Devices[2].BranchPosition())

	hub := bus.Devices[0]
	if !assert.Len(t, hub.Devices, 2) {
		return
	}
	assert.Equal(t, []int{1, 1}, hub.Devices[0].PortPath)
	assert.Equal(t, 0, hub.Devices[0].BranchPosition())
	assert.Equal(t, []int{1, 4}, hub.Devices[1].PortPath)
	assert.Equal(t, 1, hub.Devices[1].BranchPosition())
}

func TestBuildKeepsEmptyBuses(t *testing.T) {
	buses := []*profile.Bus{
		{Number: 1, Name: "EHCI Host Controller", PCIVendor: id(0x8086), PCIDevice: id(0x1e26)},
	}
	p := profile.Build(profile.BackendSysfs, buses, nil)

	if !assert.Len(t, p.Buses, 1) {
		return
	}
	assert.True(t, p.Buses[0].IsEmpty())
	assert.Equal(t, "EHCI Host Controller", p.Buses[0].Name)
	if assert.NotNil(t, p.Buses[0].PCIVendor) {
		assert.Equal(t, "0x8086", p.Buses[0].PCIVendor.String())
	}
}

func TestBuildCountPreservation(t *testing.T) {
	// Whatever the topology gaps, every input record must end up in the
	// tree exactly once.
	records := []*profile.Device{
		{Bus: 1, Address: 2, PortPath: []int{1}},
		{Bus: 1, Address: 3, PortPath: []int{2, 3, 4}},
		{Bus: 1, Address: 4, PortPath: []int{2, 3}},
		{Bus: 1, Address: 5},
		{Bus: 2, Address: 2, PortPath: []int{1}},
	}
	p := profile.Build(profile.BackendSysfs, nil, records)
	assert.Equal(t, len(records), p.Len())
}

package display_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmault/buscope/internal/display"
	"github.com/jmault/buscope/profile"
	"github.com/jmault/buscope/usb"
	"github.com/jmault/buscope/usbids"
)

func id(v uint16) *profile.ID {
	i := profile.ID(v)
	return &i
}

// displayTree builds one bus: root hub, a hub at [1] with a keyboard at
// [1,1], and a flash drive at [2].
func displayTree() *profile.Profile {
	hubClass := usb.ClassTriplet{Base: usb.ClassHub}
	return profile.Build(profile.BackendSysfs, nil, []*profile.Device{
		{
			Bus: 1, Address: 1,
			VendorID: id(0x1d6b), ProductID: id(0x0002),
			Name: "xHCI Host Controller", Manufacturer: "Linux xhci-hcd",
			Class: &hubClass, Speed: usb.SpeedHigh,
		},
		{
			Bus: 1, Address: 2, PortPath: []int{1},
			VendorID: id(0x05e3), ProductID: id(0x0608),
			Name: "USB2.0 Hub", Class: &hubClass, Speed: usb.SpeedHigh,
		},
		{
			Bus: 1, Address: 3, PortPath: []int{1, 1},
			VendorID: id(0x046d), ProductID: id(0xc335),
			Name: "Gaming Keyboard", Serial: "KB9000", Speed: usb.SpeedFull,
			Configurations: []profile.Configuration{{
				Value: 1, MaxPower: 98, Attributes: []string{"remote-wakeup"},
				Interfaces: []profile.Interface{{
					Number: 0,
					Class:  usb.ClassTriplet{Base: usb.ClassHID, Sub: 1, Protocol: 1},
					Driver: "usbhid",
					Endpoints: []profile.Endpoint{
						{Address: 0x81, Attributes: 0x03, MaxPacketSize: 8, Interval: 10},
					},
				}},
			}},
		},
		{
			Bus: 1, Address: 4, PortPath: []int{2},
			VendorID: id(0x0781), ProductID: id(0x5567),
			Name: "Cruzer Blade", Serial: "4C5300", Speed: usb.SpeedHigh,
		},
	})
}

func render(t *testing.T, p *profile.Profile, s display.Settings) string {
	t.Helper()
	var buf bytes.Buffer
	r := display.New(&buf, s, nil)
	if !assert.NoError(t, r.Render(p)) {
		t.FailNow()
	}
	return buf.String()
}

func TestListColumns(t *testing.T) {
	out := render(t, displayTree(), display.Settings{Headings: true})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	// Heading plus root hub plus three devices.
	if !assert.Len(t, lines, 5) {
		return
	}
	assert.Equal(t, []string{"BUS", "DEV", "ID", "NAME", "SERIAL", "SPEED"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"1", "1", "1d6b:0002", "xHCI", "Host", "Controller", "480M"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"1", "3", "046d:c335", "Gaming", "Keyboard", "KB9000", "12M"}, strings.Fields(lines[3]))
}

func TestListVerbosityRevealsDetail(t *testing.T) {
	out := render(t, displayTree(), display.Settings{Verbosity: 3})
	assert.Contains(t, out, "Config 1: 1 interfaces 98mA remote-wakeup")
	assert.Contains(t, out, "Interface 0.0: Human Interface Device driver usbhid")
	assert.Contains(t, out, "EP 1 IN Interrupt 8 bytes interval 10")

	quiet := render(t, displayTree(), display.Settings{Verbosity: 1})
	assert.Contains(t, quiet, "Config 1:")
	assert.NotContains(t, quiet, "Interface 0.0:")
}

func TestListGroupByBus(t *testing.T) {
	two := profile.Build(profile.BackendSysfs, nil, []*profile.Device{
		{Bus: 1, Address: 1, Name: "xHCI Host Controller"},
		{Bus: 2, Address: 1, Name: "EHCI Host Controller"},
		{Bus: 2, Address: 3, PortPath: []int{4}, Name: "Mouse"},
	})
	out := render(t, two, display.Settings{Group: profile.GroupBus})
	assert.Contains(t, out, "Bus 001: xHCI Host Controller\n")
	assert.Contains(t, out, "Bus 002: EHCI Host Controller\n")
	assert.Less(t, strings.Index(out, "Bus 001"), strings.Index(out, "Bus 002"))
}

func TestTreeUTF8(t *testing.T) {
	out := render(t, displayTree(), display.Settings{Tree: true})
	assert.Contains(t, out, "● Bus 001: xHCI Host Controller")
	// Hub at port 1 has a sibling below it, keyboard is the hub's only
	// child, flash drive closes the bus.
	assert.Contains(t, out, "├──   2 05e3:0608 USB2.0 Hub 480M")
	assert.Contains(t, out, "│  └──   3 046d:c335 Gaming Keyboard KB9000 12M")
	assert.Contains(t, out, "└──   4 0781:5567 Cruzer Blade 4C5300 480M")
}

func TestTreeASCII(t *testing.T) {
	out := render(t, displayTree(), display.Settings{Tree: true, Encoding: display.EncodingASCII})
	assert.Contains(t, out, "/: Bus 001")
	assert.Contains(t, out, "|__   2 05e3:0608 USB2.0 Hub 480M")
	assert.Contains(t, out, "|  |__   3 046d:c335 Gaming Keyboard KB9000 12M")
	assert.NotContains(t, out, "├")
}

func TestTreeMarksDetachedDevices(t *testing.T) {
	p := profile.Build(profile.BackendSysfs, nil, []*profile.Device{
		{Bus: 1, Address: 1, Name: "xHCI Host Controller"},
		{Bus: 1, Address: 9, PortPath: []int{3, 2}, Name: "Orphan"},
	})
	out := render(t, p, display.Settings{Tree: true})
	assert.Contains(t, out, "Orphan")
	assert.Contains(t, out, "[detached]")
}

func TestSerialMasking(t *testing.T) {
	hidden := render(t, displayTree(), display.Settings{Mask: display.MaskHide})
	assert.NotContains(t, hidden, "KB9000")

	masked := render(t, displayTree(), display.Settings{Mask: display.MaskAsterisk})
	assert.NotContains(t, masked, "KB9000")
	assert.Contains(t, masked, "******")
}

func TestLsusbLines(t *testing.T) {
	out := render(t, displayTree(), display.Settings{Lsusb: true})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if !assert.Len(t, lines, 4) {
		return
	}
	assert.Equal(t, "Bus 001 Device 001: ID 1d6b:0002 Linux xhci-hcd xHCI Host Controller", lines[0])
	assert.Equal(t, "Bus 001 Device 003: ID 046d:c335 Gaming Keyboard", lines[2])
}

func TestNameDatabaseFillsMissingNames(t *testing.T) {
	db, err := usbids.Parse(strings.NewReader(
		"046d  Logitech, Inc.\n\tc335  G910 Mechanical Keyboard\n"))
	if !assert.NoError(t, err) {
		return
	}
	p := profile.Build(profile.BackendDevfs, nil, []*profile.Device{
		{Bus: 1, Address: 1, Name: "xHCI Host Controller"},
		{Bus: 1, Address: 3, PortPath: []int{1}, VendorID: id(0x046d), ProductID: id(0xc335)},
	})

	var buf bytes.Buffer
	r := display.New(&buf, display.Settings{Lsusb: true}, db)
	if !assert.NoError(t, r.Render(p)) {
		return
	}
	assert.Contains(t, buf.String(),
		"Bus 001 Device 003: ID 046d:c335 Logitech, Inc. G910 Mechanical Keyboard")
}

func TestWidthTruncatesNames(t *testing.T) {
	p := profile.Build(profile.BackendSysfs, nil, []*profile.Device{
		{Bus: 1, Address: 1, Name: "xHCI Host Controller"},
		{
			Bus: 1, Address: 2, PortPath: []int{1},
			Name: "An Extremely Long Product Name That Cannot Possibly Fit Anywhere",
		},
	})
	out := render(t, p, display.Settings{Width: 48})
	assert.Contains(t, out, "...")
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), 60)
	}
}

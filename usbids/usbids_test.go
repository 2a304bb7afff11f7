package usbids_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmault/buscope/usbids"
)

const sample = `# test database
1d6b  Linux Foundation
	0002  2.0 root hub
	0003  3.0 root hub
046d  Logitech, Inc.
	c31c  Keyboard K120

C 03  Human Interface Device
	01  Boot Interface Subclass
		01  Keyboard
		02  Mouse
C 09  Hub
	00  Unused
		01  Single TT

AT 01  OTG flags
	01  SRP only
HID 21  HID Descriptor
`

func TestParse(t *testing.T) {
	db, err := usbids.Parse(strings.NewReader(sample))
	if !assert.NoError(t, err) {
		return
	}

	assert.Equal(t, "Linux Foundation", db.Vendor(0x1d6b))
	assert.Equal(t, "2.0 root hub", db.Product(0x1d6b, 0x0002))
	assert.Equal(t, "Keyboard K120", db.Product(0x046d, 0xc31c))
	assert.Equal(t, "", db.Vendor(0xdead))
	assert.Equal(t, "", db.Product(0x1d6b, 0x9999))

	vendorName, productName := db.DeviceNames(0x1d6b, 0x0003)
	assert.Equal(t, "Linux Foundation", vendorName)
	assert.Equal(t, "3.0 root hub", productName)

	assert.Equal(t, "Human Interface Device", db.ClassName(0x03))
	assert.Equal(t, "Boot Interface Subclass", db.SubClassName(0x03, 0x01))
	assert.Equal(t, "Mouse", db.ProtocolName(0x03, 0x01, 0x02))
	assert.Equal(t, "Single TT", db.ProtocolName(0x09, 0x00, 0x01))
	assert.Equal(t, "", db.ClassName(0x42))
	assert.Equal(t, "", db.ProtocolName(0x03, 0x01, 0x7f))
}

func TestParseSkipsForeignSections(t *testing.T) {
	// The AT and HID sections trail the class table; their entries must
	// not bleed into the last parsed class.
	db, err := usbids.Parse(strings.NewReader(sample))
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, "", db.SubClassName(0x09, 0x01))
	assert.Equal(t, "", db.ClassName(0x21))
}

func TestParseEmptyInput(t *testing.T) {
	_, err := usbids.Parse(strings.NewReader("# nothing here\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usb.ids")
	if !assert.NoError(t, os.WriteFile(path, []byte(sample), 0o644)) {
		return
	}

	db, err := usbids.LoadFile(path)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, "Logitech, Inc.", db.Vendor(0x046d))

	_, err = usbids.LoadFile(filepath.Join(t.TempDir(), "missing.ids"))
	assert.Error(t, err)
}

func TestLoadAlwaysReturnsDatabase(t *testing.T) {
	// Whether or not the host has a system usb.ids, Load must come back
	// with something that knows about root hubs.
	db := usbids.Load()
	if !assert.NotNil(t, db) {
		return
	}
	assert.Equal(t, "Linux Foundation", db.Vendor(0x1d6b))
	assert.NotEmpty(t, db.Product(0x1d6b, 0x0002))
}

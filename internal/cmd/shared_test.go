package cmd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmault/buscope/internal/cmd"
	"github.com/jmault/buscope/profile"
	"github.com/jmault/buscope/usb"
)

func TestQueryFilterParsesCriteria(t *testing.T) {
	q := &cmd.QueryConfig{VidPid: "046d:c335", Show: "1:4", FilterClass: "hid", FilterName: "Key"}

	f, err := q.Filter()
	if !assert.NoError(t, err) {
		return
	}
	if assert.NotNil(t, f.VendorID) {
		assert.Equal(t, uint16(0x046d), *f.VendorID)
	}
	if assert.NotNil(t, f.ProductID) {
		assert.Equal(t, uint16(0xc335), *f.ProductID)
	}
	if assert.NotNil(t, f.Bus) {
		assert.Equal(t, 1, *f.Bus)
	}
	if assert.NotNil(t, f.Address) {
		assert.Equal(t, 4, *f.Address)
	}
	if assert.NotNil(t, f.Class) {
		assert.Equal(t, usb.ClassHID, *f.Class)
	}
	assert.Equal(t, "Key", f.Name)
}

func TestQueryFilterRejectsBadInput(t *testing.T) {
	tests := []struct {
		name  string
		query cmd.QueryConfig
	}{
		{"vidpid not hex", cmd.QueryConfig{VidPid: "zz"}},
		{"show not decimal", cmd.QueryConfig{Show: "1:three"}},
		{"unknown class", cmd.QueryConfig{FilterClass: "warp-drive"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.query.Filter()
			assert.Error(t, err)
		})
	}
}

func TestQueryApplyPrunesAndSorts(t *testing.T) {
	vid := profile.ID(0x046d)
	other := profile.ID(0x0781)
	p := profile.Build(profile.BackendSysfs,
		[]*profile.Bus{{Number: 1}, {Number: 2}},
		[]*profile.Device{
			{Bus: 1, Address: 1},
			{Bus: 1, Address: 7, PortPath: []int{2}, VendorID: &vid},
			{Bus: 1, Address: 3, PortPath: []int{1}, VendorID: &vid},
			{Bus: 1, Address: 5, PortPath: []int{3}, VendorID: &other},
			{Bus: 2, Address: 1},
		})

	q := &cmd.QueryConfig{VidPid: "046d", HideBuses: true, Sort: profile.SortDeviceNumber}
	if !assert.NoError(t, q.Apply(p)) {
		return
	}

	if !assert.Len(t, p.Buses, 1) {
		return
	}
	b := p.Buses[0]
	assert.Equal(t, 1, b.Number)
	if assert.Len(t, b.Devices, 2) {
		assert.Equal(t, 3, b.Devices[0].Address)
		assert.Equal(t, 7, b.Devices[1].Address)
	}
}

func TestDisplaySettingsClampVerbosity(t *testing.T) {
	d := &cmd.DisplayConfig{Verbose: 5, Encoding: "ascii", MaskSerial: "hide"}

	s := d.Settings(true, profile.GroupBus)
	assert.Equal(t, 3, s.Verbosity)
	assert.True(t, s.Tree)
	assert.Equal(t, profile.GroupBus, s.Group)
}

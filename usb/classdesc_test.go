package usb_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jmault/buscope/usb"
)

func TestCdcFunctionalDescriptors(t *testing.T) {
	// CDC ethernet control interface with header, ethernet and ACM
	// functional descriptors ahead of the notification endpoint
	raw := []byte{
		0x09, 0x02, 0x2f, 0x00, 0x01, 0x01, 0x00, 0xc0, 0x00,
		0x09, 0x04, 0x00, 0x00, 0x01, 0x02, 0x02, 0x01, 0x00,
		0x05, 0x24, 0x00, 0x10, 0x01,
		0x0d, 0x24, 0x0f, 0x03, 0x00, 0x00, 0x00, 0x00, 0xea, 0x05, 0x00, 0x00, 0x00,
		0x04, 0x24, 0x02, 0x02,
		0x07, 0x05, 0x82, 0x03, 0x08, 0x00, 0x09,
	}

	cfg, err := usb.DecodeConfiguration(raw)
	if !assert.NoError(t, err) {
		return
	}
	assert.Empty(t, cfg.Warnings)

	if !assert.Len(t, cfg.Interfaces, 1) {
		return
	}
	iface := cfg.Interfaces[0]
	if !assert.Len(t, iface.Extra, 3) {
		return
	}

	header, ok := iface.Extra[0].(usb.CDCDescriptor)
	if assert.True(t, ok) {
		assert.Equal(t, usb.CDCHeader, header.Subtype)
		assert.Equal(t, uint8(0), header.StringIndex)
	}

	eth, ok := iface.Extra[1].(usb.CDCDescriptor)
	if assert.True(t, ok) {
		assert.Equal(t, usb.CDCEthernetNetworking, eth.Subtype)
		assert.Equal(t, "Ethernet Networking", eth.Subtype.String())
		assert.Equal(t, uint8(3), eth.StringIndex, "iMACAddress string reference")
	}

	acm, ok := iface.Extra[2].(usb.CDCDescriptor)
	if assert.True(t, ok) {
		assert.Equal(t, usb.CDCAbstractControlManagement, acm.Subtype)
		assert.Equal(t, []byte{0x02}, acm.Data)
	}

	if assert.Len(t, iface.Endpoints, 1) {
		assert.Empty(t, iface.Endpoints[0].Extra)
	}

	assert.Equal(t, raw, cfg.Encode())
}

func TestCcidSharesHidTypeValue(t *testing.T) {
	// the smart-card functional descriptor reuses 0x21; the interface class
	// decides which decode applies
	ccid := []byte{
		0x36, 0x21, 0x10, 0x01, 0x00, 0x07,
		0x03, 0x00, 0x00, 0x00,
		0xa0, 0x0f, 0x00, 0x00,
		0x80, 0xa9, 0x03, 0x00,
		0x00,
		0x80, 0x25, 0x00, 0x00,
		0x00, 0xc2, 0x01, 0x00,
		0x00,
		0xfe, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00,
		0x30, 0x00, 0x01, 0x00,
		0x0f, 0x01, 0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x01,
	}
	raw := append([]byte{
		0x09, 0x02, 0x48, 0x00, 0x01, 0x01, 0x00, 0x80, 0x32,
		0x09, 0x04, 0x00, 0x00, 0x00, 0x0b, 0x00, 0x00, 0x00,
	}, ccid...)

	cfg, err := usb.DecodeConfiguration(raw)
	if !assert.NoError(t, err) {
		return
	}
	assert.Empty(t, cfg.Warnings)

	if !assert.Len(t, cfg.Interfaces, 1) || !assert.Len(t, cfg.Interfaces[0].Extra, 1) {
		return
	}
	d, ok := cfg.Interfaces[0].Extra[0].(usb.CCIDDescriptor)
	if !assert.True(t, ok, "expected a CCID descriptor under the smart card class") {
		return
	}

	assert.Equal(t, "1.10", d.CCID.String())
	assert.Equal(t, uint8(0), d.MaxSlotIndex)
	assert.Equal(t, uint8(0x07), d.VoltageSupport)
	assert.Equal(t, uint32(3), d.Protocols)
	assert.Equal(t, uint32(4000), d.DefaultClock)
	assert.Equal(t, uint32(240000), d.MaximumClock)
	assert.Equal(t, uint32(9600), d.DataRate)
	assert.Equal(t, uint32(115200), d.MaxDataRate)
	assert.Equal(t, uint32(254), d.MaxIFSD)
	assert.Equal(t, uint32(0x00010030), d.Features)
	assert.Equal(t, uint32(271), d.MaxMessageLength)
	assert.Equal(t, uint8(1), d.MaxBusySlots)

	assert.Equal(t, ccid, d.Encode())
	assert.Equal(t, raw, cfg.Encode())
}

// buildSingleInterfaceConfig wraps one class-specific descriptor in a
// minimal configuration so the walk applies the given interface class.
func buildSingleInterfaceConfig(class usb.ClassTriplet, desc []byte) []byte {
	total := 18 + len(desc)
	raw := []byte{
		0x09, 0x02, uint8(total), uint8(total >> 8), 0x01, 0x01, 0x00, 0x80, 0x00,
		0x09, 0x04, 0x00, 0x00, 0x00, uint8(class.Base), class.Sub, class.Protocol, 0x00,
	}
	return append(raw, desc...)
}

func TestClassSpecificStringIndexes(t *testing.T) {
	tests := []struct {
		name      string
		class     usb.ClassTriplet
		desc      []byte
		wantIndex uint8
	}{
		{
			name:      "midi input jack",
			class:     usb.ClassTriplet{Base: usb.ClassAudio, Sub: 3},
			desc:      []byte{0x06, 0x24, 0x02, 0x01, 0x01, 0x05},
			wantIndex: 5,
		},
		{
			name:      "midi output jack",
			class:     usb.ClassTriplet{Base: usb.ClassAudio, Sub: 3},
			desc:      []byte{0x09, 0x24, 0x03, 0x01, 0x02, 0x01, 0x01, 0x01, 0x06},
			wantIndex: 6,
		},
		{
			name:      "uvc processing unit",
			class:     usb.ClassTriplet{Base: usb.ClassVideo, Sub: 1},
			desc:      []byte{0x0d, 0x24, 0x05, 0x02, 0x01, 0x00, 0x40, 0x03, 0x00, 0x00, 0x00, 0x07, 0x00},
			wantIndex: 7,
		},
		{
			name:      "uvc input terminal",
			class:     usb.ClassTriplet{Base: usb.ClassVideo, Sub: 1},
			desc:      []byte{0x12, 0x24, 0x02, 0x01, 0x01, 0x02, 0x00, 0x04, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00},
			wantIndex: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := usb.DecodeConfiguration(buildSingleInterfaceConfig(tt.class, tt.desc))
			if !assert.NoError(t, err) {
				return
			}
			if !assert.Len(t, cfg.Interfaces, 1) || !assert.Len(t, cfg.Interfaces[0].Extra, 1) {
				return
			}

			var got uint8
			switch d := cfg.Interfaces[0].Extra[0].(type) {
			case usb.MIDIDescriptor:
				got = d.StringIndex
			case usb.UVCDescriptor:
				got = d.StringIndex
			case usb.CDCDescriptor:
				got = d.StringIndex
			default:
				t.Fatalf("unexpected descriptor type %T", d)
			}
			assert.Equal(t, tt.wantIndex, got)
		})
	}
}

func TestInterfaceAssociationDescriptor(t *testing.T) {
	raw := []byte{
		0x09, 0x02, 0x23, 0x00, 0x02, 0x01, 0x00, 0x80, 0x32,
		0x08, 0x0b, 0x00, 0x02, 0x0e, 0x03, 0x00, 0x05,
		0x09, 0x04, 0x00, 0x00, 0x00, 0x0e, 0x01, 0x00, 0x00,
		0x09, 0x04, 0x01, 0x00, 0x00, 0x0e, 0x02, 0x00, 0x00,
	}

	cfg, err := usb.DecodeConfiguration(raw)
	if !assert.NoError(t, err) {
		return
	}

	// the association precedes its interfaces, so it hangs off the config
	if !assert.Len(t, cfg.Extra, 1) {
		return
	}
	iad, ok := cfg.Extra[0].(usb.InterfaceAssociation)
	if !assert.True(t, ok) {
		return
	}
	assert.Equal(t, uint8(0), iad.FirstInterface)
	assert.Equal(t, uint8(2), iad.InterfaceCount)
	assert.Equal(t, usb.ClassTriplet{Base: usb.ClassVideo, Sub: 3}, iad.Function)
	assert.Equal(t, uint8(5), iad.StringIndex)

	assert.Len(t, cfg.Interfaces, 2)
	assert.Equal(t, raw, cfg.Encode())
}

func TestSsCompanionAttachesToEndpoint(t *testing.T) {
	raw := []byte{
		0x09, 0x02, 0x1f, 0x00, 0x01, 0x01, 0x00, 0x80, 0x32,
		0x09, 0x04, 0x00, 0x00, 0x01, 0x08, 0x06, 0x50, 0x00,
		0x07, 0x05, 0x81, 0x02, 0x00, 0x04, 0x00,
		0x06, 0x30, 0x0f, 0x00, 0x00, 0x00,
	}

	cfg, err := usb.DecodeConfiguration(raw)
	if !assert.NoError(t, err) {
		return
	}

	if !assert.Len(t, cfg.Interfaces, 1) || !assert.Len(t, cfg.Interfaces[0].Endpoints, 1) {
		return
	}
	ep := cfg.Interfaces[0].Endpoints[0]
	if !assert.Len(t, ep.Extra, 1) {
		return
	}
	comp, ok := ep.Extra[0].(usb.SsEndpointCompanion)
	if !assert.True(t, ok) {
		return
	}
	assert.Equal(t, uint8(15), comp.MaxBurst)
	assert.Equal(t, uint16(0), comp.BytesPerInterval)

	assert.Equal(t, raw, cfg.Encode())
}

func TestUnknownDescriptorPreserved(t *testing.T) {
	vendor := []byte{0x05, 0x41, 0x01, 0x02, 0x03}
	raw := append([]byte{
		0x09, 0x02, 0x17, 0x00, 0x01, 0x01, 0x00, 0x80, 0x00,
		0x09, 0x04, 0x00, 0x00, 0x00, 0xff, 0x00, 0x00, 0x00,
	}, vendor...)

	cfg, err := usb.DecodeConfiguration(raw)
	if !assert.NoError(t, err) {
		return
	}
	assert.Empty(t, cfg.Warnings)

	if !assert.Len(t, cfg.Interfaces, 1) || !assert.Len(t, cfg.Interfaces[0].Extra, 1) {
		return
	}
	unknown, ok := cfg.Interfaces[0].Extra[0].(usb.UnknownDescriptor)
	if !assert.True(t, ok) {
		return
	}
	assert.Equal(t, vendor, unknown.Raw)
	assert.Equal(t, uint8(0x41), unknown.ExtraType())

	assert.Equal(t, raw, cfg.Encode())
}

func TestDecodeHubDescriptor(t *testing.T) {
	raw := []byte{0x09, 0x29, 0x04, 0xe9, 0x00, 0x32, 0x64, 0x00, 0xff}

	hub, err := usb.DecodeHubDescriptor(raw)
	if !assert.NoError(t, err) {
		return
	}

	assert.Equal(t, uint8(4), hub.NumPorts)
	assert.Equal(t, uint16(0x00e9), hub.Characteristics)
	assert.Equal(t, uint8(0x32), hub.PowerOnGood)
	assert.Equal(t, uint8(0x64), hub.ControllerCurrent)
	assert.Equal(t, []byte{0x00, 0xff}, hub.Tail)
	assert.False(t, hub.CompoundDevice())
	assert.True(t, hub.PortIndicators())

	assert.Equal(t, raw, hub.Encode())
}

func TestDecodeHubDescriptorErrors(t *testing.T) {
	_, err := usb.DecodeHubDescriptor([]byte{0x07, 0x05, 0x81, 0x02, 0x00, 0x02, 0x00})
	assert.ErrorIs(t, err, usb.ErrMalformed)

	_, err = usb.DecodeHubDescriptor([]byte{0x04, 0x29, 0x04})
	assert.ErrorIs(t, err, usb.ErrTruncated)
}

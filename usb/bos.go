package usb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
)

// webUSBGUID marks a platform capability as the WebUSB descriptor.
const webUSBGUID = "{3408b638-09a9-47a0-8bfd-a0768815b665}"

// BosCapabilityType is the bDevCapabilityType of a BOS capability.
type BosCapabilityType uint8

const (
	BosWirelessUSB          BosCapabilityType = 0x01
	BosUSB2Extension        BosCapabilityType = 0x02
	BosSuperSpeed           BosCapabilityType = 0x03
	BosContainerID          BosCapabilityType = 0x04
	BosPlatform             BosCapabilityType = 0x05
	BosSuperSpeedPlus       BosCapabilityType = 0x0a
	BosBillboard            BosCapabilityType = 0x0d
	BosBillboardAltMode     BosCapabilityType = 0x0f
	BosConfigurationSummary BosCapabilityType = 0x10
)

var bosCapabilityNames = map[BosCapabilityType]string{
	BosWirelessUSB:          "Wireless USB",
	BosUSB2Extension:        "USB 2.0 Extension",
	BosSuperSpeed:           "SuperSpeed",
	BosContainerID:          "Container ID",
	BosPlatform:             "Platform",
	BosSuperSpeedPlus:       "SuperSpeed Plus",
	BosBillboard:            "Billboard",
	BosBillboardAltMode:     "Billboard Alt Mode",
	BosConfigurationSummary: "Configuration Summary",
}

func (t BosCapabilityType) String() string {
	if name, ok := bosCapabilityNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02x)", uint8(t))
}

// BosCapability is one device capability inside a BOS descriptor. Platform
// capabilities (and their WebUSB special case) are expanded; everything
// else keeps its payload raw.
type BosCapability interface {
	CapabilityType() BosCapabilityType
	Encode() []byte

	isBosCapability()
}

// GenericCapability holds a capability the decoder does not expand.
type GenericCapability struct {
	Type BosCapabilityType
	Data []byte
}

func (c GenericCapability) CapabilityType() BosCapabilityType { return c.Type }
func (c GenericCapability) Encode() []byte {
	var b bytes.Buffer
	b.WriteByte(uint8(3 + len(c.Data)))
	b.WriteByte(DeviceCapabilityDescType)
	b.WriteByte(uint8(c.Type))
	b.Write(c.Data)
	return b.Bytes()
}
func (c GenericCapability) isBosCapability() {}

// PlatformCapability is a platform-specific capability identified by GUID.
type PlatformCapability struct {
	Reserved uint8
	GUID     string
	Data     []byte
}

func (c PlatformCapability) CapabilityType() BosCapabilityType { return BosPlatform }
func (c PlatformCapability) Encode() []byte {
	var b bytes.Buffer
	b.WriteByte(uint8(20 + len(c.Data)))
	b.WriteByte(DeviceCapabilityDescType)
	b.WriteByte(uint8(BosPlatform))
	b.WriteByte(c.Reserved)
	guid, err := parseGUID(c.GUID)
	if err != nil {
		guid = [16]byte{}
	}
	b.Write(guid[:])
	b.Write(c.Data)
	return b.Bytes()
}
func (c PlatformCapability) isBosCapability() {}

// WebUSBPlatformCapability is the platform capability carrying the WebUSB
// vendor request code and landing page reference.
type WebUSBPlatformCapability struct {
	Platform         PlatformCapability
	WebUSB           Version
	VendorCode       uint8
	LandingPageIndex uint8
}

func (c WebUSBPlatformCapability) CapabilityType() BosCapabilityType { return BosPlatform }
func (c WebUSBPlatformCapability) Encode() []byte {
	var b bytes.Buffer
	b.WriteByte(uint8(24 + len(c.Platform.Data)))
	b.WriteByte(DeviceCapabilityDescType)
	b.WriteByte(uint8(BosPlatform))
	b.WriteByte(c.Platform.Reserved)
	guid, err := parseGUID(c.Platform.GUID)
	if err != nil {
		guid = [16]byte{}
	}
	b.Write(guid[:])
	_ = binary.Write(&b, binary.LittleEndian, c.WebUSB.BCD())
	b.WriteByte(c.VendorCode)
	b.WriteByte(c.LandingPageIndex)
	b.Write(c.Platform.Data)
	return b.Bytes()
}
func (c WebUSBPlatformCapability) isBosCapability() {}

// BOS is a decoded Binary Object Store descriptor. Capabilities that fail
// to decode are reported in Warnings and preserved raw; a framing
// violation stops the walk and sets Truncated.
type BOS struct {
	TotalLength     uint16
	NumCapabilities uint8
	Capabilities    []BosCapability
	Truncated       bool
	Warnings        []error
}

// DecodeBOS decodes a Binary Object Store descriptor and the device
// capability descriptors that follow its header.
func DecodeBOS(b []byte) (BOS, error) {
	if len(b) < BosDescLen {
		return BOS{}, truncated("bos descriptor", BosDescLen, len(b))
	}
	if b[1] != BosDescType {
		return BOS{}, wrongType("bos descriptor", BosDescType, b[1])
	}
	bos := BOS{
		TotalLength:     binary.LittleEndian.Uint16(b[2:4]),
		NumCapabilities: b[4],
	}
	span := int(bos.TotalLength)
	if span > len(b) {
		span = len(b)
		bos.Truncated = true
	}
	if span < BosDescLen {
		span = BosDescLen
		bos.Truncated = true
	}
	rest := b[BosDescLen:span]
	for len(rest) > 0 {
		l := int(rest[0])
		if l < 3 || l > len(rest) {
			bos.Truncated = true
			break
		}
		c, err := decodeBosCapability(rest[:l])
		if err != nil {
			bos.Warnings = append(bos.Warnings, err)
		}
		bos.Capabilities = append(bos.Capabilities, c)
		rest = rest[l:]
	}
	return bos, nil
}

func decodeBosCapability(b []byte) (BosCapability, error) {
	if BosCapabilityType(b[2]) != BosPlatform {
		return GenericCapability{Type: BosCapabilityType(b[2]), Data: cloneBytes(b[3:])}, nil
	}
	if len(b) < 20 {
		return GenericCapability{Type: BosPlatform, Data: cloneBytes(b[3:])},
			truncated("platform capability descriptor", 20, len(b))
	}
	platform := PlatformCapability{
		Reserved: b[3],
		GUID:     formatGUID(b[4:20]),
		Data:     cloneBytes(b[20:]),
	}
	if platform.GUID != webUSBGUID {
		return platform, nil
	}
	if len(b) < 24 {
		return platform, truncated("webusb capability descriptor", 24, len(b))
	}
	platform.Data = cloneBytes(b[24:])
	return WebUSBPlatformCapability{
		Platform:         platform,
		WebUSB:           VersionFromBCD(binary.LittleEndian.Uint16(b[20:22])),
		VendorCode:       b[22],
		LandingPageIndex: b[23],
	}, nil
}

// Encode returns the wire form of the BOS descriptor and its capabilities,
// using the stored wTotalLength.
func (bos BOS) Encode() []byte {
	var b bytes.Buffer
	b.WriteByte(BosDescLen)
	b.WriteByte(BosDescType)
	_ = binary.Write(&b, binary.LittleEndian, bos.TotalLength)
	b.WriteByte(bos.NumCapabilities)
	for _, c := range bos.Capabilities {
		b.Write(c.Encode())
	}
	return b.Bytes()
}

// formatGUID renders 16 GUID bytes in the registry text form, with the
// first three groups byte-swapped per the on-wire GUID encoding.
func formatGUID(b []byte) string {
	if len(b) < 16 {
		return "INVALID GUID"
	}
	return fmt.Sprintf("{%02x%02x%02x%02x-%02x%02x-%02x%02x-%02x%02x-%02x%02x%02x%02x%02x%02x}",
		b[3], b[2], b[1], b[0],
		b[5], b[4],
		b[7], b[6],
		b[8], b[9],
		b[10], b[11], b[12], b[13], b[14], b[15])
}

func parseGUID(s string) ([16]byte, error) {
	var out [16]byte
	s = strings.TrimPrefix(strings.TrimSuffix(s, "}"), "{")
	parts := strings.Split(s, "-")
	if len(parts) != 5 {
		return out, fmt.Errorf("malformed guid %q", s)
	}
	var raw []byte
	for _, p := range parts {
		for i := 0; i+1 < len(p); i += 2 {
			var v uint8
			if _, err := fmt.Sscanf(p[i:i+2], "%02x", &v); err != nil {
				return out, fmt.Errorf("malformed guid %q", s)
			}
			raw = append(raw, v)
		}
	}
	if len(raw) != 16 {
		return out, fmt.Errorf("malformed guid %q", s)
	}
	out[0], out[1], out[2], out[3] = raw[3], raw[2], raw[1], raw[0]
	out[4], out[5] = raw[5], raw[4]
	out[6], out[7] = raw[7], raw[6]
	copy(out[8:], raw[8:])
	return out, nil
}

package usb

import (
	"bytes"
	"encoding/binary"
)

// DeviceDescriptor is the decoded standard device descriptor (18 bytes).
type DeviceDescriptor struct {
	USB               Version
	Class             ClassTriplet
	MaxPacketSize     uint8
	VendorID          uint16
	ProductID         uint16
	Device            Version // bcdDevice release number
	ManufacturerIndex uint8
	ProductIndex      uint8
	SerialIndex       uint8
	NumConfigurations uint8
}

// DecodeDeviceDescriptor decodes a standard device descriptor.
func DecodeDeviceDescriptor(b []byte) (DeviceDescriptor, error) {
	if len(b) < DeviceDescLen {
		return DeviceDescriptor{}, truncated("device descriptor", DeviceDescLen, len(b))
	}
	if b[1] != DeviceDescType {
		return DeviceDescriptor{}, wrongType("device descriptor", DeviceDescType, b[1])
	}
	return DeviceDescriptor{
		USB:               VersionFromBCD(binary.LittleEndian.Uint16(b[2:4])),
		Class:             ClassTriplet{Base: ClassCode(b[4]), Sub: b[5], Protocol: b[6]},
		MaxPacketSize:     b[7],
		VendorID:          binary.LittleEndian.Uint16(b[8:10]),
		ProductID:         binary.LittleEndian.Uint16(b[10:12]),
		Device:            VersionFromBCD(binary.LittleEndian.Uint16(b[12:14])),
		ManufacturerIndex: b[14],
		ProductIndex:      b[15],
		SerialIndex:       b[16],
		NumConfigurations: b[17],
	}, nil
}

// Encode returns the wire form of the descriptor.
func (d DeviceDescriptor) Encode() []byte {
	var b bytes.Buffer
	b.WriteByte(DeviceDescLen)
	b.WriteByte(DeviceDescType)
	_ = binary.Write(&b, binary.LittleEndian, d.USB.BCD())
	b.WriteByte(uint8(d.Class.Base))
	b.WriteByte(d.Class.Sub)
	b.WriteByte(d.Class.Protocol)
	b.WriteByte(d.MaxPacketSize)
	_ = binary.Write(&b, binary.LittleEndian, d.VendorID)
	_ = binary.Write(&b, binary.LittleEndian, d.ProductID)
	_ = binary.Write(&b, binary.LittleEndian, d.Device.BCD())
	b.WriteByte(d.ManufacturerIndex)
	b.WriteByte(d.ProductIndex)
	b.WriteByte(d.SerialIndex)
	b.WriteByte(d.NumConfigurations)
	return b.Bytes()
}

// ConfigAttributes is the raw bmAttributes byte of a configuration
// descriptor; bit 6 marks self-powered, bit 5 remote wakeup, bit 7 is
// always set on conforming devices.
type ConfigAttributes uint8

func (a ConfigAttributes) SelfPowered() bool  { return a&0x40 != 0 }
func (a ConfigAttributes) RemoteWakeup() bool { return a&0x20 != 0 }

// Strings lists the set attribute names.
func (a ConfigAttributes) Strings() []string {
	var out []string
	if a.SelfPowered() {
		out = append(out, "self-powered")
	}
	if a.RemoteWakeup() {
		out = append(out, "remote-wakeup")
	}
	return out
}

// ConfigAttributesFromStrings rebuilds the bitfield from attribute names,
// the inverse of Strings for dump deserialization.
func ConfigAttributesFromStrings(names []string) ConfigAttributes {
	a := ConfigAttributes(0x80)
	for _, n := range names {
		switch n {
		case "self-powered":
			a |= 0x40
		case "remote-wakeup":
			a |= 0x20
		}
	}
	return a
}

// Configuration is a fully walked configuration descriptor tree: the
// 9-byte header plus every subordinate interface, endpoint and
// class-specific descriptor contained in its wTotalLength span.
type Configuration struct {
	Value         uint8 // bConfigurationValue
	StringIndex   uint8
	Attributes    ConfigAttributes
	MaxPower      uint8  // raw units of 2 mA
	TotalLength   uint16 // wTotalLength as declared
	NumInterfaces uint8  // bNumInterfaces as declared
	Interfaces    []Interface
	Extra         []ExtraDescriptor // descriptors preceding the first interface

	// Truncated is set when the walk stopped before consuming the declared
	// total length: fewer bytes were supplied, or a sub-descriptor's length
	// field contradicted the remaining span. Everything decoded up to that
	// point is retained.
	Truncated bool
	// Warnings collects recoverable per-descriptor issues found during the
	// walk (undersized or misplaced sub-descriptors preserved as opaque
	// blobs). Never fatal.
	Warnings []error
}

// MaxPowerMilliAmps is the configured maximum draw in mA.
func (c Configuration) MaxPowerMilliAmps() int { return int(c.MaxPower) * 2 }

// Interface is one decoded interface descriptor (a single alternate
// setting) with its endpoints and class-specific descriptors.
type Interface struct {
	Number      uint8
	AltSetting  uint8
	Class       ClassTriplet
	StringIndex uint8
	// NumEndpoints is the declared count; len(Endpoints) is the decoded one.
	NumEndpoints uint8
	Endpoints    []Endpoint
	Extra        []ExtraDescriptor
}

// Endpoint is one decoded endpoint descriptor.
type Endpoint struct {
	Address       EndpointAddress
	Attributes    uint8  // raw bmAttributes; see TransferType/SyncType/UsageType
	MaxPacketSize uint16 // raw wMaxPacketSize; see PacketSize/Transactions
	Interval      uint8
	// Tail holds bytes beyond the standard seven; audio-class endpoints
	// append bRefresh and bSynchAddress here.
	Tail  []byte
	Extra []ExtraDescriptor
}

func (e Endpoint) TransferType() TransferType { return TransferType(e.Attributes & 0x03) }
func (e Endpoint) SyncType() SyncType         { return SyncType((e.Attributes & 0x0c) >> 2) }
func (e Endpoint) UsageType() UsageType       { return UsageType((e.Attributes & 0x30) >> 4) }

// PacketSize is the 11-bit max packet size in bytes.
func (e Endpoint) PacketSize() int { return int(e.MaxPacketSize & 0x07ff) }

// Transactions is the per-microframe transaction count (1-3) encoded in
// bits 11-12 for high-bandwidth endpoints.
func (e Endpoint) Transactions() int { return int((e.MaxPacketSize>>11)&0x03) + 1 }

// DecodeConfiguration walks one configuration descriptor blob. The header
// must be intact; everything past it degrades gracefully: the walk consumes
// bLength-framed sub-descriptors until the declared total length or the
// supplied bytes run out, whichever is first, flagging Truncated when they
// disagree. Sub-descriptors that are well-framed but undecodable are
// preserved opaquely and noted in Warnings.
func DecodeConfiguration(b []byte) (Configuration, error) {
	if len(b) < ConfigDescLen {
		return Configuration{}, truncated("configuration descriptor", ConfigDescLen, len(b))
	}
	if b[1] != ConfigDescType {
		return Configuration{}, wrongType("configuration descriptor", ConfigDescType, b[1])
	}
	cfg := Configuration{
		TotalLength:   binary.LittleEndian.Uint16(b[2:4]),
		NumInterfaces: b[4],
		Value:         b[5],
		StringIndex:   b[6],
		Attributes:    ConfigAttributes(b[7]),
		MaxPower:      b[8],
	}

	span := int(cfg.TotalLength)
	if span < ConfigDescLen {
		// declared total shorter than its own header
		cfg.Truncated = true
		return cfg, nil
	}
	if span > len(b) {
		cfg.Truncated = true
		span = len(b)
	}

	rest := b[ConfigDescLen:span]
	liveIface := -1 // index of the interface currently receiving children
	liveEp := -1    // index of that interface's endpoint receiving extras
	for len(rest) > 0 {
		l := int(rest[0])
		if l < 2 || l > len(rest) {
			// length field contradicts the remaining span; keep what we have
			cfg.Truncated = true
			break
		}
		chunk := rest[:l]
		switch chunk[1] {
		case InterfaceDescType:
			iface, err := decodeInterface(chunk)
			if err != nil {
				cfg.Warnings = append(cfg.Warnings, err)
				cfg.attach(liveIface, liveEp, UnknownDescriptor{Raw: cloneBytes(chunk)})
				break
			}
			cfg.Interfaces = append(cfg.Interfaces, iface)
			liveIface = len(cfg.Interfaces) - 1
			liveEp = -1
		case EndpointDescType:
			ep, err := decodeEndpoint(chunk)
			if err != nil || liveIface < 0 {
				if err == nil {
					err = &DescriptorError{Descriptor: "endpoint descriptor before any interface", Err: ErrMalformed}
				}
				cfg.Warnings = append(cfg.Warnings, err)
				cfg.attach(liveIface, liveEp, UnknownDescriptor{Raw: cloneBytes(chunk)})
				break
			}
			eps := &cfg.Interfaces[liveIface].Endpoints
			*eps = append(*eps, ep)
			liveEp = len(*eps) - 1
		default:
			class := ClassTriplet{}
			if liveIface >= 0 {
				class = cfg.Interfaces[liveIface].Class
			}
			extra, err := decodeExtra(chunk, class)
			if err != nil {
				cfg.Warnings = append(cfg.Warnings, err)
			}
			cfg.attach(liveIface, liveEp, extra)
		}
		rest = rest[l:]
	}
	return cfg, nil
}

// attach places an extra descriptor on the scope that is currently open:
// the last endpoint, else the last interface, else the configuration.
func (c *Configuration) attach(liveIface, liveEp int, extra ExtraDescriptor) {
	switch {
	case liveIface >= 0 && liveEp >= 0:
		ep := &c.Interfaces[liveIface].Endpoints[liveEp]
		ep.Extra = append(ep.Extra, extra)
	case liveIface >= 0:
		iface := &c.Interfaces[liveIface]
		iface.Extra = append(iface.Extra, extra)
	default:
		c.Extra = append(c.Extra, extra)
	}
}

func decodeInterface(b []byte) (Interface, error) {
	if len(b) < InterfaceDescLen {
		return Interface{}, truncated("interface descriptor", InterfaceDescLen, len(b))
	}
	return Interface{
		Number:       b[2],
		AltSetting:   b[3],
		NumEndpoints: b[4],
		Class:        ClassTriplet{Base: ClassCode(b[5]), Sub: b[6], Protocol: b[7]},
		StringIndex:  b[8],
	}, nil
}

func decodeEndpoint(b []byte) (Endpoint, error) {
	if len(b) < EndpointDescLen {
		return Endpoint{}, truncated("endpoint descriptor", EndpointDescLen, len(b))
	}
	ep := Endpoint{
		Address:       EndpointAddress(b[2]),
		Attributes:    b[3],
		MaxPacketSize: binary.LittleEndian.Uint16(b[4:6]),
		Interval:      b[6],
	}
	if len(b) > EndpointDescLen {
		ep.Tail = cloneBytes(b[EndpointDescLen:])
	}
	return ep, nil
}

// Encode reassembles the configuration blob in walk order. For well-formed
// input this reproduces the decoded bytes exactly.
func (c Configuration) Encode() []byte {
	var b bytes.Buffer
	b.WriteByte(ConfigDescLen)
	b.WriteByte(ConfigDescType)
	_ = binary.Write(&b, binary.LittleEndian, c.TotalLength)
	b.WriteByte(c.NumInterfaces)
	b.WriteByte(c.Value)
	b.WriteByte(c.StringIndex)
	b.WriteByte(uint8(c.Attributes))
	b.WriteByte(c.MaxPower)
	for _, e := range c.Extra {
		b.Write(e.Encode())
	}
	for _, i := range c.Interfaces {
		i.encodeTo(&b)
	}
	return b.Bytes()
}

func (i Interface) encodeTo(b *bytes.Buffer) {
	b.WriteByte(InterfaceDescLen)
	b.WriteByte(InterfaceDescType)
	b.WriteByte(i.Number)
	b.WriteByte(i.AltSetting)
	b.WriteByte(i.NumEndpoints)
	b.WriteByte(uint8(i.Class.Base))
	b.WriteByte(i.Class.Sub)
	b.WriteByte(i.Class.Protocol)
	b.WriteByte(i.StringIndex)
	for _, e := range i.Extra {
		b.Write(e.Encode())
	}
	for _, ep := range i.Endpoints {
		ep.encodeTo(b)
	}
}

func (e Endpoint) encodeTo(b *bytes.Buffer) {
	b.WriteByte(uint8(EndpointDescLen + len(e.Tail)))
	b.WriteByte(EndpointDescType)
	b.WriteByte(uint8(e.Address))
	b.WriteByte(e.Attributes)
	_ = binary.Write(b, binary.LittleEndian, e.MaxPacketSize)
	b.WriteByte(e.Interval)
	b.Write(e.Tail)
	for _, x := range e.Extra {
		b.Write(x.Encode())
	}
}

// DecodeDescriptors splits a concatenated device-plus-configurations blob,
// the layout of the sysfs `descriptors` attribute and of a usbfs device
// node read. A failure decoding the device descriptor is fatal; a broken
// configuration ends the walk with whatever was decoded, visible to the
// caller by comparing len(configs) with dev.NumConfigurations.
func DecodeDescriptors(b []byte) (DeviceDescriptor, []Configuration, error) {
	dev, err := DecodeDeviceDescriptor(b)
	if err != nil {
		return DeviceDescriptor{}, nil, err
	}
	var configs []Configuration
	rest := b[DeviceDescLen:]
	for len(rest) >= ConfigDescLen && rest[1] == ConfigDescType {
		cfg, err := DecodeConfiguration(rest)
		if err != nil {
			break
		}
		configs = append(configs, cfg)
		advance := int(cfg.TotalLength)
		if advance < ConfigDescLen || advance >= len(rest) {
			break
		}
		rest = rest[advance:]
	}
	return dev, configs, nil
}

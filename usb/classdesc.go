package usb

import (
	"bytes"
	"encoding/binary"
)

// ExtraDescriptor is a decoded class-specific or auxiliary descriptor found
// inside a configuration walk. The set of implementations is closed:
// anything the dispatch does not recognize becomes an UnknownDescriptor so
// the raw bytes survive for lossless re-encoding.
type ExtraDescriptor interface {
	// ExtraType is the raw bDescriptorType byte.
	ExtraType() uint8
	// Encode returns the original wire form.
	Encode() []byte

	isExtra()
}

// UnknownDescriptor preserves a descriptor the dispatch could not (or chose
// not to) interpret.
type UnknownDescriptor struct {
	Raw []byte
}

func (u UnknownDescriptor) ExtraType() uint8 {
	if len(u.Raw) > 1 {
		return u.Raw[1]
	}
	return 0
}
func (u UnknownDescriptor) Encode() []byte { return u.Raw }
func (u UnknownDescriptor) isExtra()       {}

// decodeExtra dispatches one well-framed chunk by its type byte and the
// class of the enclosing interface. It always returns a usable descriptor:
// on a decode failure the chunk is preserved opaquely and the error
// reported alongside as a warning.
func decodeExtra(chunk []byte, class ClassTriplet) (ExtraDescriptor, error) {
	var (
		d   ExtraDescriptor
		err error
	)
	switch chunk[1] {
	case InterfaceAssociationType:
		d, err = decodeIAD(chunk)
	case HIDDescType:
		// CCID functional descriptors reuse the 0x21 type value
		if class.Base == ClassSmartCard {
			d, err = decodeCCID(chunk)
		} else {
			d, err = decodeHID(chunk)
		}
	case ClassInterfaceDescType, ClassEndpointDescType:
		switch {
		case class.Base == ClassComm || class.Base == ClassCDCData:
			d, err = decodeCDC(chunk)
		case class.Base == ClassAudio && class.Sub == 3 && chunk[1] == ClassInterfaceDescType:
			d, err = decodeMIDI(chunk)
		case class.Base == ClassAudio:
			d, err = decodeAudio(chunk)
		case class.Base == ClassVideo:
			d, err = decodeUVC(chunk)
		default:
			d = UnknownDescriptor{Raw: cloneBytes(chunk)}
		}
	case SsEndpointCompanionDescType:
		d, err = decodeSsCompanion(chunk)
	case HubDescType, SuperSpeedHubDescType:
		d, err = decodeHub(chunk)
	default:
		d = UnknownDescriptor{Raw: cloneBytes(chunk)}
	}
	if err != nil {
		return UnknownDescriptor{Raw: cloneBytes(chunk)}, err
	}
	return d, nil
}

func cloneBytes(b []byte) []byte { return append([]byte(nil), b...) }

// HIDReportRef is one subordinate descriptor reference inside a HID
// descriptor: the type (usually 0x22, report) and its declared length.
type HIDReportRef struct {
	Type   uint8
	Length uint16
}

// HIDDescriptor is the HID class descriptor (type 0x21).
type HIDDescriptor struct {
	Type        uint8
	HID         Version
	CountryCode uint8
	Reports     []HIDReportRef
}

func decodeHID(b []byte) (HIDDescriptor, error) {
	if len(b) < 6 {
		return HIDDescriptor{}, truncated("hid descriptor", 6, len(b))
	}
	n := int(b[5])
	if len(b) < 6+3*n {
		return HIDDescriptor{}, truncated("hid descriptor", 6+3*n, len(b))
	}
	d := HIDDescriptor{
		Type:        b[1],
		HID:         VersionFromBCD(binary.LittleEndian.Uint16(b[2:4])),
		CountryCode: b[4],
		Reports:     make([]HIDReportRef, 0, n),
	}
	for i := 0; i < n; i++ {
		off := 6 + 3*i
		d.Reports = append(d.Reports, HIDReportRef{
			Type:   b[off],
			Length: binary.LittleEndian.Uint16(b[off+1 : off+3]),
		})
	}
	return d, nil
}

func (d HIDDescriptor) ExtraType() uint8 { return d.Type }
func (d HIDDescriptor) Encode() []byte {
	var b bytes.Buffer
	b.WriteByte(uint8(6 + 3*len(d.Reports)))
	b.WriteByte(d.Type)
	_ = binary.Write(&b, binary.LittleEndian, d.HID.BCD())
	b.WriteByte(d.CountryCode)
	b.WriteByte(uint8(len(d.Reports)))
	for _, r := range d.Reports {
		b.WriteByte(r.Type)
		_ = binary.Write(&b, binary.LittleEndian, r.Length)
	}
	return b.Bytes()
}
func (d HIDDescriptor) isExtra() {}

// CDCSubtype identifies a CDC functional descriptor.
type CDCSubtype uint8

const (
	CDCHeader                    CDCSubtype = 0x00
	CDCCallManagement            CDCSubtype = 0x01
	CDCAbstractControlManagement CDCSubtype = 0x02
	CDCUnion                     CDCSubtype = 0x06
	CDCCountrySelection          CDCSubtype = 0x07
	CDCNetworkChannel            CDCSubtype = 0x0a
	CDCEthernetNetworking        CDCSubtype = 0x0f
	CDCWirelessHandsetControl    CDCSubtype = 0x11
	CDCDeviceManagement          CDCSubtype = 0x14
	CDCObex                      CDCSubtype = 0x15
	CDCCommandSet                CDCSubtype = 0x16
	CDCNcm                       CDCSubtype = 0x1a
	CDCMbim                      CDCSubtype = 0x1b
	CDCMbimExtended              CDCSubtype = 0x1c
)

var cdcSubtypeNames = map[CDCSubtype]string{
	0x00: "Header",
	0x01: "Call Management",
	0x02: "Abstract Control Management",
	0x03: "Direct Line Management",
	0x04: "Telephone Ringer",
	0x05: "Telephone Call",
	0x06: "Union",
	0x07: "Country Selection",
	0x08: "Telephone Operational Modes",
	0x09: "USB Terminal",
	0x0a: "Network Channel",
	0x0b: "Protocol Unit",
	0x0c: "Extension Unit",
	0x0d: "Multi-Channel",
	0x0e: "CAPI Control",
	0x0f: "Ethernet Networking",
	0x10: "ATM Networking",
	0x11: "Wireless Handset Control Model",
	0x12: "Mobile Direct Line Model Functional",
	0x13: "Mobile Direct Line Model Detail",
	0x14: "Device Management",
	0x15: "OBEX",
	0x16: "Command Set",
	0x17: "Command Set Detail",
	0x18: "Telephone Control Model",
	0x19: "OBEX Command Set",
	0x1a: "NCM",
	0x1b: "MBIM",
	0x1c: "MBIM Extended",
}

func (s CDCSubtype) String() string {
	if name, ok := cdcSubtypeNames[s]; ok {
		return name
	}
	return "Unknown"
}

// CDCDescriptor is a communications-class functional descriptor.
type CDCDescriptor struct {
	Type        uint8
	Subtype     CDCSubtype
	StringIndex uint8 // 0 when the subtype carries no string reference
	Data        []byte
}

func decodeCDC(b []byte) (CDCDescriptor, error) {
	if len(b) < 4 {
		return CDCDescriptor{}, truncated("cdc functional descriptor", 4, len(b))
	}
	d := CDCDescriptor{
		Type:    b[1],
		Subtype: CDCSubtype(b[2]),
		Data:    cloneBytes(b[3:]),
	}
	// some subtypes embed a string descriptor index at a known offset
	switch d.Subtype {
	case CDCEthernetNetworking, CDCCountrySelection:
		d.StringIndex = b[3]
	case CDCNetworkChannel:
		if len(b) > 4 {
			d.StringIndex = b[4]
		}
	case CDCCommandSet:
		if len(b) > 5 {
			d.StringIndex = b[5]
		}
	}
	return d, nil
}

func (d CDCDescriptor) ExtraType() uint8 { return d.Type }
func (d CDCDescriptor) Encode() []byte {
	var b bytes.Buffer
	b.WriteByte(uint8(3 + len(d.Data)))
	b.WriteByte(d.Type)
	b.WriteByte(uint8(d.Subtype))
	b.Write(d.Data)
	return b.Bytes()
}
func (d CDCDescriptor) isExtra() {}

// MIDISubtype identifies a MIDI streaming class-specific descriptor.
type MIDISubtype uint8

const (
	MIDIUndefined  MIDISubtype = 0x00
	MIDIHeader     MIDISubtype = 0x01
	MIDIInputJack  MIDISubtype = 0x02
	MIDIOutputJack MIDISubtype = 0x03
	MIDIElement    MIDISubtype = 0x04
)

var midiSubtypeNames = map[MIDISubtype]string{
	MIDIUndefined:  "Undefined",
	MIDIHeader:     "Header",
	MIDIInputJack:  "Input Jack",
	MIDIOutputJack: "Output Jack",
	MIDIElement:    "Element",
}

func (s MIDISubtype) String() string {
	if name, ok := midiSubtypeNames[s]; ok {
		return name
	}
	return midiSubtypeNames[MIDIUndefined]
}

// MIDIDescriptor is a MIDI streaming class-specific interface descriptor.
type MIDIDescriptor struct {
	Type        uint8
	Subtype     MIDISubtype
	StringIndex uint8
	Data        []byte
}

func decodeMIDI(b []byte) (MIDIDescriptor, error) {
	if len(b) < 4 {
		return MIDIDescriptor{}, truncated("midi descriptor", 4, len(b))
	}
	d := MIDIDescriptor{
		Type:    b[1],
		Subtype: MIDISubtype(b[2]),
		Data:    cloneBytes(b[3:]),
	}
	switch d.Subtype {
	case MIDIInputJack:
		if len(b) > 5 {
			d.StringIndex = b[5]
		}
	case MIDIOutputJack:
		// iJack sits past the per-pin source list
		if len(b) > 5 {
			pos := 6 + 2*int(b[5])
			if len(b) > pos {
				d.StringIndex = b[pos]
			}
		}
	case MIDIElement:
		if len(b) > 4 {
			pins := int(b[4])
			capPos := 8 + 2*pins
			if len(b) > capPos {
				pos := 9 + 2*pins + int(b[capPos])
				if len(b) > pos {
					d.StringIndex = b[pos]
				}
			}
		}
	}
	return d, nil
}

func (d MIDIDescriptor) ExtraType() uint8 { return d.Type }
func (d MIDIDescriptor) Encode() []byte {
	var b bytes.Buffer
	b.WriteByte(uint8(3 + len(d.Data)))
	b.WriteByte(d.Type)
	b.WriteByte(uint8(d.Subtype))
	b.Write(d.Data)
	return b.Bytes()
}
func (d MIDIDescriptor) isExtra() {}

// AudioDescriptor is an audio-class (non-MIDI) class-specific descriptor,
// kept as subtype plus payload; unit/terminal internals are not expanded.
type AudioDescriptor struct {
	Type    uint8
	Subtype uint8
	Data    []byte
}

func decodeAudio(b []byte) (AudioDescriptor, error) {
	if len(b) < 3 {
		return AudioDescriptor{}, truncated("audio descriptor", 3, len(b))
	}
	return AudioDescriptor{Type: b[1], Subtype: b[2], Data: cloneBytes(b[3:])}, nil
}

func (d AudioDescriptor) ExtraType() uint8 { return d.Type }
func (d AudioDescriptor) Encode() []byte {
	var b bytes.Buffer
	b.WriteByte(uint8(3 + len(d.Data)))
	b.WriteByte(d.Type)
	b.WriteByte(d.Subtype)
	b.Write(d.Data)
	return b.Bytes()
}
func (d AudioDescriptor) isExtra() {}

// UVCSubtype identifies a video-class control interface descriptor.
type UVCSubtype uint8

const (
	UVCUndefined      UVCSubtype = 0x00
	UVCHeader         UVCSubtype = 0x01
	UVCInputTerminal  UVCSubtype = 0x02
	UVCOutputTerminal UVCSubtype = 0x03
	UVCSelectorUnit   UVCSubtype = 0x04
	UVCProcessingUnit UVCSubtype = 0x05
	UVCExtensionUnit  UVCSubtype = 0x06
	UVCEncodingUnit   UVCSubtype = 0x07
)

var uvcSubtypeNames = map[UVCSubtype]string{
	UVCUndefined:      "Undefined",
	UVCHeader:         "Header",
	UVCInputTerminal:  "Input Terminal",
	UVCOutputTerminal: "Output Terminal",
	UVCSelectorUnit:   "Selector Unit",
	UVCProcessingUnit: "Processing Unit",
	UVCExtensionUnit:  "Extension Unit",
	UVCEncodingUnit:   "Encoding Unit",
}

func (s UVCSubtype) String() string {
	if name, ok := uvcSubtypeNames[s]; ok {
		return name
	}
	return uvcSubtypeNames[UVCUndefined]
}

// UVCDescriptor is a video-class class-specific descriptor.
type UVCDescriptor struct {
	Type        uint8
	Subtype     UVCSubtype
	StringIndex uint8
	Data        []byte
}

func decodeUVC(b []byte) (UVCDescriptor, error) {
	if len(b) < 4 {
		return UVCDescriptor{}, truncated("video descriptor", 4, len(b))
	}
	d := UVCDescriptor{
		Type:    b[1],
		Subtype: UVCSubtype(b[2]),
		Data:    cloneBytes(b[3:]),
	}
	switch d.Subtype {
	case UVCInputTerminal:
		if len(b) > 7 {
			d.StringIndex = b[7]
		}
	case UVCOutputTerminal:
		if len(b) > 8 {
			d.StringIndex = b[8]
		}
	case UVCSelectorUnit:
		if len(b) > 4 {
			pos := 5 + int(b[4])
			if len(b) > pos {
				d.StringIndex = b[pos]
			}
		}
	case UVCProcessingUnit:
		if len(b) > 7 {
			pos := 8 + int(b[7])
			if len(b) > pos {
				d.StringIndex = b[pos]
			}
		}
	case UVCExtensionUnit:
		if len(b) > 21 {
			pins := int(b[21])
			ctrlPos := 22 + pins
			if len(b) > ctrlPos {
				pos := 23 + pins + int(b[ctrlPos])
				if len(b) > pos {
					d.StringIndex = b[pos]
				}
			}
		}
	case UVCEncodingUnit:
		if len(b) > 5 {
			d.StringIndex = b[5]
		}
	}
	return d, nil
}

func (d UVCDescriptor) ExtraType() uint8 { return d.Type }
func (d UVCDescriptor) Encode() []byte {
	var b bytes.Buffer
	b.WriteByte(uint8(3 + len(d.Data)))
	b.WriteByte(d.Type)
	b.WriteByte(uint8(d.Subtype))
	b.Write(d.Data)
	return b.Bytes()
}
func (d UVCDescriptor) isExtra() {}

// CCIDDescriptor is the smart-card functional descriptor (54 bytes; note
// its bDescriptorType collides with the HID value 0x21 and is told apart
// by the interface class).
type CCIDDescriptor struct {
	Type             uint8
	CCID             Version
	MaxSlotIndex     uint8
	VoltageSupport   uint8
	Protocols        uint32
	DefaultClock     uint32
	MaximumClock     uint32
	NumClockRates    uint8
	DataRate         uint32
	MaxDataRate      uint32
	NumDataRates     uint8
	MaxIFSD          uint32
	SyncProtocols    uint32
	Mechanical       uint32
	Features         uint32
	MaxMessageLength uint32
	ClassGetResponse uint8
	ClassEnvelope    uint8
	LcdLayout        [2]uint8
	PINSupport       uint8
	MaxBusySlots     uint8
}

func decodeCCID(b []byte) (CCIDDescriptor, error) {
	if len(b) < 54 {
		return CCIDDescriptor{}, truncated("ccid descriptor", 54, len(b))
	}
	le := binary.LittleEndian
	return CCIDDescriptor{
		Type:             b[1],
		CCID:             VersionFromBCD(le.Uint16(b[2:4])),
		MaxSlotIndex:     b[4],
		VoltageSupport:   b[5],
		Protocols:        le.Uint32(b[6:10]),
		DefaultClock:     le.Uint32(b[10:14]),
		MaximumClock:     le.Uint32(b[14:18]),
		NumClockRates:    b[18],
		DataRate:         le.Uint32(b[19:23]),
		MaxDataRate:      le.Uint32(b[23:27]),
		NumDataRates:     b[27],
		MaxIFSD:          le.Uint32(b[28:32]),
		SyncProtocols:    le.Uint32(b[32:36]),
		Mechanical:       le.Uint32(b[36:40]),
		Features:         le.Uint32(b[40:44]),
		MaxMessageLength: le.Uint32(b[44:48]),
		ClassGetResponse: b[48],
		ClassEnvelope:    b[49],
		LcdLayout:        [2]uint8{b[50], b[51]},
		PINSupport:       b[52],
		MaxBusySlots:     b[53],
	}, nil
}

func (d CCIDDescriptor) ExtraType() uint8 { return d.Type }
func (d CCIDDescriptor) Encode() []byte {
	var b bytes.Buffer
	le := binary.LittleEndian
	b.WriteByte(54)
	b.WriteByte(d.Type)
	_ = binary.Write(&b, le, d.CCID.BCD())
	b.WriteByte(d.MaxSlotIndex)
	b.WriteByte(d.VoltageSupport)
	_ = binary.Write(&b, le, d.Protocols)
	_ = binary.Write(&b, le, d.DefaultClock)
	_ = binary.Write(&b, le, d.MaximumClock)
	b.WriteByte(d.NumClockRates)
	_ = binary.Write(&b, le, d.DataRate)
	_ = binary.Write(&b, le, d.MaxDataRate)
	b.WriteByte(d.NumDataRates)
	_ = binary.Write(&b, le, d.MaxIFSD)
	_ = binary.Write(&b, le, d.SyncProtocols)
	_ = binary.Write(&b, le, d.Mechanical)
	_ = binary.Write(&b, le, d.Features)
	_ = binary.Write(&b, le, d.MaxMessageLength)
	b.WriteByte(d.ClassGetResponse)
	b.WriteByte(d.ClassEnvelope)
	b.WriteByte(d.LcdLayout[0])
	b.WriteByte(d.LcdLayout[1])
	b.WriteByte(d.PINSupport)
	b.WriteByte(d.MaxBusySlots)
	return b.Bytes()
}
func (d CCIDDescriptor) isExtra() {}

// InterfaceAssociation groups a run of interfaces into one function
// (descriptor type 0x0b).
type InterfaceAssociation struct {
	Type           uint8
	FirstInterface uint8
	InterfaceCount uint8
	Function       ClassTriplet
	StringIndex    uint8
}

func decodeIAD(b []byte) (InterfaceAssociation, error) {
	if len(b) < IadDescLen {
		return InterfaceAssociation{}, truncated("interface association descriptor", IadDescLen, len(b))
	}
	return InterfaceAssociation{
		Type:           b[1],
		FirstInterface: b[2],
		InterfaceCount: b[3],
		Function:       ClassTriplet{Base: ClassCode(b[4]), Sub: b[5], Protocol: b[6]},
		StringIndex:    b[7],
	}, nil
}

func (d InterfaceAssociation) ExtraType() uint8 { return d.Type }
func (d InterfaceAssociation) Encode() []byte {
	return []byte{
		IadDescLen, d.Type,
		d.FirstInterface, d.InterfaceCount,
		uint8(d.Function.Base), d.Function.Sub, d.Function.Protocol,
		d.StringIndex,
	}
}
func (d InterfaceAssociation) isExtra() {}

// SsEndpointCompanion is the SuperSpeed endpoint companion descriptor
// (type 0x30) that follows each endpoint on SuperSpeed devices.
type SsEndpointCompanion struct {
	Type             uint8
	MaxBurst         uint8
	Attributes       uint8
	BytesPerInterval uint16
}

func decodeSsCompanion(b []byte) (SsEndpointCompanion, error) {
	if len(b) < SsCompanionLen {
		return SsEndpointCompanion{}, truncated("ss endpoint companion descriptor", SsCompanionLen, len(b))
	}
	return SsEndpointCompanion{
		Type:             b[1],
		MaxBurst:         b[2],
		Attributes:       b[3],
		BytesPerInterval: binary.LittleEndian.Uint16(b[4:6]),
	}, nil
}

func (d SsEndpointCompanion) ExtraType() uint8 { return d.Type }
func (d SsEndpointCompanion) Encode() []byte {
	out := []byte{SsCompanionLen, d.Type, d.MaxBurst, d.Attributes, 0, 0}
	binary.LittleEndian.PutUint16(out[4:6], d.BytesPerInterval)
	return out
}
func (d SsEndpointCompanion) isExtra() {}

// HubDescriptor covers both the USB 2.0 (type 0x29) and SuperSpeed
// (type 0x2a) hub descriptor layouts; layout differences past the common
// header are kept in Tail.
type HubDescriptor struct {
	Type              uint8
	NumPorts          uint8
	Characteristics   uint16
	PowerOnGood       uint8 // units of 2 ms
	ControllerCurrent uint8 // mA
	Tail              []byte
}

func decodeHub(b []byte) (HubDescriptor, error) {
	if len(b) < 7 {
		return HubDescriptor{}, truncated("hub descriptor", 7, len(b))
	}
	return HubDescriptor{
		Type:              b[1],
		NumPorts:          b[2],
		Characteristics:   binary.LittleEndian.Uint16(b[3:5]),
		PowerOnGood:       b[5],
		ControllerCurrent: b[6],
		Tail:              cloneBytes(b[7:]),
	}, nil
}

// DecodeHubDescriptor decodes a standalone hub descriptor, as fetched by a
// backend via a class control request or read from a cached blob.
func DecodeHubDescriptor(b []byte) (HubDescriptor, error) {
	if len(b) >= 2 && b[1] != HubDescType && b[1] != SuperSpeedHubDescType {
		return HubDescriptor{}, wrongType("hub descriptor", HubDescType, b[1])
	}
	return decodeHub(b)
}

// CompoundDevice reports whether the hub is part of a compound device.
func (d HubDescriptor) CompoundDevice() bool { return d.Characteristics&0x04 != 0 }

// PortIndicators reports whether the hub has per-port indicator LEDs.
func (d HubDescriptor) PortIndicators() bool { return d.Characteristics&0x80 != 0 }

func (d HubDescriptor) ExtraType() uint8 { return d.Type }
func (d HubDescriptor) Encode() []byte {
	var b bytes.Buffer
	b.WriteByte(uint8(7 + len(d.Tail)))
	b.WriteByte(d.Type)
	b.WriteByte(d.NumPorts)
	_ = binary.Write(&b, binary.LittleEndian, d.Characteristics)
	b.WriteByte(d.PowerOnGood)
	b.WriteByte(d.ControllerCurrent)
	b.Write(d.Tail)
	return b.Bytes()
}
func (d HubDescriptor) isExtra() {}

package usb

import "fmt"

// ClassCode is a USB-IF base class code as found in device and interface
// descriptors.
type ClassCode uint8

// Base class codes assigned by the USB-IF.
const (
	ClassPerInterface       ClassCode = 0x00
	ClassAudio              ClassCode = 0x01
	ClassComm               ClassCode = 0x02
	ClassHID                ClassCode = 0x03
	ClassPhysical           ClassCode = 0x05
	ClassImage              ClassCode = 0x06
	ClassPrinter            ClassCode = 0x07
	ClassMassStorage        ClassCode = 0x08
	ClassHub                ClassCode = 0x09
	ClassCDCData            ClassCode = 0x0a
	ClassSmartCard          ClassCode = 0x0b
	ClassContentSecurity    ClassCode = 0x0d
	ClassVideo              ClassCode = 0x0e
	ClassPersonalHealthcare ClassCode = 0x0f
	ClassAudioVideo         ClassCode = 0x10
	ClassBillboard          ClassCode = 0x11
	ClassTypeCBridge        ClassCode = 0x12
	ClassI3C                ClassCode = 0x3c
	ClassDiagnostic         ClassCode = 0xdc
	ClassWireless           ClassCode = 0xe0
	ClassMiscellaneous      ClassCode = 0xef
	ClassApplication        ClassCode = 0xfe
	ClassVendorSpecific     ClassCode = 0xff
)

var classNames = map[ClassCode]string{
	ClassPerInterface:       "Use class info in Interface Descriptors",
	ClassAudio:              "Audio",
	ClassComm:               "Communications and CDC Control",
	ClassHID:                "Human Interface Device",
	ClassPhysical:           "Physical",
	ClassImage:              "Image",
	ClassPrinter:            "Printer",
	ClassMassStorage:        "Mass Storage",
	ClassHub:                "Hub",
	ClassCDCData:            "CDC Data",
	ClassSmartCard:          "Smart Card",
	ClassContentSecurity:    "Content Security",
	ClassVideo:              "Video",
	ClassPersonalHealthcare: "Personal Healthcare",
	ClassAudioVideo:         "Audio/Video Devices",
	ClassBillboard:          "Billboard Device",
	ClassTypeCBridge:        "USB Type-C Bridge",
	ClassI3C:                "I3C Device",
	ClassDiagnostic:         "Diagnostic",
	ClassWireless:           "Wireless Controller",
	ClassMiscellaneous:      "Miscellaneous Device",
	ClassApplication:        "Application Specific Interface",
	ClassVendorSpecific:     "Vendor Specific Class",
}

// String returns the USB-IF name of the class, or a hex fallback for codes
// without an assigned name. Unassigned codes are not an error.
func (c ClassCode) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02x)", uint8(c))
}

// symbolic names accepted from the CLI class filter
var classSymbols = map[string]ClassCode{
	"use-interface-descriptor": ClassPerInterface,
	"audio":                    ClassAudio,
	"cdc-communications":       ClassComm,
	"comm":                     ClassComm,
	"hid":                      ClassHID,
	"physical":                 ClassPhysical,
	"image":                    ClassImage,
	"printer":                  ClassPrinter,
	"mass-storage":             ClassMassStorage,
	"hub":                      ClassHub,
	"cdc-data":                 ClassCDCData,
	"smart-card":               ClassSmartCard,
	"content-security":         ClassContentSecurity,
	"video":                    ClassVideo,
	"personal-healthcare":      ClassPersonalHealthcare,
	"audio-video":              ClassAudioVideo,
	"billboard":                ClassBillboard,
	"type-c-bridge":            ClassTypeCBridge,
	"i3c":                      ClassI3C,
	"diagnostic":               ClassDiagnostic,
	"wireless":                 ClassWireless,
	"miscellaneous":            ClassMiscellaneous,
	"application":              ClassApplication,
	"vendor-specific":          ClassVendorSpecific,
}

// ClassFromName maps a symbolic class name (as used by the CLI filter) to
// its base class code.
func ClassFromName(name string) (ClassCode, error) {
	if c, ok := classSymbols[name]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("unknown class name %q", name)
}

// ClassTriplet is the (base class, subclass, protocol) classification of a
// device or interface. It is a value, not an identity; two equal triplets
// describe the same function class regardless of which device carries them.
type ClassTriplet struct {
	Base     ClassCode `json:"base" yaml:"base"`
	Sub      uint8     `json:"sub" yaml:"sub"`
	Protocol uint8     `json:"protocol" yaml:"protocol"`
}

// Describe returns a human-oriented name for the triplet. Well-known
// subclass/protocol combinations get a specific name; anything unresolved
// falls back to the base class name rather than failing.
func (t ClassTriplet) Describe() string {
	switch {
	case t.Base == ClassHub && t.Protocol == 1:
		return "Single TT Hub"
	case t.Base == ClassHub && t.Protocol == 2:
		return "Multi TT Hub"
	case t.Base == ClassHub && t.Protocol == 3:
		return "SuperSpeed Hub"
	case t.Base == ClassComm && t.Sub == 2:
		return "Abstract Control Model"
	case t.Base == ClassComm && t.Sub == 6:
		return "Ethernet Networking"
	case t.Base == ClassAudio && t.Sub == 1:
		return "Audio Control"
	case t.Base == ClassAudio && t.Sub == 2:
		return "Audio Streaming"
	case t.Base == ClassAudio && t.Sub == 3:
		return "MIDI Streaming"
	case t.Base == ClassVideo && t.Sub == 1:
		return "Video Control"
	case t.Base == ClassVideo && t.Sub == 2:
		return "Video Streaming"
	case t.Base == ClassHID && t.Sub == 1 && t.Protocol == 1:
		return "Keyboard"
	case t.Base == ClassHID && t.Sub == 1 && t.Protocol == 2:
		return "Mouse"
	case t.Base == ClassMassStorage && t.Sub == 6:
		return "SCSI Mass Storage"
	case t.Base == ClassWireless && t.Sub == 1 && t.Protocol == 1:
		return "Bluetooth"
	case t.Base == ClassMiscellaneous && t.Sub == 4 && t.Protocol == 1:
		return "RNDIS"
	case t.Base == ClassApplication && t.Sub == 1:
		return "Device Firmware Update"
	default:
		return t.Base.String()
	}
}

// IsZero reports whether the triplet is entirely unset, the state of a
// device descriptor that defers classification to its interfaces.
func (t ClassTriplet) IsZero() bool {
	return t.Base == ClassPerInterface && t.Sub == 0 && t.Protocol == 0
}

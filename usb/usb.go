// Package usb decodes raw USB descriptor bytes into typed records.
//
// All decoders are pure functions over their input: malformed or truncated
// device-supplied data is reported as an error value (or a truncation flag
// on partially decoded results), never as a panic. Multi-byte fields are
// little-endian on the wire; bitfields are extracted with explicit masks.
package usb

import (
	"errors"
	"fmt"
)

// USB descriptor type constants
const (
	DeviceDescType              = 0x01
	ConfigDescType              = 0x02
	StringDescType              = 0x03
	InterfaceDescType           = 0x04
	EndpointDescType            = 0x05
	DeviceQualifierDescType     = 0x06
	OtherSpeedConfigDescType    = 0x07
	InterfacePowerDescType      = 0x08
	OtgDescType                 = 0x09
	DebugDescType               = 0x0a
	InterfaceAssociationType    = 0x0b
	SecurityDescType            = 0x0c
	KeyDescType                 = 0x0d
	EncryptionDescType          = 0x0e
	BosDescType                 = 0x0f
	DeviceCapabilityDescType    = 0x10
	HIDDescType                 = 0x21
	ReportDescType              = 0x22
	PhysicalDescType            = 0x23
	ClassInterfaceDescType      = 0x24
	ClassEndpointDescType       = 0x25
	HubDescType                 = 0x29
	SuperSpeedHubDescType       = 0x2a
	SsEndpointCompanionDescType = 0x30
)

// Descriptor lengths in bytes (fixed values from the USB spec)
const (
	DeviceDescLen    = 18
	ConfigDescLen    = 9
	InterfaceDescLen = 9
	EndpointDescLen  = 7
	HIDDescLen       = 9
	IadDescLen       = 8
	SsCompanionLen   = 6
	BosDescLen       = 5
)

// Sentinel causes for DescriptorError, checkable with errors.Is.
var (
	// ErrTruncated marks a descriptor shorter than the minimum for its type,
	// or a walk that ran out of bytes before the declared total length.
	ErrTruncated = errors.New("descriptor truncated")
	// ErrMalformed marks a descriptor whose content contradicts its framing,
	// such as a wrong type tag or an impossible length field.
	ErrMalformed = errors.New("descriptor malformed")
)

// DescriptorError reports a decode failure for one descriptor. Decoders
// return it by value; callers downgrade it to a diagnostic rather than
// aborting, since descriptor bytes are untrusted device input.
type DescriptorError struct {
	Descriptor string // human name of the descriptor being decoded
	Expected   int    // minimum byte count required
	Got        int    // byte count available
	Err        error  // ErrTruncated or ErrMalformed
}

func (e *DescriptorError) Error() string {
	switch {
	case errors.Is(e.Err, ErrTruncated):
		return fmt.Sprintf("%s truncated: expected %d bytes, got %d", e.Descriptor, e.Expected, e.Got)
	case e.Expected != 0 || e.Got != 0:
		return fmt.Sprintf("%s malformed: expected type 0x%02x, got 0x%02x", e.Descriptor, e.Expected, e.Got)
	default:
		return fmt.Sprintf("%s %v", e.Descriptor, e.Err)
	}
}

func (e *DescriptorError) Unwrap() error { return e.Err }

func truncated(name string, expected, got int) error {
	return &DescriptorError{Descriptor: name, Expected: expected, Got: got, Err: ErrTruncated}
}

func wrongType(name string, expected, got uint8) error {
	return &DescriptorError{Descriptor: name, Expected: int(expected), Got: int(got), Err: ErrMalformed}
}

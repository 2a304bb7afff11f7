package usb

import (
	"encoding/binary"
	"unicode/utf16"
)

// DecodeStringDescriptor converts a USB string descriptor to a Go string.
// The descriptor format is:
//
//	Byte 0: bLength (total descriptor length)
//	Byte 1: bDescriptorType (0x03 for string)
//	Bytes 2+: UTF-16LE encoded string
func DecodeStringDescriptor(b []byte) (string, error) {
	if len(b) < 2 {
		return "", truncated("string descriptor", 2, len(b))
	}
	if b[1] != StringDescType {
		return "", wrongType("string descriptor", StringDescType, b[1])
	}
	span := int(b[0])
	if span > len(b) {
		span = len(b)
	}
	units := make([]uint16, 0, (span-2)/2)
	for i := 2; i+1 < span; i += 2 {
		units = append(units, binary.LittleEndian.Uint16(b[i:i+2]))
	}
	return string(utf16.Decode(units)), nil
}

// DecodeLangIDs reads string descriptor zero, the list of language IDs the
// device supports.
func DecodeLangIDs(b []byte) ([]uint16, error) {
	if len(b) < 2 {
		return nil, truncated("language id descriptor", 2, len(b))
	}
	if b[1] != StringDescType {
		return nil, wrongType("language id descriptor", StringDescType, b[1])
	}
	span := int(b[0])
	if span > len(b) {
		span = len(b)
	}
	ids := make([]uint16, 0, (span-2)/2)
	for i := 2; i+1 < span; i += 2 {
		ids = append(ids, binary.LittleEndian.Uint16(b[i:i+2]))
	}
	return ids, nil
}

// EncodeStringDescriptor converts a UTF-8 string to a USB string descriptor
// byte array, the inverse of DecodeStringDescriptor.
func EncodeStringDescriptor(s string) []byte {
	units := utf16.Encode([]rune(s))
	buf := make([]byte, 2+len(units)*2)
	buf[0] = uint8(len(buf)) // bLength
	buf[1] = StringDescType
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[2+i*2:], u)
	}
	return buf
}

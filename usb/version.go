package usb

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Version is a binary-coded-decimal USB revision (bcdUSB, bcdDevice and
// friends): 0xJJMN encodes major JJ, minor M, sub-minor N.
type Version struct {
	Major    uint8
	Minor    uint8
	SubMinor uint8
}

// VersionFromBCD decodes a 16-bit BCD field.
func VersionFromBCD(bcd uint16) Version {
	return Version{
		Major:    uint8((bcd&0xf000)>>12)*10 + uint8((bcd&0x0f00)>>8),
		Minor:    uint8((bcd & 0x00f0) >> 4),
		SubMinor: uint8(bcd & 0x000f),
	}
}

// BCD re-encodes the version into its 16-bit wire form.
func (v Version) BCD() uint16 {
	return uint16(v.Major/10)<<12 | uint16(v.Major%10)<<8 | uint16(v.Minor)<<4 | uint16(v.SubMinor)
}

// String renders the conventional "J.MN" form, e.g. 0x0210 -> "2.10".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d%d", v.Major, v.Minor, v.SubMinor)
}

// ParseVersion accepts the String form, tolerating a single-digit fraction
// ("2.0" reads as 2.00).
func ParseVersion(s string) (Version, error) {
	major, rest, found := strings.Cut(strings.TrimSpace(s), ".")
	if !found {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	maj, err := strconv.ParseUint(major, 10, 8)
	if err != nil {
		return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
	}
	v := Version{Major: uint8(maj)}
	switch len(rest) {
	case 1:
		minor, err := strconv.ParseUint(rest, 10, 8)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		v.Minor = uint8(minor)
	case 2:
		minor, err := strconv.ParseUint(rest[:1], 10, 8)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		sub, err := strconv.ParseUint(rest[1:], 10, 8)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		v.Minor = uint8(minor)
		v.SubMinor = uint8(sub)
	default:
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	return v, nil
}

// MarshalText serializes versions as their "J.MN" string in dumps.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText accepts the String form.
func (v *Version) UnmarshalText(text []byte) error {
	parsed, err := ParseVersion(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Version) MarshalYAML() (any, error) {
	return v.String(), nil
}

func (v *Version) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	return v.UnmarshalText([]byte(s))
}

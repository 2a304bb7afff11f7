package usb

import "gopkg.in/yaml.v3"

// Speed is the negotiated connection speed of a device.
type Speed int

const (
	SpeedUnknown Speed = iota
	SpeedLow
	SpeedFull
	SpeedHigh
	SpeedSuper
	SpeedSuperPlus
)

// SpeedFromCode maps the numeric speed code used by OS enumeration layers
// (1 = low .. 5 = super+). Unknown codes map to SpeedUnknown.
func SpeedFromCode(code uint8) Speed {
	switch code {
	case 1:
		return SpeedLow
	case 2:
		return SpeedFull
	case 3:
		return SpeedHigh
	case 4:
		return SpeedSuper
	case 5:
		return SpeedSuperPlus
	default:
		return SpeedUnknown
	}
}

// SpeedFromSysfs maps the contents of a sysfs `speed` attribute (the data
// rate in Mb/s as a string) to a Speed.
func SpeedFromSysfs(s string) Speed {
	switch s {
	case "1.5":
		return SpeedLow
	case "12":
		return SpeedFull
	case "480":
		return SpeedHigh
	case "5000":
		return SpeedSuper
	case "10000", "20000":
		return SpeedSuperPlus
	default:
		return SpeedUnknown
	}
}

var speedNames = map[Speed]string{
	SpeedUnknown:   "unknown",
	SpeedLow:       "low_speed",
	SpeedFull:      "full_speed",
	SpeedHigh:      "high_speed",
	SpeedSuper:     "super_speed",
	SpeedSuperPlus: "super_speed_plus",
}

func (s Speed) String() string {
	if name, ok := speedNames[s]; ok {
		return name
	}
	return speedNames[SpeedUnknown]
}

// SpeedFromString is the inverse of String, for deserializing dumps.
func SpeedFromString(s string) Speed {
	for speed, name := range speedNames {
		if name == s {
			return speed
		}
	}
	return SpeedUnknown
}

// Rate returns the lsusb-style data rate label for the speed.
func (s Speed) Rate() string {
	switch s {
	case SpeedLow:
		return "1.5M"
	case SpeedFull:
		return "12M"
	case SpeedHigh:
		return "480M"
	case SpeedSuper:
		return "5000M"
	case SpeedSuperPlus:
		return "10000M"
	default:
		return ""
	}
}

// MarshalText serializes the speed name, so Speed fields round-trip through
// JSON and YAML dumps as readable strings.
func (s Speed) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText accepts a speed name produced by MarshalText.
func (s *Speed) UnmarshalText(text []byte) error {
	*s = SpeedFromString(string(text))
	return nil
}

func (s Speed) MarshalYAML() (any, error) {
	return s.String(), nil
}

func (s *Speed) UnmarshalYAML(value *yaml.Node) error {
	var name string
	if err := value.Decode(&name); err != nil {
		return err
	}
	return s.UnmarshalText([]byte(name))
}

package watch

import (
	"bytes"
	"strings"
)

// usbDeviceEvent reports whether one uevent datagram describes a USB
// device arriving or leaving. Datagrams are null-separated KEY=VALUE
// fields preceded by an "action@devpath" header; interface-level events
// (DEVTYPE usb_interface) are ignored since the device event covers them.
func usbDeviceEvent(data []byte) bool {
	var action, subsystem, devtype string
	for _, field := range bytes.Split(data, []byte{0}) {
		if len(field) == 0 {
			continue
		}
		s := string(field)
		if i := strings.IndexByte(s, '='); i >= 0 {
			switch s[:i] {
			case "ACTION":
				action = s[i+1:]
			case "SUBSYSTEM":
				subsystem = s[i+1:]
			case "DEVTYPE":
				devtype = s[i+1:]
			}
			continue
		}
		if i := strings.IndexByte(s, '@'); i >= 0 && action == "" {
			action = s[:i]
		}
	}
	if subsystem != "usb" || devtype != "usb_device" {
		return false
	}
	return action == "add" || action == "remove"
}

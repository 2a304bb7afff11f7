package usbids

// builtin is the fallback table used when no system usb.ids is readable.
// It covers root hubs, the hub and HID classes, and a handful of vendors
// common enough to show up on almost any machine.
const builtin = `# Minimal built-in subset of usb.ids
0403  Future Technology Devices International, Ltd
	6001  FT232 Serial (UART) IC
045e  Microsoft Corp.
046d  Logitech, Inc.
	0825  Webcam C270
	c31c  Keyboard K120
	c52b  Unifying Receiver
04e8  Samsung Electronics Co., Ltd
05ac  Apple, Inc.
05e3  Genesys Logic, Inc.
	0608  Hub
	0610  Hub
0781  SanDisk Corp.
	5567  Cruzer Blade
0bda  Realtek Semiconductor Corp.
	8153  RTL8153 Gigabit Ethernet Adapter
1d6b  Linux Foundation
	0001  1.1 root hub
	0002  2.0 root hub
	0003  3.0 root hub
2109  VIA Labs, Inc.
	3431  Hub
8086  Intel Corp.
8087  Intel Corp.
	0024  Integrated Rate Matching Hub
	0032  AX210 Bluetooth

C 00  (Defined at Interface level)
C 01  Audio
	01  Control Device
	02  Streaming
	03  MIDI Streaming
C 02  Communications
C 03  Human Interface Device
	01  Boot Interface Subclass
		01  Keyboard
		02  Mouse
C 06  Imaging
	01  Still Image Capture
C 07  Printer
C 08  Mass Storage
	06  SCSI
		50  Bulk-Only
C 09  Hub
	00  Unused
		00  Full speed (or root) hub
		01  Single TT
		02  TT per port
C 0a  CDC Data
C 0b  Chip/SmartCard
C 0e  Video
	01  Video Control
	02  Video Streaming
C e0  Wireless
	01  Radio Frequency
		01  Bluetooth
C ef  Miscellaneous Device
C fe  Application Specific Interface
C ff  Vendor Specific Class
`

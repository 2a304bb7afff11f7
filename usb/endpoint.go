package usb

import "fmt"

// EndpointAddress is the raw bEndpointAddress byte: bits 0-3 carry the
// endpoint number, bit 7 the direction.
type EndpointAddress uint8

// Number returns the endpoint number (0-15).
func (a EndpointAddress) Number() int { return int(a & 0x0f) }

// Direction returns the transfer direction encoded in bit 7.
func (a EndpointAddress) Direction() Direction {
	if a&0x80 != 0 {
		return DirectionIn
	}
	return DirectionOut
}

func (a EndpointAddress) String() string {
	return fmt.Sprintf("0x%02x EP %d %s", uint8(a), a.Number(), a.Direction())
}

// Direction of an endpoint, relative to the host.
type Direction uint8

const (
	DirectionOut Direction = 0
	DirectionIn  Direction = 1
)

func (d Direction) String() string {
	if d == DirectionIn {
		return "IN"
	}
	return "OUT"
}

// TransferType is the endpoint transfer type from bmAttributes bits 0-1.
type TransferType uint8

const (
	TransferTypeControl     TransferType = 0
	TransferTypeIsochronous TransferType = 1
	TransferTypeBulk        TransferType = 2
	TransferTypeInterrupt   TransferType = 3
)

var transferTypeNames = map[TransferType]string{
	TransferTypeControl:     "Control",
	TransferTypeIsochronous: "Isochronous",
	TransferTypeBulk:        "Bulk",
	TransferTypeInterrupt:   "Interrupt",
}

func (t TransferType) String() string { return transferTypeNames[t&0x03] }

// SyncType is the isochronous synchronization type from bmAttributes
// bits 2-3. Only meaningful for isochronous endpoints.
type SyncType uint8

const (
	SyncTypeNone         SyncType = 0
	SyncTypeAsynchronous SyncType = 1
	SyncTypeAdaptive     SyncType = 2
	SyncTypeSynchronous  SyncType = 3
)

var syncTypeNames = map[SyncType]string{
	SyncTypeNone:         "None",
	SyncTypeAsynchronous: "Asynchronous",
	SyncTypeAdaptive:     "Adaptive",
	SyncTypeSynchronous:  "Synchronous",
}

func (s SyncType) String() string { return syncTypeNames[s&0x03] }

// UsageType is the isochronous/interrupt usage type from bmAttributes
// bits 4-5.
type UsageType uint8

const (
	UsageTypeData             UsageType = 0
	UsageTypeFeedback         UsageType = 1
	UsageTypeImplicitFeedback UsageType = 2
	UsageTypeReserved         UsageType = 3
)

var usageTypeNames = map[UsageType]string{
	UsageTypeData:             "Data",
	UsageTypeFeedback:         "Feedback",
	UsageTypeImplicitFeedback: "Implicit Feedback Data",
	UsageTypeReserved:         "Reserved",
}

func (u UsageType) String() string { return usageTypeNames[u&0x03] }

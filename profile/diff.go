package profile

import "time"

// EventKind classifies a change between two profiling passes.
type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventDisconnected EventKind = "disconnected"
)

// Event records one device appearing in or vanishing from the tree.
type Event struct {
	Kind   EventKind `json:"kind" yaml:"kind"`
	Time   time.Time `json:"time" yaml:"time"`
	Device *Device   `json:"device" yaml:"device"`
}

// Diff compares two passes and reports which devices disconnected and
// which connected, in tree order. Devices are matched by port path when
// they have one and by bus and address otherwise.
func Diff(old, current *Profile, at time.Time) []Event {
	oldKeys := eventKeys(old)
	newKeys := eventKeys(current)

	var events []Event
	for _, e := range oldKeys.ordered {
		if !newKeys.contains(e.key) {
			events = append(events, Event{Kind: EventDisconnected, Time: at, Device: e.dev})
		}
	}
	for _, e := range newKeys.ordered {
		if !oldKeys.contains(e.key) {
			events = append(events, Event{Kind: EventConnected, Time: at, Device: e.dev})
		}
	}
	return events
}

type keyedDevice struct {
	key string
	dev *Device
}

type keySet struct {
	ordered []keyedDevice
	index   map[string]struct{}
}

func (s keySet) contains(k string) bool {
	_, ok := s.index[k]
	return ok
}

func eventKeys(p *Profile) keySet {
	s := keySet{index: make(map[string]struct{})}
	if p == nil {
		return s
	}
	for _, b := range p.Buses {
		if b.RootHub != nil {
			s.add(b.RootHub)
		}
		for _, d := range b.FlattenedDevices() {
			s.add(d)
		}
	}
	return s
}

func (s *keySet) add(d *Device) {
	k := deviceKey(d)
	if s.contains(k) {
		return
	}
	s.ordered = append(s.ordered, keyedDevice{key: k, dev: d})
	s.index[k] = struct{}{}
}

func deviceKey(d *Device) string {
	if k, ok := pathKey(d); ok {
		return k
	}
	if k, ok := addrKey(d); ok {
		return k
	}
	return d.Summary()
}

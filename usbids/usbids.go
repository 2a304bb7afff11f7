// Package usbids resolves vendor, product and class names from the
// usb.ids database shipped by most distributions. A loaded DB is
// immutable, so lookups are safe from any goroutine.
package usbids

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// SystemPaths lists the usual install locations of usb.ids, tried in
// order by Load.
var SystemPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/usr/share/misc/usb.ids",
	"/usr/share/usb.ids",
	"/var/lib/usbutils/usb.ids",
}

type vendor struct {
	name     string
	products map[uint16]string
}

type class struct {
	name       string
	subclasses map[uint8]subclass
}

type subclass struct {
	name      string
	protocols map[uint8]string
}

// DB holds the parsed vendor/product and class/subclass/protocol tables.
type DB struct {
	vendors map[uint16]vendor
	classes map[uint8]class
}

// Load parses the first usb.ids found under the system paths, falling
// back to the built-in minimal table when none is readable. It always
// returns a usable database.
func Load() *DB {
	for _, path := range SystemPaths {
		db, err := LoadFile(path)
		if err == nil {
			return db
		}
	}
	db, err := Parse(strings.NewReader(builtin))
	if err != nil {
		// The built-in table is a compile-time constant; failing to parse
		// it is a programming error.
		panic(fmt.Sprintf("usbids: built-in table: %v", err))
	}
	return db
}

// LoadFile parses a usb.ids file from disk.
func LoadFile(path string) (*DB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	db, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return db, nil
}

// Parse reads the usb.ids format: vendor blocks with tab-indented
// products, then "C xx" class blocks with tab-indented subclasses and
// protocols. Sections the profiler has no use for (HID usages, languages,
// terminal types and so on) are skipped. Malformed lines are skipped
// rather than failing the whole database.
func Parse(r io.Reader) (*DB, error) {
	db := &DB{
		vendors: make(map[uint16]vendor),
		classes: make(map[uint8]class),
	}

	const (
		inVendors = iota
		inClasses
		inOther
	)
	section := inVendors
	var curVendor *vendor
	var curClass *class
	var curSub *subclass

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !strings.HasPrefix(line, "\t") {
			if strings.HasPrefix(line, "C ") {
				section = inClasses
				curVendor, curClass, curSub = nil, nil, nil
				if id, name, ok := splitEntry(line[2:]); ok && id <= 0xff {
					c := class{name: name, subclasses: make(map[uint8]subclass)}
					db.classes[uint8(id)] = c
					curClass = &c
				}
				continue
			}
			if section == inVendors {
				if id, name, ok := splitEntry(line); ok {
					v := vendor{name: name, products: make(map[uint16]string)}
					db.vendors[id] = v
					curVendor = &v
					continue
				}
			}
			// Some section this database has no use for (AT, HID, R,
			// HUT, L, ...). Skip until the next recognized header.
			section = inOther
			curVendor, curClass, curSub = nil, nil, nil
			continue
		}

		switch section {
		case inVendors:
			if curVendor == nil {
				continue
			}
			if id, name, ok := splitEntry(strings.TrimPrefix(line, "\t")); ok {
				curVendor.products[id] = name
			}
		case inClasses:
			if curClass == nil {
				continue
			}
			if strings.HasPrefix(line, "\t\t") {
				if curSub == nil {
					continue
				}
				if id, name, ok := splitEntry(strings.TrimPrefix(line, "\t\t")); ok && id <= 0xff {
					curSub.protocols[uint8(id)] = name
				}
				continue
			}
			if id, name, ok := splitEntry(strings.TrimPrefix(line, "\t")); ok && id <= 0xff {
				s := subclass{name: name, protocols: make(map[uint8]string)}
				curClass.subclasses[uint8(id)] = s
				curSub = &s
			} else {
				curSub = nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(db.vendors) == 0 && len(db.classes) == 0 {
		return nil, fmt.Errorf("no entries found")
	}
	return db, nil
}

// splitEntry parses "<hex>  <name>" with two-space separation.
func splitEntry(s string) (uint16, string, bool) {
	idPart, name, found := strings.Cut(s, "  ")
	if !found {
		return 0, "", false
	}
	id, err := strconv.ParseUint(strings.TrimSpace(idPart), 16, 16)
	if err != nil {
		return 0, "", false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, "", false
	}
	return uint16(id), name, true
}

// VendorCount reports how many vendors the database knows. Useful to
// tell a system usb.ids apart from the built-in fallback table.
func (db *DB) VendorCount() int {
	return len(db.vendors)
}

// Vendor returns the vendor name for a vendor id, or "".
func (db *DB) Vendor(vid uint16) string {
	return db.vendors[vid].name
}

// Product returns the product name for a vendor/product pair, or "".
func (db *DB) Product(vid, pid uint16) string {
	v, ok := db.vendors[vid]
	if !ok {
		return ""
	}
	return v.products[pid]
}

// DeviceNames resolves both halves of an id pair at once.
func (db *DB) DeviceNames(vid, pid uint16) (string, string) {
	return db.Vendor(vid), db.Product(vid, pid)
}

// ClassName returns the name of a base class, or "".
func (db *DB) ClassName(c uint8) string {
	return db.classes[c].name
}

// SubClassName returns the name of a subclass within a base class, or "".
func (db *DB) SubClassName(c, sc uint8) string {
	cl, ok := db.classes[c]
	if !ok {
		return ""
	}
	return cl.subclasses[sc].name
}

// ProtocolName returns the name of a protocol within a class/subclass
// pair, or "".
func (db *DB) ProtocolName(c, sc, p uint8) string {
	cl, ok := db.classes[c]
	if !ok {
		return ""
	}
	s, ok := cl.subclasses[sc]
	if !ok {
		return ""
	}
	return s.protocols[p]
}

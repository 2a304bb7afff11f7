// Package display renders canonical profiles for the terminal: a padded
// flat list, a tree mirroring the bus topology, or lsusb-compatible
// one-line output. It consumes the profile exactly as the query engine
// shaped it and performs no filtering or sorting of its own.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jmault/buscope/profile"
	"github.com/jmault/buscope/usbids"
)

// Encoding selects the tree drawing character set.
type Encoding string

const (
	EncodingUTF8  Encoding = "utf8"
	EncodingASCII Encoding = "ascii"
)

// SerialMask controls how device serial numbers are shown.
type SerialMask string

const (
	MaskNone     SerialMask = "none"
	MaskHide     SerialMask = "hide"
	MaskAsterisk SerialMask = "asterisk"
)

// Settings selects the output shape. Zero value renders a flat UTF-8 list
// at verbosity 0 with no headings.
type Settings struct {
	// Verbosity reveals nested detail: 0 devices, 1 +configurations,
	// 2 +interfaces, 3 +endpoints.
	Verbosity int
	Tree      bool
	Headings  bool
	Encoding  Encoding
	Mask      SerialMask
	Lsusb     bool
	// Group arranges flat list output. Tree output is inherently per bus.
	Group profile.GroupKey
	// Width caps variable-width columns; 0 auto-detects when writing to a
	// terminal and otherwise leaves lines unbounded.
	Width int
}

// Renderer writes one profile per Render call.
type Renderer struct {
	w     io.Writer
	s     Settings
	g     glyphSet
	names *usbids.DB
}

// New builds a renderer. names may be nil, in which case devices that
// carry no name render their numeric identity only.
func New(w io.Writer, s Settings, names *usbids.DB) *Renderer {
	if s.Width == 0 {
		s.Width = detectWidth(w)
	}
	g := utf8Glyphs
	if s.Encoding == EncodingASCII {
		g = asciiGlyphs
	}
	return &Renderer{w: w, s: s, g: g, names: names}
}

func (r *Renderer) Render(p *profile.Profile) error {
	switch {
	case r.s.Lsusb:
		return r.renderLsusb(p)
	case r.s.Tree:
		return r.renderTree(p)
	default:
		return r.renderList(p)
	}
}

// detectWidth returns the terminal width when w is one, 0 otherwise so
// redirected output is never truncated.
func detectWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return width
}

// vendorName resolves the manufacturer string, falling back to the name
// database.
func (r *Renderer) vendorName(d *profile.Device) string {
	if d.Manufacturer != "" {
		return d.Manufacturer
	}
	if r.names != nil && d.VendorID != nil {
		return r.names.Vendor(uint16(*d.VendorID))
	}
	return ""
}

// deviceName resolves the product string, falling back to the name
// database, then to the numeric identity.
func (r *Renderer) deviceName(d *profile.Device) string {
	if d.Name != "" {
		return d.Name
	}
	if r.names != nil && d.VendorID != nil && d.ProductID != nil {
		if name := r.names.Product(uint16(*d.VendorID), uint16(*d.ProductID)); name != "" {
			return name
		}
	}
	return d.DisplayName()
}

// className resolves an interface class triplet to a readable label,
// preferring the name database over the built-in class table.
func (r *Renderer) className(iface profile.Interface) string {
	c := iface.Class
	if r.names != nil {
		name := r.names.ClassName(uint8(c.Base))
		if sub := r.names.SubClassName(uint8(c.Base), c.Sub); sub != "" {
			if proto := r.names.ProtocolName(uint8(c.Base), c.Sub, c.Protocol); proto != "" {
				return name + " (" + proto + ")"
			}
			return name + " (" + sub + ")"
		}
		if name != "" {
			return name
		}
	}
	return c.Base.String()
}

func (r *Renderer) serial(d *profile.Device) string {
	switch r.s.Mask {
	case MaskHide:
		return ""
	case MaskAsterisk:
		return strings.Repeat("*", len(d.Serial))
	default:
		return d.Serial
	}
}

func idPair(d *profile.Device) string {
	vid, pid := uint16(0), uint16(0)
	if d.VendorID != nil {
		vid = uint16(*d.VendorID)
	}
	if d.ProductID != nil {
		pid = uint16(*d.ProductID)
	}
	return fmt.Sprintf("%04x:%04x", vid, pid)
}

// truncate shortens s to max display cells, marking the cut. max <= 0
// means unbounded.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func pad(s string, width int) string {
	if len([]rune(s)) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len([]rune(s)))
}

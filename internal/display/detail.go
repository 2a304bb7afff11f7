package display

import (
	"fmt"
	"strings"

	"github.com/jmault/buscope/profile"
	"github.com/jmault/buscope/usb"
)

func (r *Renderer) configLine(cfg profile.Configuration) string {
	parts := []string{fmt.Sprintf("Config %d:", cfg.Value)}
	if cfg.Name != "" {
		parts = append(parts, cfg.Name)
	}
	parts = append(parts, fmt.Sprintf("%d interfaces", len(cfg.Interfaces)))
	parts = append(parts, fmt.Sprintf("%dmA", cfg.MaxPower))
	parts = append(parts, cfg.Attributes...)
	return strings.Join(parts, " ")
}

func (r *Renderer) interfaceLine(iface profile.Interface) string {
	s := fmt.Sprintf("Interface %d.%d: %s", iface.Number, iface.AltSetting, r.className(iface))
	if iface.Name != "" {
		s += " " + iface.Name
	}
	if iface.Driver != "" {
		s += " driver " + iface.Driver
	}
	return s
}

func (r *Renderer) endpointLine(ep profile.Endpoint) (glyph, text string) {
	addr := ep.EndpointAddress()
	glyph = r.g.EndpointO
	if addr.Direction() == usb.DirectionIn {
		glyph = r.g.EndpointI
	}
	text = fmt.Sprintf("EP %d %s %s %s",
		addr.Number(), addr.Direction(), ep.TransferType(), ep.PacketString())
	if ep.Interval > 0 {
		text += fmt.Sprintf(" interval %d", ep.Interval)
	}
	return glyph, text
}

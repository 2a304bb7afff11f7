package profiler

import (
	"errors"

	"github.com/jmault/buscope/profile"
	"github.com/jmault/buscope/usb"
)

// decodeEnumeration turns a backend's raw devices into flat profile
// records. Descriptor blobs are decoded here, in the core, so backends
// stay pure data sources; decode problems degrade to diagnostics and the
// record keeps whatever fields survived.
func decodeEnumeration(backend string, enum *Enumeration) ([]*profile.Device, []profile.Diagnostic) {
	var diags []profile.Diagnostic
	records := make([]*profile.Device, 0, len(enum.Devices))
	for i := range enum.Devices {
		raw := &enum.Devices[i]
		rec := raw.Record
		rec.Bus = raw.Bus
		rec.Address = raw.Address
		rec.PortPath = raw.PortPath
		rec.Devices = nil

		if len(raw.Descriptors) > 0 {
			diags = append(diags, decodeBlob(backend, &rec, raw.Descriptors)...)
		}
		records = append(records, &rec)
	}
	return records, diags
}

// decodeBlob overlays the fields decoded from a raw descriptor blob onto
// the record. The blob is the authoritative source for descriptor-derived
// fields within this backend's view.
func decodeBlob(backend string, rec *profile.Device, blob []byte) []profile.Diagnostic {
	dev, configs, err := usb.DecodeDescriptors(blob)
	if err != nil {
		return []profile.Diagnostic{{
			Kind:    diagKindFor(err),
			Backend: backend,
			Device:  rec.Summary(),
			Detail:  err.Error(),
		}}
	}

	vid, pid := profile.ID(dev.VendorID), profile.ID(dev.ProductID)
	rec.VendorID = &vid
	rec.ProductID = &pid
	class := dev.Class
	rec.Class = &class
	usbVer, devVer := dev.USB, dev.Device
	rec.USBVersion = &usbVer
	rec.DeviceVersion = &devVer
	rec.MaxPacketSize = dev.MaxPacketSize
	rec.NumConfigurations = dev.NumConfigurations

	var diags []profile.Diagnostic
	rec.Configurations = make([]profile.Configuration, 0, len(configs))
	for _, cfg := range configs {
		if cfg.Truncated {
			diags = append(diags, profile.Diagnostic{
				Kind:    profile.DiagTruncatedDescriptor,
				Backend: backend,
				Device:  rec.Summary(),
				Detail:  "configuration descriptor shorter than its declared total length",
			})
		}
		for _, w := range cfg.Warnings {
			diags = append(diags, profile.Diagnostic{
				Kind:    diagKindFor(w),
				Backend: backend,
				Device:  rec.Summary(),
				Detail:  w.Error(),
			})
		}
		rec.Configurations = append(rec.Configurations, convertConfiguration(cfg))
	}
	if len(rec.Configurations) < int(rec.NumConfigurations) {
		diags = append(diags, profile.Diagnostic{
			Kind:    profile.DiagTruncatedDescriptor,
			Backend: backend,
			Device:  rec.Summary(),
			Detail:  "blob ended before all declared configurations",
		})
	}
	return diags
}

func diagKindFor(err error) profile.DiagnosticKind {
	if errors.Is(err, usb.ErrTruncated) {
		return profile.DiagTruncatedDescriptor
	}
	return profile.DiagMalformedDescriptor
}

func convertConfiguration(cfg usb.Configuration) profile.Configuration {
	out := profile.Configuration{
		Value:      cfg.Value,
		Attributes: cfg.Attributes.Strings(),
		MaxPower:   cfg.MaxPowerMilliAmps(),
		Interfaces: make([]profile.Interface, 0, len(cfg.Interfaces)),
	}
	for _, iface := range cfg.Interfaces {
		pi := profile.Interface{
			Number:     iface.Number,
			AltSetting: iface.AltSetting,
			Class:      iface.Class,
			Endpoints:  make([]profile.Endpoint, 0, len(iface.Endpoints)),
		}
		for _, ep := range iface.Endpoints {
			pi.Endpoints = append(pi.Endpoints, profile.Endpoint{
				Address:       uint8(ep.Address),
				Attributes:    ep.Attributes,
				MaxPacketSize: ep.MaxPacketSize,
				Interval:      ep.Interval,
			})
		}
		out.Interfaces = append(out.Interfaces, pi)
	}
	return out
}

package cmd

import (
	"context"
	"log/slog"

	"github.com/jmault/buscope/internal/display"
	"github.com/jmault/buscope/internal/log"
	"github.com/jmault/buscope/profile"
	"github.com/jmault/buscope/profiler"
	"github.com/jmault/buscope/usb"
	"github.com/jmault/buscope/usbids"
)

// SourceConfig selects where a profiling pass reads device data from and
// how the per-backend trees are merged.
type SourceConfig struct {
	Backend  []string `help:"Enumeration backends to run, in order (default: all registered)" env:"BUSCOPE_BACKEND"`
	FromJSON string   `help:"Profile a saved JSON dump instead of the live system" name:"from-json" env:"BUSCOPE_FROM_JSON"`
	Strict   bool     `help:"Only merge devices anchored by bus and port path, never by serial heuristics" env:"BUSCOPE_STRICT"`
}

// Profile runs one enumeration pass with the configured backends.
func (s *SourceConfig) Profile(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) (*profile.Profile, error) {
	return profiler.Run(ctx, s.Options(logger, rawLogger))
}

// Options builds the profiler options without running the pass. The watch
// command reuses them for repeated passes.
func (s *SourceConfig) Options(logger *slog.Logger, rawLogger log.RawLogger) profiler.Options {
	policy := profile.DefaultMergePolicy()
	if s.Strict {
		policy.AllowProvisional = false
	}
	return profiler.Options{
		Backends: s.Backend,
		FromJSON: s.FromJSON,
		Policy:   policy,
		Logger:   logger,
		RawLog:   rawLogger,
	}
}

// QueryConfig narrows and orders a profiled tree before it is shown or
// serialized. All criteria must match on the same device; hub ancestors of
// a match are always kept so the path stays intact.
type QueryConfig struct {
	VidPid       string           `help:"Keep devices matching VID[:PID], hex" name:"vidpid" placeholder:"VID[:PID]" env:"BUSCOPE_VIDPID"`
	Show         string           `help:"Keep devices matching [BUS:]DEVNO, decimal" placeholder:"[BUS:]DEVNO" env:"BUSCOPE_SHOW"`
	FilterName   string           `help:"Keep devices whose name contains the string (case sensitive)"`
	FilterSerial string           `help:"Keep devices whose serial contains the string (case sensitive)"`
	FilterClass  string           `help:"Keep devices of a class, by name (e.g. hid, mass-storage); interface classes match too"`
	HideHubs     bool             `help:"Drop hubs with no matching descendants"`
	HideBuses    bool             `help:"Drop buses that end up with no devices"`
	Sort         profile.SortKey  `help:"Sibling order" default:"no-sort" enum:"device-number,branch-position,no-sort"`
	Group        profile.GroupKey `help:"Partition flat output" default:"no-group" enum:"no-group,bus"`
}

// Filter translates the textual criteria into a profile filter.
func (q *QueryConfig) Filter() (*profile.Filter, error) {
	f := &profile.Filter{
		Name:   q.FilterName,
		Serial: q.FilterSerial,
	}
	if q.VidPid != "" {
		vid, pid, err := profile.ParseVidPid(q.VidPid)
		if err != nil {
			return nil, err
		}
		f.VendorID, f.ProductID = vid, pid
	}
	if q.Show != "" {
		bus, address, err := profile.ParseBusAddress(q.Show)
		if err != nil {
			return nil, err
		}
		f.Bus, f.Address = bus, address
	}
	if q.FilterClass != "" {
		c, err := usb.ClassFromName(q.FilterClass)
		if err != nil {
			return nil, err
		}
		f.Class = &c
	}
	return f, nil
}

// Apply filters, prunes and sorts p in place.
func (q *QueryConfig) Apply(p *profile.Profile) error {
	f, err := q.Filter()
	if err != nil {
		return err
	}
	f.Apply(p)
	if q.HideHubs {
		profile.HideEmptyHubs(p, f)
	}
	if q.HideBuses {
		profile.HideEmptyBuses(p)
	}
	q.Sort.Apply(p)
	return nil
}

// DisplayConfig holds the rendering knobs shared by list, tree and watch.
type DisplayConfig struct {
	Verbose    int    `help:"Show configurations (-v), interfaces (-vv) and endpoints (-vvv)" short:"v" type:"counter"`
	Headings   bool   `help:"Print column headings above flat output"`
	Encoding   string `help:"Character set for tree drawing" default:"utf8" enum:"utf8,ascii" env:"BUSCOPE_ENCODING"`
	MaskSerial string `help:"Serial number visibility" name:"mask-serial" default:"none" enum:"none,hide,asterisk" env:"BUSCOPE_MASK_SERIAL"`
	Lsusb      bool   `help:"Print one lsusb-compatible line per device"`
	Width      int    `help:"Wrap output at this column (default: terminal width)" env:"BUSCOPE_WIDTH"`
	NoNames    bool   `help:"Skip the USB ID database; show only descriptor strings" name:"no-names"`
}

// Settings resolves the flags into renderer settings. Verbosity past the
// deepest level clamps instead of erroring, so -vvvv behaves like -vvv.
func (d *DisplayConfig) Settings(tree bool, group profile.GroupKey) display.Settings {
	verbosity := d.Verbose
	if verbosity > 3 {
		verbosity = 3
	}
	return display.Settings{
		Verbosity: verbosity,
		Tree:      tree,
		Headings:  d.Headings,
		Encoding:  display.Encoding(d.Encoding),
		Mask:      display.SerialMask(d.MaskSerial),
		Lsusb:     d.Lsusb,
		Group:     group,
		Width:     d.Width,
	}
}

// Names loads the USB ID database unless disabled.
func (d *DisplayConfig) Names(logger *slog.Logger) *usbids.DB {
	if d.NoNames {
		return nil
	}
	db := usbids.Load()
	logger.Debug("Loaded USB ID database", "vendors", db.VendorCount())
	return db
}

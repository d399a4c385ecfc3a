// Package config persists a scan's default options as an INI file inside
// the scanned directory, the same key/value-section shape a from-scratch
// VCS uses for its own repository config.
package config

import (
	"strconv"

	"gopkg.in/ini.v1"

	"github.com/jwiegley/dirscan/plumbing"
	"github.com/jwiegley/dirscan/porcelain"
)

// FileName is the default basename of the persisted options file, created
// alongside the state database inside the scanned directory.
const FileName = ".dirscan.ini"

// Defaults holds the subset of porcelain.Options a profile can override.
// Fields left at their zero value fall through to Options' own defaults
// once Apply is called.
type Defaults struct {
	Days float64
	// MaxSize is the raw maxSize spec, either a bare byte count or an "N%"
	// percentage of volume capacity — resolved by porcelain.Scanner, not here.
	MaxSize           string
	Depth             int
	UseChecksum       bool
	UseChecksumAlways bool
	CheckWindow       int
	MinimalScan       bool
	Sudo              bool
	Secure            bool
}

// Load reads a [scan] section from path. A missing file (or missing key)
// yields the fallback values rather than an error — zero for every field
// except Depth, which falls back to plumbing.UnboundedDepth — matching the
// way a fresh checkout has no config yet.
func Load(path string) (Defaults, error) {
	cfg, err := ini.LooseLoad(path)
	if err != nil {
		return Defaults{}, err
	}
	sec := cfg.Section("scan")

	return Defaults{
		Days:              sec.Key("days").MustFloat64(0),
		MaxSize:           sec.Key("max_size").MustString(""),
		Depth:             sec.Key("depth").MustInt(plumbing.UnboundedDepth),
		UseChecksum:       sec.Key("use_checksum").MustBool(false),
		UseChecksumAlways: sec.Key("use_checksum_always").MustBool(false),
		CheckWindow:       sec.Key("check_window").MustInt(0),
		MinimalScan:       sec.Key("minimal_scan").MustBool(false),
		Sudo:              sec.Key("sudo").MustBool(false),
		Secure:            sec.Key("secure").MustBool(false),
	}, nil
}

// Save writes d back out to path as a [scan] section, creating the file if
// it does not already exist.
func Save(path string, d Defaults) error {
	cfg, err := ini.LooseLoad(path)
	if err != nil {
		return err
	}
	sec := cfg.Section("scan")
	sec.Key("days").SetValue(strconv.FormatFloat(d.Days, 'f', -1, 64))
	sec.Key("max_size").SetValue(d.MaxSize)
	sec.Key("depth").SetValue(strconv.Itoa(d.Depth))
	sec.Key("use_checksum").SetValue(strconv.FormatBool(d.UseChecksum))
	sec.Key("use_checksum_always").SetValue(strconv.FormatBool(d.UseChecksumAlways))
	sec.Key("check_window").SetValue(strconv.Itoa(d.CheckWindow))
	sec.Key("minimal_scan").SetValue(strconv.FormatBool(d.MinimalScan))
	sec.Key("sudo").SetValue(strconv.FormatBool(d.Sudo))
	sec.Key("secure").SetValue(strconv.FormatBool(d.Secure))
	return cfg.SaveTo(path)
}

// Apply overlays d onto opts, only touching fields that were left at their
// zero value in opts (for Depth: left at plumbing.UnboundedDepth; for
// MaxSize: both MaxSize and MaxSizeBytes unset), so a CLI flag set to a
// non-default value wins over the persisted default.
func Apply(opts *porcelain.Options, d Defaults) {
	if opts.Days == 0 {
		opts.Days = d.Days
	}
	if opts.MaxSizeBytes == 0 && opts.MaxSize == "" {
		opts.MaxSize = d.MaxSize
	}
	if opts.Depth == plumbing.UnboundedDepth {
		opts.Depth = d.Depth
	}
	if !opts.UseChecksum {
		opts.UseChecksum = d.UseChecksum
	}
	if !opts.UseChecksumAlways {
		opts.UseChecksumAlways = d.UseChecksumAlways
	}
	if opts.CheckWindow == 0 {
		opts.CheckWindow = d.CheckWindow
	}
	if !opts.MinimalScan {
		opts.MinimalScan = d.MinimalScan
	}
	if !opts.Removal.Sudo {
		opts.Removal.Sudo = d.Sudo
	}
	if !opts.Removal.Secure {
		opts.Removal.Secure = d.Secure
	}
}

// Package cfgfile rewrites ERA5 ingestion config files: it points the date
// selection at a new window, optionally redirects the target path to a
// scratch bucket, and appends or strips the per-run license sections.
package cfgfile

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/weathertools/era5-config-updater/pkg/licenses"
	"github.com/weathertools/era5-config-updater/pkg/window"
)

// publicRawPrefix is the production bucket root the configs normally point
// at. Runs against a scratch bucket substitute their own prefix for it.
const publicRawPrefix = "gs://gcp-public-data-arco-era5/raw"

var (
	ErrDuplicateSection = errors.New("section already exists")
	ErrMissingSection   = errors.New("section not found")
	ErrMissingKey       = errors.New("key not found")
)

// loadOptions keeps parsing aligned with the ingestion pipeline's own
// config reader: inline ';' is part of the value, and indented
// continuation lines extend the previous value.
var loadOptions = ini.LoadOptions{
	IgnoreInlineComment:        true,
	AllowPythonMultilineValues: true,
}

func init() {
	// Rewrites use key=value with no padding around the delimiter.
	ini.PrettyFormat = false
}

// Mutation describes one config-file update.
type Mutation struct {
	// FieldName is the selection key receiving the date range, usually
	// "date". Ignored for year-wise files.
	FieldName string
	Window    window.Window
	// YearWise selects the year/month/day=all form instead of a range.
	YearWise bool
	// LicenseText is rendered license blocks, appended as new sections.
	LicenseText string
	// TempPath, when set, replaces the production bucket prefix in
	// parameters.target_path.
	TempPath string
}

// Apply rewrites the config at path according to m. The file is parsed,
// mutated in memory and written back whole; a failed mutation leaves the
// file untouched.
func Apply(path string, m Mutation) error {
	cfg, err := load(path)
	if err != nil {
		return err
	}
	if m.TempPath != "" {
		if err := redirectTargetPath(cfg, m.TempPath); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := setSelection(cfg, m); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := appendLicenses(cfg, m.LicenseText); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// RemoveLicenses deletes sections parameters.api0 .. parameters.api<count-1>
// from the config at path. Sections that are already gone are skipped, so
// stripping is idempotent.
func RemoveLicenses(path string, count int) error {
	cfg, err := load(path)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		cfg.DeleteSection(licenses.SectionName(i))
	}
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

func load(path string) (*ini.File, error) {
	cfg, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return cfg, nil
}

func redirectTargetPath(cfg *ini.File, tempPath string) error {
	section, err := cfg.GetSection("parameters")
	if err != nil {
		return fmt.Errorf("%w: [parameters]", ErrMissingSection)
	}
	if !section.HasKey("target_path") {
		return fmt.Errorf("%w: target_path in [parameters]", ErrMissingKey)
	}
	key := section.Key("target_path")
	key.SetValue(strings.ReplaceAll(key.Value(), publicRawPrefix, tempPath))
	return nil
}

func setSelection(cfg *ini.File, m Mutation) error {
	section, err := cfg.GetSection("selection")
	if err != nil {
		return fmt.Errorf("%w: [selection]", ErrMissingSection)
	}
	if m.YearWise {
		section.Key("year").SetValue(m.Window.Year)
		section.Key("month").SetValue(m.Window.Month)
		section.Key("day").SetValue("all")
		return nil
	}
	section.Key(m.FieldName).SetValue(m.Window.Range())
	return nil
}

func appendLicenses(cfg *ini.File, text string) error {
	blocks, err := licenses.ParseBlocks(text)
	if err != nil {
		return err
	}
	for _, block := range blocks {
		// NewSection silently reuses an existing section, so the
		// duplicate check has to happen up front.
		if _, err := cfg.GetSection(block.Section); err == nil {
			return fmt.Errorf("%w: [%s]", ErrDuplicateSection, block.Section)
		}
		section, err := cfg.NewSection(block.Section)
		if err != nil {
			return fmt.Errorf("failed to add section [%s]: %w", block.Section, err)
		}
		section.Key("api_url").SetValue(block.APIURL)
		section.Key("api_key").SetValue(block.APIKey)
	}
	return nil
}

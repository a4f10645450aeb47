// Package rules holds the file-selection table: which config files each
// ingestion mode touches, and which of them chunk by calendar year instead
// of a single date range.
package rules

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/weathertools/era5-config-updater/pkg/window"
)

// Rules maps each mode to the filename fragments that select its config
// files, plus the fragments marking year-wise files. Matching is substring
// containment on the file path, so a fragment like "sl" also selects
// "lnsp"; keep fragments as specific as the config names require.
type Rules struct {
	Fragments map[string][]string `yaml:"fragments"`
	YearWise  []string            `yaml:"year_wise"`
}

// Default returns the built-in selection table for the standard ERA5
// config layout.
func Default() Rules {
	return Rules{
		Fragments: map[string][]string{
			string(window.ModeERA5):         {"dve", "o3q", "qrqs", "tw", "pl", "sl", "lnsp", "zs", "sfc"},
			string(window.ModeERA5TDaily):   {"dve", "o3q", "qrqs", "tw", "pl", "sl"},
			string(window.ModeERA5TMonthly): {"lnsp", "zs", "sfc"},
		},
		YearWise: []string{"lnsp", "zs", "sfc"},
	}
}

// Load reads a YAML rules file. The file replaces the built-in table
// wholesale; there is no merging with Default.
func Load(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	if len(r.Fragments) == 0 {
		return Rules{}, fmt.Errorf("rules file %s defines no fragments", path)
	}
	return r, nil
}

// ForMode returns the fragments selecting config files for mode.
func (r Rules) ForMode(mode window.Mode) ([]string, error) {
	fragments, ok := r.Fragments[string(mode)]
	if !ok || len(fragments) == 0 {
		return nil, fmt.Errorf("no config selection fragments for mode %q", mode)
	}
	return fragments, nil
}

// IsYearWise reports whether path names a config that chunks by year.
func (r Rules) IsYearWise(path string) bool {
	return Matches(path, r.YearWise)
}

// Matches reports whether any fragment occurs in path.
func Matches(path string, fragments []string) bool {
	for _, fragment := range fragments {
		if strings.Contains(path, fragment) {
			return true
		}
	}
	return false
}

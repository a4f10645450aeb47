// Package updater drives whole-directory config maintenance: it computes
// the date window for a mode, resolves license secrets once, and applies
// the resulting mutation to every selected config file.
package updater

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/weathertools/era5-config-updater/pkg/cfgfile"
	"github.com/weathertools/era5-config-updater/pkg/licenses"
	"github.com/weathertools/era5-config-updater/pkg/rules"
	"github.com/weathertools/era5-config-updater/pkg/secrets"
	"github.com/weathertools/era5-config-updater/pkg/window"
)

// Updater wires the window calculator, secret store and config mutator into
// directory-level operations. Zero-value fields fall back to the process
// environment, the built-in rules and the wall clock.
type Updater struct {
	Store   secrets.Store
	Environ []string
	Rules   rules.Rules
	Now     func() time.Time
}

// UpdateOptions describes one directory update run.
type UpdateOptions struct {
	Directory string
	FieldName string
	Mode      window.Mode
	// TempPath redirects parameters.target_path away from the production
	// bucket when set.
	TempPath string
	// References overrides environment discovery of license secrets.
	References []string
	// DryRun lists the files that would change without resolving secrets
	// or writing anything.
	DryRun bool
}

// UpdateDirectory updates every config file the mode's rules select under
// opts.Directory and returns the paths it touched. ERA5 runs scan all
// first-level subdirectories; ERA5T runs scan only the subdirectory named
// after the mode. License secrets are resolved once and the same rendered
// blocks are appended to every file; the first failure aborts the run.
func (u *Updater) UpdateDirectory(ctx context.Context, opts UpdateOptions) ([]string, error) {
	rul := u.rules()
	fragments, err := rul.ForMode(opts.Mode)
	if err != nil {
		return nil, err
	}

	pattern := filepath.Join(opts.Directory, "*", "*.cfg")
	if opts.Mode != window.ModeERA5 {
		pattern = filepath.Join(opts.Directory, string(opts.Mode), "*.cfg")
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", opts.Directory, err)
	}

	var selected []string
	for _, path := range matches {
		if !rules.Matches(path, fragments) {
			log.Debug().Str("file", path).Msg("no matching fragment, skipping")
			continue
		}
		selected = append(selected, path)
	}
	if len(selected) == 0 {
		log.Warn().Str("directory", opts.Directory).Str("mode", string(opts.Mode)).
			Msg("no config files matched")
		return nil, nil
	}

	w := window.Compute(opts.Mode, u.now())
	refs := opts.References
	if len(refs) == 0 {
		refs = licenses.EnvReferences(u.environ())
	}

	if opts.DryRun {
		for _, path := range selected {
			log.Info().Str("file", path).Str("range", w.Range()).
				Bool("year_wise", rul.IsYearWise(path)).Msg("would update config")
		}
		return selected, nil
	}

	licenseText, err := u.licenseText(ctx, refs)
	if err != nil {
		return nil, err
	}

	for _, path := range selected {
		m := cfgfile.Mutation{
			FieldName:   opts.FieldName,
			Window:      w,
			YearWise:    rul.IsYearWise(path),
			LicenseText: licenseText,
			TempPath:    opts.TempPath,
		}
		if err := cfgfile.Apply(path, m); err != nil {
			return nil, err
		}
		log.Info().Str("file", path).Str("range", w.Range()).
			Bool("year_wise", m.YearWise).Msg("updated config")
	}
	return selected, nil
}

// StripDirectory removes injected license sections from every .cfg file
// directly inside directory and returns the paths it rewrote. A negative
// count derives the section count from the environment references, matching
// what a prior update run injected.
func (u *Updater) StripDirectory(directory string, count int) ([]string, error) {
	if count < 0 {
		count = len(licenses.EnvReferences(u.environ()))
	}

	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", directory, err)
	}

	var stripped []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".cfg") {
			continue
		}
		path := filepath.Join(directory, entry.Name())
		if err := cfgfile.RemoveLicenses(path, count); err != nil {
			return nil, err
		}
		log.Info().Str("file", path).Int("licenses", count).Msg("stripped config")
		stripped = append(stripped, path)
	}
	return stripped, nil
}

func (u *Updater) licenseText(ctx context.Context, refs []string) (string, error) {
	if len(refs) == 0 {
		return "", nil
	}
	if u.Store == nil {
		return "", fmt.Errorf("no secret store configured for %d license references", len(refs))
	}
	blocks, err := licenses.Collect(ctx, u.Store, refs)
	if err != nil {
		return "", err
	}
	return licenses.Render(blocks), nil
}

func (u *Updater) rules() rules.Rules {
	if u.Rules.Fragments != nil {
		return u.Rules
	}
	return rules.Default()
}

func (u *Updater) environ() []string {
	if u.Environ != nil {
		return u.Environ
	}
	return os.Environ()
}

func (u *Updater) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

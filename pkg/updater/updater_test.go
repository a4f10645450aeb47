package updater

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"

	"github.com/weathertools/era5-config-updater/pkg/secrets"
	"github.com/weathertools/era5-config-updater/pkg/window"
)

const miniConfig = `[parameters]
client=cds
target_path=gs://gcp-public-data-arco-era5/raw/test.grb2

[selection]
date=2020-01-01
`

type countingStore struct {
	creds map[string]secrets.Credential
	calls int
}

func (c *countingStore) Resolve(_ context.Context, reference string) (secrets.Credential, error) {
	c.calls++
	cred, ok := c.creds[reference]
	if !ok {
		return secrets.Credential{}, &secrets.ResolutionError{
			Reference: reference,
			Err:       fmt.Errorf("no secret found"),
		}
	}
	return cred, nil
}

func (c *countingStore) Close() error { return nil }

func newStore() *countingStore {
	return &countingStore{creds: map[string]secrets.Credential{
		"ref-a": {APIURL: "https://cds.example/api", APIKey: "1234:alpha"},
	}}
}

func fixedMarch10() time.Time {
	return time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(miniConfig), 0o644))
}

func loadSection(t *testing.T, path, section string) *ini.Section {
	t.Helper()
	cfg, err := ini.Load(path)
	require.NoError(t, err)
	return cfg.Section(section)
}

func TestUpdateDirectory_ScansSubtreeForERA5(t *testing.T) {
	base := t.TempDir()
	dvePath := filepath.Join(base, "hres", "era5_ml_dve.cfg")
	sfcPath := filepath.Join(base, "soil", "era5_sfc.cfg")
	decoyPath := filepath.Join(base, "hres", "era5_iouv.cfg")
	topLevelPath := filepath.Join(base, "era5_ml_dve_top.cfg")
	for _, p := range []string{dvePath, sfcPath, decoyPath, topLevelPath} {
		writeFile(t, p)
	}

	u := &Updater{
		Store:   newStore(),
		Environ: []string{"API_KEY_0=ref-a"},
		Now:     fixedMarch10,
	}
	updated, err := u.UpdateDirectory(context.Background(), UpdateOptions{
		Directory: base,
		FieldName: "date",
		Mode:      window.ModeERA5,
	})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{dvePath, sfcPath}, updated)

	require.Equal(t, "2024-01-01/to/2024-01-31", loadSection(t, dvePath, "selection").Key("date").String())
	require.Equal(t, "1234:alpha", loadSection(t, dvePath, "parameters.api0").Key("api_key").String())

	sfcSelection := loadSection(t, sfcPath, "selection")
	require.Equal(t, "2024", sfcSelection.Key("year").String())
	require.Equal(t, "01", sfcSelection.Key("month").String())
	require.Equal(t, "all", sfcSelection.Key("day").String())

	// Files without a matching fragment and files outside the one-level
	// subdirectory layout stay byte-identical.
	for _, p := range []string{decoyPath, topLevelPath} {
		content, err := os.ReadFile(p)
		require.NoError(t, err)
		require.Equal(t, miniConfig, string(content))
	}
}

func TestUpdateDirectory_ERA5TScopedToModeSubdirectory(t *testing.T) {
	base := t.TempDir()
	dailyPath := filepath.Join(base, "era5t-daily", "era5_ml_dve_daily.cfg")
	monthlyPath := filepath.Join(base, "era5t-monthly", "era5_ml_lnsp.cfg")
	writeFile(t, dailyPath)
	writeFile(t, monthlyPath)

	u := &Updater{Store: newStore(), Environ: []string{}, Now: fixedMarch10}
	updated, err := u.UpdateDirectory(context.Background(), UpdateOptions{
		Directory: base,
		FieldName: "date",
		Mode:      window.ModeERA5TDaily,
	})
	require.NoError(t, err)
	require.Equal(t, []string{dailyPath}, updated)

	require.Equal(t, "2024-03-04/to/2024-03-04", loadSection(t, dailyPath, "selection").Key("date").String())

	content, err := os.ReadFile(monthlyPath)
	require.NoError(t, err)
	require.Equal(t, miniConfig, string(content))
}

func TestUpdateDirectory_ResolvesSecretsOnce(t *testing.T) {
	base := t.TempDir()
	writeFile(t, filepath.Join(base, "hres", "era5_ml_dve.cfg"))
	writeFile(t, filepath.Join(base, "hres", "era5_ml_o3q.cfg"))

	store := newStore()
	u := &Updater{Store: store, Environ: []string{"API_KEY_0=ref-a"}, Now: fixedMarch10}
	updated, err := u.UpdateDirectory(context.Background(), UpdateOptions{
		Directory: base,
		FieldName: "date",
		Mode:      window.ModeERA5,
	})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	require.Equal(t, 1, store.calls)
}

func TestUpdateDirectory_DryRunLeavesFilesUntouched(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "hres", "era5_ml_dve.cfg")
	writeFile(t, path)

	store := newStore()
	u := &Updater{Store: store, Environ: []string{"API_KEY_0=ref-a"}, Now: fixedMarch10}
	updated, err := u.UpdateDirectory(context.Background(), UpdateOptions{
		Directory: base,
		FieldName: "date",
		Mode:      window.ModeERA5,
		DryRun:    true,
	})
	require.NoError(t, err)
	require.Equal(t, []string{path}, updated)
	require.Zero(t, store.calls)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, miniConfig, string(content))
}

func TestUpdateDirectory_AbortsWhenResolutionFails(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "hres", "era5_ml_dve.cfg")
	writeFile(t, path)

	u := &Updater{
		Store:   newStore(),
		Environ: []string{"API_KEY_0=ref-a", "API_KEY_1=ref-missing"},
		Now:     fixedMarch10,
	}
	updated, err := u.UpdateDirectory(context.Background(), UpdateOptions{
		Directory: base,
		FieldName: "date",
		Mode:      window.ModeERA5,
	})
	require.Error(t, err)
	require.Nil(t, updated)

	var resErr *secrets.ResolutionError
	require.ErrorAs(t, err, &resErr)

	// Resolution happens before any file is rewritten.
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, miniConfig, string(content))
}

func TestUpdateDirectory_NoMatchedFiles(t *testing.T) {
	u := &Updater{Store: newStore(), Environ: []string{}, Now: fixedMarch10}
	updated, err := u.UpdateDirectory(context.Background(), UpdateOptions{
		Directory: t.TempDir(),
		FieldName: "date",
		Mode:      window.ModeERA5,
	})
	require.NoError(t, err)
	require.Empty(t, updated)
}

func TestUpdateDirectory_OverrideReferences(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "hres", "era5_ml_dve.cfg")
	writeFile(t, path)

	u := &Updater{
		Store: newStore(),
		// The environment points at a reference the store cannot resolve;
		// explicit references must win.
		Environ: []string{"API_KEY_0=ref-missing"},
		Now:     fixedMarch10,
	}
	_, err := u.UpdateDirectory(context.Background(), UpdateOptions{
		Directory:  base,
		FieldName:  "date",
		Mode:       window.ModeERA5,
		References: []string{"ref-a"},
	})
	require.NoError(t, err)
	require.Equal(t, "https://cds.example/api", loadSection(t, path, "parameters.api0").Key("api_url").String())
}

func TestStripDirectory_CountFromEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "era5_ml_dve_daily.cfg")
	writeFile(t, path)
	nested := filepath.Join(dir, "nested", "era5_ml_dve_daily.cfg")
	writeFile(t, nested)
	withLicenses := miniConfig + "\n[parameters.api0]\napi_url=https://cds.example/api\napi_key=1234:alpha\n\n[parameters.api1]\napi_url=https://ads.example/api\napi_key=5678:beta\n"
	require.NoError(t, os.WriteFile(path, []byte(withLicenses), 0o644))

	u := &Updater{Environ: []string{"API_KEY_0=ref-a", "API_KEY_1=ref-b"}}
	stripped, err := u.StripDirectory(dir, -1)
	require.NoError(t, err)
	require.Equal(t, []string{path}, stripped)

	cfg, err := ini.Load(path)
	require.NoError(t, err)
	require.NotContains(t, cfg.SectionStrings(), "parameters.api0")
	require.NotContains(t, cfg.SectionStrings(), "parameters.api1")

	// Stripping is not recursive.
	content, err := os.ReadFile(nested)
	require.NoError(t, err)
	require.Equal(t, miniConfig, string(content))
}

func TestStripDirectory_PartialCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "era5_sfc.cfg")
	withLicenses := miniConfig + "\n[parameters.api0]\napi_url=https://cds.example/api\napi_key=1234:alpha\n\n[parameters.api1]\napi_url=https://ads.example/api\napi_key=5678:beta\n"
	require.NoError(t, os.WriteFile(path, []byte(withLicenses), 0o644))

	u := &Updater{Environ: []string{}}
	_, err := u.StripDirectory(dir, 1)
	require.NoError(t, err)

	cfg, err := ini.Load(path)
	require.NoError(t, err)
	require.NotContains(t, cfg.SectionStrings(), "parameters.api0")
	require.Contains(t, cfg.SectionStrings(), "parameters.api1")
}

package cmds

import (
	"context"
	"fmt"
	"os"
	"time"

	glzcli "github.com/go-go-golems/glazed/pkg/cli"
	gcmds "github.com/go-go-golems/glazed/pkg/cmds"
	glayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"

	"github.com/weathertools/era5-config-updater/pkg/licenses"
	"github.com/weathertools/era5-config-updater/pkg/secretslayer"
)

type LicensesCommand struct{ *gcmds.CommandDescription }

type LicensesSettings struct {
	References []string `glazed.parameter:"license-secret"`
	Reveal     bool     `glazed.parameter:"reveal"`
	Censor     string   `glazed.parameter:"censor"`
}

func NewLicensesCommand() (*LicensesCommand, error) {
	glazedLayers, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}
	commandLayer, err := glzcli.NewCommandSettingsLayer()
	if err != nil {
		return nil, err
	}
	cd := gcmds.NewCommandDescription(
		"licenses",
		gcmds.WithShort("Resolve license secrets and show the sections an update would inject"),
		gcmds.WithFlags(
			parameters.NewParameterDefinition("license-secret", parameters.ParameterTypeStringList, parameters.WithHelp("License secret references (overrides API_KEY_n environment discovery)")),
			parameters.NewParameterDefinition("reveal", parameters.ParameterTypeBool, parameters.WithDefault(false), parameters.WithHelp("Show api_key values instead of censoring them")),
			parameters.NewParameterDefinition("censor", parameters.ParameterTypeString, parameters.WithDefault("****"), parameters.WithHelp("String used for censored values")),
		),
		gcmds.WithLayersList(glazedLayers, commandLayer),
	)
	_, err = secretslayer.AddSecretsLayerToCommand(cd)
	if err != nil {
		return nil, err
	}
	return &LicensesCommand{cd}, nil
}

func (c *LicensesCommand) RunIntoGlazeProcessor(ctx context.Context, parsed *glayers.ParsedLayers, gp middlewares.Processor) error {
	s := &LicensesSettings{}
	if err := parsed.InitializeStruct(glayers.DefaultSlug, s); err != nil {
		return err
	}

	refs := s.References
	if len(refs) == 0 {
		refs = licenses.EnvReferences(os.Environ())
	}
	if len(refs) == 0 {
		return nil
	}

	ss, err := secretslayer.GetSecretsSettings(parsed)
	if err != nil {
		return err
	}
	ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	store, err := secretslayer.Open(ctx2, ss)
	if err != nil {
		return fmt.Errorf("failed to open secret store: %w", err)
	}
	defer func() { _ = store.Close() }()

	blocks, err := licenses.Collect(ctx, store, refs)
	if err != nil {
		return err
	}

	for i, block := range blocks {
		key := s.Censor
		if s.Reveal {
			key = block.APIKey
		}
		row := types.NewRow(
			types.MRP("section", block.Section),
			types.MRP("reference", refs[i]),
			types.MRP("api_url", block.APIURL),
			types.MRP("api_key", key),
		)
		if err := gp.AddRow(ctx, row); err != nil {
			return err
		}
	}
	return nil
}

var _ gcmds.GlazeCommand = &LicensesCommand{}

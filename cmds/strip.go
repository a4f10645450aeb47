package cmds

import (
	"context"
	"fmt"

	glzcli "github.com/go-go-golems/glazed/pkg/cli"
	gcmds "github.com/go-go-golems/glazed/pkg/cmds"
	glayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"

	"github.com/weathertools/era5-config-updater/pkg/updater"
)

type StripCommand struct{ *gcmds.CommandDescription }

type StripSettings struct {
	Directory string `glazed.parameter:"directory"`
	Count     int    `glazed.parameter:"count"`
}

func NewStripCommand() (*StripCommand, error) {
	layer, err := glzcli.NewCommandSettingsLayer()
	if err != nil {
		return nil, err
	}
	cd := gcmds.NewCommandDescription(
		"strip-licenses",
		gcmds.WithShort("Remove injected license sections from config files in a directory"),
		gcmds.WithFlags(
			parameters.NewParameterDefinition("directory", parameters.ParameterTypeString, parameters.WithRequired(true), parameters.WithShortFlag("d"), parameters.WithHelp("Directory containing config files (not recursive)")),
			parameters.NewParameterDefinition("count", parameters.ParameterTypeInteger, parameters.WithDefault(-1), parameters.WithHelp("Number of license sections to remove (-1 = derive from API_KEY_n environment)")),
		),
		gcmds.WithLayersList(layer),
	)
	return &StripCommand{cd}, nil
}

func (c *StripCommand) Run(ctx context.Context, parsed *glayers.ParsedLayers) error {
	s := &StripSettings{}
	if err := parsed.InitializeStruct(glayers.DefaultSlug, s); err != nil {
		return err
	}

	u := &updater.Updater{}
	stripped, err := u.StripDirectory(s.Directory, s.Count)
	if err != nil {
		return err
	}

	fmt.Printf("Stripped %d config file(s) under %s\n", len(stripped), s.Directory)
	return nil
}

var _ gcmds.BareCommand = &StripCommand{}

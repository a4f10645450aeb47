package cmds

import (
	"context"
	"fmt"
	"time"

	glzcli "github.com/go-go-golems/glazed/pkg/cli"
	gcmds "github.com/go-go-golems/glazed/pkg/cmds"
	glayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/go-go-golems/glazed/pkg/middlewares"
	"github.com/go-go-golems/glazed/pkg/settings"
	"github.com/go-go-golems/glazed/pkg/types"

	"github.com/weathertools/era5-config-updater/pkg/window"
)

type WindowCommand struct{ *gcmds.CommandDescription }

type WindowSettings struct {
	Mode  string `glazed.parameter:"mode"`
	Today string `glazed.parameter:"today"`
}

func NewWindowCommand() (*WindowCommand, error) {
	glazedLayers, err := settings.NewGlazedParameterLayers()
	if err != nil {
		return nil, err
	}
	commandLayer, err := glzcli.NewCommandSettingsLayer()
	if err != nil {
		return nil, err
	}
	cd := gcmds.NewCommandDescription(
		"window",
		gcmds.WithShort("Show the date window a mode would process"),
		gcmds.WithFlags(
			parameters.NewParameterDefinition("mode", parameters.ParameterTypeChoice, parameters.WithRequired(true), parameters.WithShortFlag("m"), parameters.WithChoices("era5", "era5t-daily", "era5t-monthly"), parameters.WithHelp("Ingestion mode")),
			parameters.NewParameterDefinition("today", parameters.ParameterTypeString, parameters.WithHelp("Evaluate as if today were this date (YYYY-MM-DD)")),
		),
		gcmds.WithLayersList(glazedLayers, commandLayer),
	)
	return &WindowCommand{cd}, nil
}

func (c *WindowCommand) RunIntoGlazeProcessor(ctx context.Context, parsed *glayers.ParsedLayers, gp middlewares.Processor) error {
	s := &WindowSettings{}
	if err := parsed.InitializeStruct(glayers.DefaultSlug, s); err != nil {
		return err
	}

	mode, err := window.ParseMode(s.Mode)
	if err != nil {
		return err
	}

	today := time.Now()
	if s.Today != "" {
		today, err = time.Parse(window.DateLayout, s.Today)
		if err != nil {
			return fmt.Errorf("failed to parse --today: %w", err)
		}
	}

	w := window.Compute(mode, today)
	row := types.NewRow(
		types.MRP("mode", string(mode)),
		types.MRP("first", w.First.Format(window.DateLayout)),
		types.MRP("last", w.Last.Format(window.DateLayout)),
		types.MRP("range", w.Range()),
		types.MRP("year", w.Year),
		types.MRP("month", w.Month),
	)
	return gp.AddRow(ctx, row)
}

var _ gcmds.GlazeCommand = &WindowCommand{}

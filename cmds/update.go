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
	"github.com/spf13/viper"

	"github.com/weathertools/era5-config-updater/pkg/licenses"
	"github.com/weathertools/era5-config-updater/pkg/rules"
	"github.com/weathertools/era5-config-updater/pkg/secrets"
	"github.com/weathertools/era5-config-updater/pkg/secretslayer"
	"github.com/weathertools/era5-config-updater/pkg/updater"
	"github.com/weathertools/era5-config-updater/pkg/window"
)

type UpdateCommand struct{ *gcmds.CommandDescription }

type UpdateSettings struct {
	Directory  string   `glazed.parameter:"directory"`
	FieldName  string   `glazed.parameter:"field-name"`
	Mode       string   `glazed.parameter:"mode"`
	TempPath   string   `glazed.parameter:"temp-path"`
	RulesFile  string   `glazed.parameter:"rules"`
	References []string `glazed.parameter:"license-secret"`
	DryRun     bool     `glazed.parameter:"dry-run"`
}

func NewUpdateCommand() (*UpdateCommand, error) {
	layer, err := glzcli.NewCommandSettingsLayer()
	if err != nil {
		return nil, err
	}
	cd := gcmds.NewCommandDescription(
		"update",
		gcmds.WithShort("Update config files in a directory for the next ingestion window"),
		gcmds.WithFlags(
			parameters.NewParameterDefinition("directory", parameters.ParameterTypeString, parameters.WithRequired(true), parameters.WithShortFlag("d"), parameters.WithHelp("Directory containing config files")),
			parameters.NewParameterDefinition("field-name", parameters.ParameterTypeString, parameters.WithDefault("date"), parameters.WithHelp("Selection key receiving the date range")),
			parameters.NewParameterDefinition("mode", parameters.ParameterTypeChoice, parameters.WithRequired(true), parameters.WithShortFlag("m"), parameters.WithChoices("era5", "era5t-daily", "era5t-monthly"), parameters.WithHelp("Ingestion mode")),
			parameters.NewParameterDefinition("temp-path", parameters.ParameterTypeString, parameters.WithHelp("Replace the production bucket prefix in target_path with this path")),
			parameters.NewParameterDefinition("rules", parameters.ParameterTypeString, parameters.WithHelp("YAML file overriding the built-in file selection rules")),
			parameters.NewParameterDefinition("license-secret", parameters.ParameterTypeStringList, parameters.WithHelp("License secret references (overrides API_KEY_n environment discovery)")),
			parameters.NewParameterDefinition("dry-run", parameters.ParameterTypeBool, parameters.WithDefault(false), parameters.WithHelp("List the files that would change without writing")),
		),
		gcmds.WithLayersList(layer),
	)
	_, err = secretslayer.AddSecretsLayerToCommand(cd)
	if err != nil {
		return nil, err
	}
	return &UpdateCommand{cd}, nil
}

func (c *UpdateCommand) Run(ctx context.Context, parsed *glayers.ParsedLayers) error {
	s := &UpdateSettings{}
	if err := parsed.InitializeStruct(glayers.DefaultSlug, s); err != nil {
		return err
	}

	mode, err := window.ParseMode(s.Mode)
	if err != nil {
		return err
	}

	rulesPath := s.RulesFile
	if rulesPath == "" {
		rulesPath = viper.GetString("update.rules")
	}
	rul := rules.Default()
	if rulesPath != "" {
		rul, err = rules.Load(rulesPath)
		if err != nil {
			return err
		}
	}

	tempPath := s.TempPath
	if tempPath == "" {
		tempPath = viper.GetString("update.temp_path")
	}

	refs := s.References
	if len(refs) == 0 {
		refs = licenses.EnvReferences(os.Environ())
	}

	// The store is only opened when the run will actually resolve
	// secrets; a dry run or a run without license references needs none.
	var store secrets.Store
	if !s.DryRun && len(refs) > 0 {
		ss, err := secretslayer.GetSecretsSettings(parsed)
		if err != nil {
			return err
		}
		ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		store, err = secretslayer.Open(ctx2, ss)
		if err != nil {
			return fmt.Errorf("failed to open secret store: %w", err)
		}
		defer func() { _ = store.Close() }()
	}

	u := &updater.Updater{Store: store, Rules: rul}
	updated, err := u.UpdateDirectory(ctx, updater.UpdateOptions{
		Directory:  s.Directory,
		FieldName:  s.FieldName,
		Mode:       mode,
		TempPath:   tempPath,
		References: refs,
		DryRun:     s.DryRun,
	})
	if err != nil {
		return err
	}

	if s.DryRun {
		fmt.Printf("Would update %d config file(s) under %s\n", len(updated), s.Directory)
	} else {
		fmt.Printf("Updated %d config file(s) under %s\n", len(updated), s.Directory)
	}
	return nil
}

var _ gcmds.BareCommand = &UpdateCommand{}

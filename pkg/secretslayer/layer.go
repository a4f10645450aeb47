package secretslayer

import (
	"context"
	"fmt"

	glzcms "github.com/go-go-golems/glazed/pkg/cmds"
	glzlayers "github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"

	"github.com/weathertools/era5-config-updater/pkg/secrets"
)

const SecretsLayerSlug = "secrets"

type SecretsSettings struct {
	Backend          string `glazed.parameter:"secrets-backend"`
	VaultAddr        string `glazed.parameter:"vault-addr"`
	VaultToken       string `glazed.parameter:"vault-token"`
	VaultTokenSource string `glazed.parameter:"vault-token-source"`
	VaultTokenFile   string `glazed.parameter:"vault-token-file"`
}

// NewSecretsLayer defines a reusable parameter layer for secret store
// configuration.
func NewSecretsLayer() (glzlayers.ParameterLayer, error) {
	return glzlayers.NewParameterLayer(
		SecretsLayerSlug,
		"Secret store settings",
		glzlayers.WithParameterDefinitions(
			parameters.NewParameterDefinition(
				"secrets-backend",
				parameters.ParameterTypeChoice,
				parameters.WithHelp("Secret store backend: gcp|vault"),
				parameters.WithDefault("gcp"),
				parameters.WithChoices("gcp", "vault"),
			),
			parameters.NewParameterDefinition(
				"vault-addr",
				parameters.ParameterTypeString,
				parameters.WithHelp("Vault server address"),
				parameters.WithDefault("http://127.0.0.1:8200"),
			),
			parameters.NewParameterDefinition(
				"vault-token",
				parameters.ParameterTypeString,
				parameters.WithHelp("Vault token (optional)"),
				parameters.WithDefault(""),
			),
			parameters.NewParameterDefinition(
				"vault-token-source",
				parameters.ParameterTypeChoice,
				parameters.WithHelp("Token source: auto|env|file|lookup"),
				parameters.WithDefault("auto"),
				parameters.WithChoices("auto", "env", "file", "lookup"),
			),
			parameters.NewParameterDefinition(
				"vault-token-file",
				parameters.ParameterTypeString,
				parameters.WithHelp("Path to token file (default ~/.vault-token)"),
				parameters.WithDefault(""),
			),
		),
	)
}

// AddSecretsLayerToCommand attaches the layer to a Glazed command description.
func AddSecretsLayerToCommand(c glzcms.Command) (glzcms.Command, error) {
	l, err := NewSecretsLayer()
	if err != nil {
		return nil, err
	}
	c.Description().Layers.Set(SecretsLayerSlug, l)
	return c, nil
}

// GetSecretsSettings returns parsed secret store settings from the
// ParsedLayers.
func GetSecretsSettings(parsed *glzlayers.ParsedLayers) (*SecretsSettings, error) {
	var s SecretsSettings
	if err := parsed.InitializeStruct(SecretsLayerSlug, &s); err != nil {
		return nil, fmt.Errorf("failed to parse secret store settings: %w", err)
	}
	return &s, nil
}

// Open builds the secret store the settings select. Vault token resolution
// follows the configured source chain before the client is constructed.
func Open(ctx context.Context, s *SecretsSettings) (secrets.Store, error) {
	switch s.Backend {
	case "gcp":
		return secrets.NewGCPStore(ctx)
	case "vault":
		token, err := secrets.ResolveVaultToken(ctx, s.VaultToken, secrets.TokenSource(s.VaultTokenSource), s.VaultTokenFile)
		if err != nil {
			return nil, err
		}
		return secrets.NewVaultStore(s.VaultAddr, token)
	default:
		return nil, fmt.Errorf("unknown secrets backend %q (allowed: gcp, vault)", s.Backend)
	}
}

package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// TokenSource selects where the Vault token comes from.
type TokenSource string

const (
	TokenSourceAuto   TokenSource = "auto"
	TokenSourceEnv    TokenSource = "env"
	TokenSourceFile   TokenSource = "file"
	TokenSourceLookup TokenSource = "lookup"
)

// ResolveVaultToken resolves a Vault token using the requested strategy.
// An explicit token wins for env and auto. Auto tries env, then the token
// file, then a `vault token lookup` subprocess.
func ResolveVaultToken(ctx context.Context, explicit string, source TokenSource, tokenFile string) (string, error) {
	if source == "" {
		source = TokenSourceAuto
	}

	switch source {
	case TokenSourceEnv:
		if explicit != "" {
			return explicit, nil
		}
		if t := os.Getenv("VAULT_TOKEN"); t != "" {
			return t, nil
		}
		return "", fmt.Errorf("no token found in environment")

	case TokenSourceFile:
		return tokenFromFile(tokenFile)

	case TokenSourceLookup:
		return tokenFromLookup(ctx)

	case TokenSourceAuto:
		if explicit != "" {
			return explicit, nil
		}
		if t := os.Getenv("VAULT_TOKEN"); t != "" {
			return t, nil
		}
		if t, err := tokenFromFile(tokenFile); err == nil && t != "" {
			return t, nil
		}
		if t, err := tokenFromLookup(ctx); err == nil && t != "" {
			return t, nil
		}
		return "", fmt.Errorf("unable to resolve Vault token (tried env, file, lookup)")
	}

	return "", fmt.Errorf("unknown token source: %s", source)
}

func tokenFromFile(path string) (string, error) {
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".vault-token")
		}
	} else if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// tokenFromLookup runs `vault token lookup -format=json` and extracts .data.id.
func tokenFromLookup(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "vault", "token", "lookup", "-format=json")
	cmd.Env = os.Environ()
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to execute 'vault token lookup': %w", err)
	}

	var payload struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return "", fmt.Errorf("failed to parse lookup output: %w", err)
	}
	if id, ok := payload.Data["id"].(string); ok && id != "" {
		return id, nil
	}
	return "", fmt.Errorf("could not extract token id from lookup output")
}

package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/vault/api"
)

// VaultStore resolves references as Vault KV paths. The secret at the path
// must carry api_url and api_key string keys.
type VaultStore struct {
	client *api.Client
}

// NewVaultStore creates a store for the given address and token and verifies
// the server is reachable.
func NewVaultStore(address, token string) (*VaultStore, error) {
	config := api.DefaultConfig()
	if address != "" {
		config.Address = address
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)

	if _, err := client.Sys().Health(); err != nil {
		return nil, fmt.Errorf("failed to connect to Vault at %s: %w", address, err)
	}

	return &VaultStore{client: client}, nil
}

func (s *VaultStore) Resolve(ctx context.Context, reference string) (Credential, error) {
	data, err := s.read(ctx, reference)
	if err != nil {
		return Credential{}, &ResolutionError{Reference: reference, Err: err}
	}

	cred := Credential{
		APIURL: stringField(data, "api_url"),
		APIKey: stringField(data, "api_key"),
	}
	if err := cred.validate(); err != nil {
		return Credential{}, &ResolutionError{Reference: reference, Err: err}
	}
	return cred, nil
}

func (s *VaultStore) Close() error { return nil }

// read tries the KV v2 data/ form first (the common default) and falls back
// to a direct KV v1 read.
func (s *VaultStore) read(ctx context.Context, path string) (map[string]interface{}, error) {
	mount, rest := splitMount(path)
	if data, err := s.readKVv2(ctx, mount, rest); err == nil {
		return data, nil
	}
	return s.readKVv1(ctx, path)
}

func (s *VaultStore) readKVv1(ctx context.Context, path string) (map[string]interface{}, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from path %s: %w", path, err)
	}
	if secret == nil {
		return nil, fmt.Errorf("no secret found at path %s", path)
	}
	return secret.Data, nil
}

func (s *VaultStore) readKVv2(ctx context.Context, mount, path string) (map[string]interface{}, error) {
	fullPath := fmt.Sprintf("%s/data/%s", mount, path)

	secret, err := s.client.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from KV v2 path %s: %w", fullPath, err)
	}
	if secret == nil {
		return nil, fmt.Errorf("no secret found at KV v2 path %s", fullPath)
	}

	// KV v2 wraps the actual data in a "data" field
	if data, ok := secret.Data["data"].(map[string]interface{}); ok {
		return data, nil
	}
	return nil, fmt.Errorf("invalid KV v2 secret format at path %s", fullPath)
}

func splitMount(path string) (string, string) {
	parts := strings.SplitN(path, "/", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

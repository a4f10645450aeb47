package secrets

import (
	"context"
	"encoding/json"
	"fmt"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// GCPStore resolves references as Secret Manager version names, e.g.
// projects/<project>/secrets/<name>/versions/latest. Credentials come from
// the ambient application-default credentials.
type GCPStore struct {
	client *secretmanager.Client
}

func NewGCPStore(ctx context.Context) (*GCPStore, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}
	return &GCPStore{client: client}, nil
}

func (s *GCPStore) Resolve(ctx context.Context, reference string) (Credential, error) {
	resp, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: reference,
	})
	if err != nil {
		return Credential{}, &ResolutionError{Reference: reference, Err: err}
	}

	var cred Credential
	if err := json.Unmarshal(resp.GetPayload().GetData(), &cred); err != nil {
		return Credential{}, &ResolutionError{Reference: reference, Err: fmt.Errorf("secret payload is not api_url/api_key JSON: %w", err)}
	}
	if err := cred.validate(); err != nil {
		return Credential{}, &ResolutionError{Reference: reference, Err: err}
	}
	return cred, nil
}

func (s *GCPStore) Close() error { return s.client.Close() }

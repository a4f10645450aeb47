// Package secrets resolves opaque license references into the api_url/api_key
// pairs injected into ingestion configs.
package secrets

import (
	"context"
	"errors"
	"fmt"
)

// Credential is the payload a license secret resolves to.
type Credential struct {
	APIURL string `json:"api_url"`
	APIKey string `json:"api_key"`
}

// Store resolves opaque license references. Implementations map the reference
// onto their own addressing scheme (Secret Manager version name, Vault path).
type Store interface {
	Resolve(ctx context.Context, reference string) (Credential, error)
	Close() error
}

// ResolutionError reports a failed license lookup. Unknown references,
// permission problems and transient store outages all surface as one of
// these; callers treat them identically and abort the run.
type ResolutionError struct {
	Reference string
	Err       error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("failed to resolve license secret %q: %v", e.Reference, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

var errMissingPayloadFields = errors.New("secret payload missing api_url or api_key")

func (c Credential) validate() error {
	if c.APIURL == "" || c.APIKey == "" {
		return errMissingPayloadFields
	}
	return nil
}

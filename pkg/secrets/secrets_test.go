package secrets

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolutionError_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := &ResolutionError{Reference: "projects/p/secrets/s/versions/1", Err: cause}

	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "projects/p/secrets/s/versions/1")
	require.Contains(t, err.Error(), "connection refused")
}

func TestResolutionError_SurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("collecting licenses: %w", &ResolutionError{Reference: "ref", Err: errors.New("denied")})

	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
	require.Equal(t, "ref", rerr.Reference)
}

func TestCredentialValidate(t *testing.T) {
	require.NoError(t, Credential{APIURL: "https://cds.example/api/v2", APIKey: "123:abc"}.validate())
	require.ErrorIs(t, Credential{APIURL: "https://cds.example/api/v2"}.validate(), errMissingPayloadFields)
	require.ErrorIs(t, Credential{APIKey: "123:abc"}.validate(), errMissingPayloadFields)
}

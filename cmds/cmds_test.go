package cmds

import (
	"testing"

	"github.com/go-go-golems/glazed/pkg/cli"
	gcmds "github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/stretchr/testify/require"
)

func TestCommandConstruction(t *testing.T) {
	uc, err := NewUpdateCommand()
	require.NoError(t, err)
	require.Equal(t, "update", uc.Description().Name)

	sc, err := NewStripCommand()
	require.NoError(t, err)
	require.Equal(t, "strip-licenses", sc.Description().Name)

	wc, err := NewWindowCommand()
	require.NoError(t, err)
	require.Equal(t, "window", wc.Description().Name)

	lc, err := NewLicensesCommand()
	require.NoError(t, err)
	require.Equal(t, "licenses", lc.Description().Name)
}

func TestCommandsBuildIntoCobra(t *testing.T) {
	for _, build := range []func() (gcmds.Command, error){
		func() (gcmds.Command, error) { return NewUpdateCommand() },
		func() (gcmds.Command, error) { return NewStripCommand() },
		func() (gcmds.Command, error) { return NewWindowCommand() },
		func() (gcmds.Command, error) { return NewLicensesCommand() },
	} {
		c, err := build()
		require.NoError(t, err)

		cobraCmd, err := cli.BuildCobraCommand(c)
		require.NoError(t, err)
		require.NotEmpty(t, cobraCmd.Use)
	}
}

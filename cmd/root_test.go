package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"serve", "plan", "get", "migrate", "seed"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "muniops", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestPlanCommand_Flags(t *testing.T) {
	require.NotNil(t, planCmd.Flags().Lookup("refresh"))
	out := planCmd.Flags().Lookup("output")
	require.NotNil(t, out)
	assert.Equal(t, "yaml", out.DefValue)
	assert.Equal(t, "o", out.Shorthand)
}

func TestGetCommand_Flags(t *testing.T) {
	for _, name := range []string{"limit", "force-real", "where", "order"} {
		assert.NotNil(t, getCmd.Flags().Lookup(name), "get command should have --%s flag", name)
	}
}

func TestSeedCommand_Flags(t *testing.T) {
	flag := seedCmd.Flags().Lookup("plan")
	require.NotNil(t, flag)
	assert.Equal(t, "starter", flag.DefValue)
	assert.NotNil(t, seedCmd.Flags().Lookup("org"))
	assert.NotNil(t, seedCmd.Flags().Lookup("member"))
}

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCheckCmd_DemoModuleIsWellFormed(t *testing.T) {
	out, err := runCmd(t, "check")
	require.NoError(t, err)
	require.Contains(t, out, "well-formed")
}

func TestBuildCmd_EmitsAArch64Assembly(t *testing.T) {
	out, err := runCmd(t, "build")
	require.NoError(t, err)
	require.Contains(t, out, "pick_min")
	require.Contains(t, out, "ret")
}

func TestVersionCmd_PrintsVersion(t *testing.T) {
	out, err := runCmd(t, "version")
	require.NoError(t, err)
	require.True(t, strings.TrimSpace(out) != "")
}

func TestConfig_RejectsUnsupportedReservedTempWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReservedTempWindow = 16
	require.Error(t, cfg.Validate())
}

func TestConfig_RejectsNonPowerOfTwoAlignment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FrameAlignment = 12
	require.Error(t, cfg.Validate())
}

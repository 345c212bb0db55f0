package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "keyframe", cmd.Use)

	for _, name := range []string{"run", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	script := runCmd.Flags().Lookup("script")
	require.NotNil(t, script)
	assert.Equal(t, "s", script.Shorthand)

	initFlag := runCmd.Flags().Lookup("init")
	require.NotNil(t, initFlag)
	assert.Equal(t, "{}", initFlag.DefValue)

	for _, name := range []string{"events", "config", "watch", "screen", "trace", "metrics"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), name)
	}
}

func TestVersionCommand(t *testing.T) {
	Version, Commit, Date = "1.2.3", "abc123", "2026-01-02"
	t.Cleanup(func() { Version, Commit, Date = "dev", "unknown", "unknown" })

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "keyframe 1.2.3 (commit: abc123, built: 2026-01-02)\n", buf.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))

	cause := errors.New("cause")
	wrapped := WrapExitError(ExitFailure, "run failed", cause)
	assert.Equal(t, "run failed: cause", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

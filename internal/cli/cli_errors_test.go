package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParserOwnedErrorCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		args        []string
		errContains string
	}{
		{
			name:        "unknown command",
			args:        []string{"badcmd"},
			errContains: "unknown command",
		},
		{
			name:        "unknown root flag",
			args:        []string{"--badflag"},
			errContains: "unknown flag",
		},
		{
			name:        "missing audio_path",
			args:        []string{},
			errContains: "required flag(s) \"audio_path\" not set",
		},
		{
			name:        "model outside the fixed set",
			args:        []string{"--audio_path", "/tmp/a.wav", "--model", "huge"},
			errContains: "must be one of: base, large, medium, small, tiny",
		},
		{
			name:        "unknown subcommand flag",
			args:        []string{"setup", "--bogus"},
			errContains: "unknown flag",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stdout, _, err := runCommand(t, nil, tt.args)
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrAlreadyReported)
			require.Contains(t, err.Error(), tt.errContains)
			require.Empty(t, stdout, "parse failures must not emit a JSON result")
		})
	}
}

func TestVersionFlagOutput(t *testing.T) {
	t.Parallel()

	stdout, _, err := runCommand(t, nil, []string{"--version"})
	require.NoError(t, err)
	require.Contains(t, stdout, "voxscribe v")
}

package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModelsCommandListsAvailability(t *testing.T) {
	t.Parallel()

	modelDir := installModel(t, "ggml-base.bin")

	stdout, _, err := runCommand(t, nil, []string{"models", "--model-dir", modelDir})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 5, "one line per registry model")

	var sawDownloaded, sawMissing bool
	for _, line := range lines {
		if strings.HasPrefix(line, "base") {
			require.Contains(t, line, "downloaded")
			sawDownloaded = true
		}
		if strings.HasPrefix(line, "tiny") {
			require.Contains(t, line, "missing")
			sawMissing = true
		}
	}
	require.True(t, sawDownloaded)
	require.True(t, sawMissing)
}

package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveWithoutCommit(t *testing.T) {
	t.Cleanup(func() { Version = "0.1.0"; Commit = "" })

	Version = "1.2.3"
	Commit = ""
	require.Equal(t, "1.2.3", Resolve())
}

func TestResolveWithCommit(t *testing.T) {
	t.Cleanup(func() { Version = "0.1.0"; Commit = "" })

	Version = "1.2.3"
	Commit = "0123456789abcdef"
	require.Equal(t, "1.2.3+0123456789ab", Resolve())
}

func TestResolveEmptyVersionFallsBack(t *testing.T) {
	t.Cleanup(func() { Version = "0.1.0"; Commit = "" })

	Version = ""
	Commit = ""
	require.Equal(t, "0.0.0", Resolve())
}

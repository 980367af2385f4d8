package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModelFlagAcceptsRegistryNames(t *testing.T) {
	t.Parallel()

	var flag modelFlag
	for _, name := range []string{"tiny", "base", "small", "medium", "large"} {
		require.NoError(t, flag.Set(name))
		require.Equal(t, name, flag.String())
	}
}

func TestModelFlagNormalizesCase(t *testing.T) {
	t.Parallel()

	var flag modelFlag
	require.NoError(t, flag.Set("  Medium "))
	require.Equal(t, "medium", flag.String())
}

func TestModelFlagRejectsUnknownValues(t *testing.T) {
	t.Parallel()

	var flag modelFlag
	err := flag.Set("turbo")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must be one of")
}

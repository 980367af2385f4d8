package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/voxscribe/voxscribe/internal/whisper"
)

// modelFlag restricts --model to the registry names at parse time, so an
// invalid selector never reaches the run logic.
type modelFlag struct {
	value string
}

var _ pflag.Value = (*modelFlag)(nil)

func (m *modelFlag) String() string { return m.value }

func (m *modelFlag) Set(input string) error {
	model, ok := whisper.LookupModel(input)
	if !ok {
		return fmt.Errorf("must be one of: %s", strings.Join(whisper.ModelNames(), ", "))
	}
	m.value = model.Name
	return nil
}

func (m *modelFlag) Type() string { return "model" }

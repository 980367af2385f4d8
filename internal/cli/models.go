package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxscribe/voxscribe/internal/whisper"
)

func newModelsCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List known models and their local availability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			modelDir, err := app.modelStorageDir()
			if err != nil {
				return err
			}

			for _, name := range whisper.ModelNames() {
				resolved, err := whisper.ResolveModel(name, modelDir)
				if err != nil {
					return err
				}

				status := "downloaded"
				if resolved.NeedsDownload {
					status = "missing"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-11s %s\n", name, status, resolved.Path)
			}
			return nil
		},
	}

	bindLoggingFlags(cmd, app)
	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory where models are stored")

	return cmd
}

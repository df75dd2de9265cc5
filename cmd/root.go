// Package cmd assembles the CLI commands of the speech analysis service.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dtrovato997/speech-analysis-go/cmd/file"
	"github.com/dtrovato997/speech-analysis-go/cmd/serve"
	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/logging"
)

// RootCommand creates and returns the root command.
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "speech-analysis",
		Short: "Speech Analysis CLI",
		Long:  "HTTP service and CLI predicting speaker age, gender, spoken language, and emotion from audio clips.",
	}

	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", false, "Enable debug output")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if settings.Debug {
			logging.Init(slog.LevelDebug)
		}
	}

	rootCmd.AddCommand(
		serve.Command(settings),
		file.Command(settings),
	)

	return rootCmd
}

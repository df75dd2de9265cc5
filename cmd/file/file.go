// Package file implements offline analysis of a single audio file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dtrovato997/speech-analysis-go/internal/analysis"
	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/errors"
	"github.com/dtrovato997/speech-analysis-go/internal/inference"
)

// Command creates the file command, which analyzes one local audio file
// and prints the predictions as JSON.
func Command(settings *conf.Settings) *cobra.Command {
	var familyFlag string

	cmd := &cobra.Command{
		Use:   "file [input audio]",
		Short: "Analyze an audio file",
		Long:  "Analyze a single audio file and print age, gender, language, and emotion predictions.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings, args[0], familyFlag)
		},
	}

	cmd.Flags().StringVarP(&familyFlag, "model", "m", "", "Run a single model family: age_gender, nationality, or emotion")

	return cmd
}

func run(settings *conf.Settings, inputPath, familyFlag string) error {
	ctx := context.Background()

	fetcher := inference.NewHTTPFetcher(settings.Models.CachePath)
	registry := inference.NewRegistryFromConfig(settings, fetcher)
	orchestrator := analysis.New(settings, registry)

	if failures := registry.LoadAll(ctx); len(failures) > 0 {
		for family, err := range failures {
			return errors.Wrap(err).
				Category(errors.CategoryModelLoad).
				Context("family", string(family)).
				Build()
		}
	}

	f, err := os.Open(inputPath)
	if err != nil {
		return errors.Wrap(err).
			Category(errors.CategoryFileIO).
			Context("input_path", inputPath).
			Build()
	}
	defer f.Close()

	filename := filepath.Base(inputPath)

	var result any
	if familyFlag != "" {
		result, err = orchestrator.Analyze(ctx, inference.Family(familyFlag), filename, f)
	} else {
		result, err = orchestrator.AnalyzeAll(ctx, filename, f)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

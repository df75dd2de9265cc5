// Package serve implements the HTTP server command.
package serve

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dtrovato997/speech-analysis-go/internal/analysis"
	"github.com/dtrovato997/speech-analysis-go/internal/api"
	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/inference"
	"github.com/dtrovato997/speech-analysis-go/internal/logging"
	"github.com/dtrovato997/speech-analysis-go/internal/observability"
	"github.com/dtrovato997/speech-analysis-go/internal/telemetry"
)

// Command creates the serve command, which runs the prediction API server.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the speech analysis HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(settings)
		},
	}

	cmd.Flags().StringVarP(&settings.WebServer.Port, "port", "p", settings.WebServer.Port, "Port to listen on")
	cmd.Flags().StringVar(&settings.WebServer.Host, "host", settings.WebServer.Host, "Host interface to bind")

	return cmd
}

func run(settings *conf.Settings) error {
	log := logging.ForService("serve")

	if err := conf.ValidateSettings(settings); err != nil {
		return err
	}

	if err := telemetry.Init(settings); err != nil {
		return err
	}
	defer telemetry.Flush()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	fetcher := inference.NewHTTPFetcher(settings.Models.CachePath)
	registry := inference.NewRegistryFromConfig(settings, fetcher)
	registry.SetMetrics(metrics.Inference)

	orchestrator := analysis.New(settings, registry)
	orchestrator.SetMetrics(metrics.Inference)

	// Models load in the background so the API can report readiness while
	// the artifacts download. Requests against an unloaded family fail
	// fast with a service unavailable response.
	loadCtx, cancelLoad := context.WithCancel(context.Background())
	defer cancelLoad()
	go func() {
		failures := registry.LoadAll(loadCtx)
		if len(failures) == 0 {
			log.Info("all models loaded")
			return
		}
		for family, err := range failures {
			log.Error("model unavailable", "family", string(family), "error", err.Error())
		}
	}()

	server := api.NewServer(settings, orchestrator, registry, api.WithServerMetrics(metrics))

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		log.Info("shutting down", "signal", sig.String())
		cancelLoad()
		if err := server.Shutdown(); err != nil {
			return err
		}
		return <-errChan
	}
}

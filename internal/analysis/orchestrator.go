// Package analysis turns one uploaded clip into model predictions. It owns
// the request pipeline: ingest, normalize, readiness checks, and the
// per-family prediction calls.
package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/dtrovato997/speech-analysis-go/internal/audio"
	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/errors"
	"github.com/dtrovato997/speech-analysis-go/internal/inference"
	"github.com/dtrovato997/speech-analysis-go/internal/logging"
	"github.com/dtrovato997/speech-analysis-go/internal/observability/metrics"
)

// Orchestrator runs predictions against the model registry. It is safe for
// concurrent use.
type Orchestrator struct {
	settings *conf.Settings
	registry *inference.Registry
	metrics  *metrics.InferenceMetrics
	log      *slog.Logger
}

func New(settings *conf.Settings, registry *inference.Registry) *Orchestrator {
	return &Orchestrator{
		settings: settings,
		registry: registry,
		log:      logging.ForService("analysis"),
	}
}

// SetMetrics attaches inference metrics. Predictions are recorded per
// family once set.
func (o *Orchestrator) SetMetrics(m *metrics.InferenceMetrics) {
	o.metrics = m
}

// Analyze runs one family's model over an uploaded clip.
func (o *Orchestrator) Analyze(ctx context.Context, family inference.Family, filename string, upload io.Reader) (*Result, error) {
	start := time.Now()

	adapter, err := o.readyAdapter(family)
	if err != nil {
		return nil, err
	}

	clip, err := o.prepare(filename, upload)
	if err != nil {
		return nil, err
	}

	payload, err := o.predict(ctx, adapter, clip)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Success:        true,
		Predictions:    payload,
		ProcessingTime: roundSeconds(time.Since(start)),
		AudioInfo:      o.audioInfo(clip),
	}
	if clip.WasClipped {
		result.Warning = o.clippedWarning()
	}

	o.log.Info("analysis completed",
		"family", string(family),
		"filename", filename,
		"clip_seconds", clip.Duration(),
		"was_clipped", clip.WasClipped,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// AnalyzeAll runs every registered family over one clip. The clip is
// ingested and normalized once, predictions run sequentially and their
// individual wall clocks are reported.
func (o *Orchestrator) AnalyzeAll(ctx context.Context, filename string, upload io.Reader) (*CombinedResult, error) {
	start := time.Now()

	// Fail before touching the upload if any family cannot serve.
	adapters := make(map[inference.Family]inference.Adapter, 3)
	for _, family := range []inference.Family{inference.FamilyAgeGender, inference.FamilyNationality, inference.FamilyEmotion} {
		adapter, err := o.readyAdapter(family)
		if err != nil {
			return nil, err
		}
		adapters[family] = adapter
	}

	clip, err := o.prepare(filename, upload)
	if err != nil {
		return nil, err
	}

	var timing CombinedTiming
	var predictions CombinedPredictions

	predictions.Demographics, timing.AgeGender, err = o.timedPredict(ctx, adapters[inference.FamilyAgeGender], clip)
	if err != nil {
		return nil, err
	}
	predictions.Nationality, timing.Nationality, err = o.timedPredict(ctx, adapters[inference.FamilyNationality], clip)
	if err != nil {
		return nil, err
	}
	predictions.Emotion, timing.Emotion, err = o.timedPredict(ctx, adapters[inference.FamilyEmotion], clip)
	if err != nil {
		return nil, err
	}
	timing.Total = roundSeconds(time.Since(start))

	result := &CombinedResult{
		Success:        true,
		Predictions:    predictions,
		ProcessingTime: timing,
		AudioInfo:      o.audioInfo(clip),
	}
	if clip.WasClipped {
		result.Warning = o.clippedWarning()
	}

	o.log.Info("combined analysis completed",
		"filename", filename,
		"clip_seconds", clip.Duration(),
		"was_clipped", clip.WasClipped,
		"duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// prepare decodes and normalizes one upload into the canonical model input.
func (o *Orchestrator) prepare(filename string, upload io.Reader) (*audio.NormalizedClip, error) {
	signal, err := audio.Ingest(o.settings, filename, upload)
	if err != nil {
		return nil, err
	}
	return audio.Normalize(signal, o.maxDuration())
}

func (o *Orchestrator) readyAdapter(family inference.Family) (inference.Adapter, error) {
	adapter, err := o.registry.Get(family)
	if err != nil {
		return nil, err
	}
	if adapter.Status() != inference.StatusReady {
		return nil, errors.Newf("%s model not loaded: %w", family, errors.ErrModelNotLoaded).
			Category(errors.CategoryModelNotLoaded).
			Context("family", string(family)).
			Build()
	}
	return adapter, nil
}

func (o *Orchestrator) predict(ctx context.Context, adapter inference.Adapter, clip *audio.NormalizedClip) (any, error) {
	payload, _, err := o.timedPredict(ctx, adapter, clip)
	return payload, err
}

func (o *Orchestrator) timedPredict(ctx context.Context, adapter inference.Adapter, clip *audio.NormalizedClip) (any, float64, error) {
	start := time.Now()
	payload, err := adapter.Predict(ctx, &inference.Clip{
		Samples:    clip.Samples,
		SampleRate: clip.SampleRate,
	})
	elapsed := time.Since(start)
	if o.metrics != nil {
		o.metrics.RecordPrediction(string(adapter.Family()), elapsed.Seconds(), err)
	}
	if err != nil {
		return nil, 0, err
	}
	return payload, roundSeconds(elapsed), nil
}

func (o *Orchestrator) audioInfo(clip *audio.NormalizedClip) AudioInfo {
	return AudioInfo{
		WasClipped:         clip.WasClipped,
		MaxDurationSeconds: o.maxDuration(),
	}
}

func (o *Orchestrator) clippedWarning() string {
	limit := o.maxDuration()
	return fmt.Sprintf("Audio was longer than %d seconds and was automatically clipped to the first %d seconds for analysis.", limit, limit)
}

func (o *Orchestrator) maxDuration() int {
	if o.settings.Audio.MaxClipDurationSeconds > 0 {
		return o.settings.Audio.MaxClipDurationSeconds
	}
	return conf.DefaultMaxClipDurationSeconds
}

// roundSeconds reports a duration in seconds at millisecond resolution.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

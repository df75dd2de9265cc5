package inference

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/errors"
	"github.com/dtrovato997/speech-analysis-go/internal/logging"
)

var genderLabels = []string{"female", "male", "child"}

// AgeGenderModel predicts speaker age and gender from one clip. The model
// has two heads: a scalar age regression in [0, 1] and three gender logits.
type AgeGenderModel struct {
	cfg     conf.ModelConfig
	threads int
	xnnpack bool
	fetcher Fetcher

	mu     sync.RWMutex
	status Status
	eng    *engine
}

func NewAgeGenderModel(settings *conf.Settings, fetcher Fetcher) *AgeGenderModel {
	return &AgeGenderModel{
		cfg:     settings.Models.AgeGender,
		threads: settings.Models.Threads,
		xnnpack: settings.Models.UseXNNPACK,
		fetcher: fetcher,
	}
}

func (m *AgeGenderModel) Family() Family { return FamilyAgeGender }

func (m *AgeGenderModel) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *AgeGenderModel) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusReady {
		return nil
	}

	start := time.Now()
	modelPath, err := resolveModelPath(ctx, m.fetcher, FamilyAgeGender, &m.cfg)
	if err != nil {
		return err
	}

	eng, err := newEngine(modelPath, m.threads, m.xnnpack)
	if err != nil {
		return err
	}

	m.eng = eng
	m.status = StatusReady
	logging.ForService("inference").Info("model loaded",
		"family", string(FamilyAgeGender),
		"model_path", modelPath,
		"window_samples", eng.windowSize(),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (m *AgeGenderModel) Predict(ctx context.Context, clip *Clip) (any, error) {
	m.mu.RLock()
	eng, status := m.eng, m.status
	m.mu.RUnlock()
	if status != StatusReady {
		return nil, notLoadedError(FamilyAgeGender)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outputs, err := eng.invoke(clip.Samples)
	if err != nil {
		return nil, predictionError(FamilyAgeGender, err)
	}

	result, err := decodeAgeGender(outputs)
	if err != nil {
		return nil, predictionError(FamilyAgeGender, err)
	}
	return result, nil
}

// decodeAgeGender maps the model's raw heads onto the result payload. The
// heads are distinguished by size: the age head is a single scalar in
// [0, 1], the gender head carries one logit per label.
func decodeAgeGender(outputs [][]float32) (*AgeGenderResult, error) {
	var ageScore float64
	var genderLogits []float32
	for _, out := range outputs {
		switch len(out) {
		case 1:
			ageScore = float64(out[0])
		case len(genderLabels):
			genderLogits = out
		}
	}
	if genderLogits == nil {
		return nil, errors.Newf("model produced no %d-class gender head", len(genderLabels)).Build()
	}

	probs := softmax(genderLogits)
	best := argmax(probs)

	probabilities := make(map[string]float64, len(genderLabels))
	for i, label := range genderLabels {
		probabilities[label] = probs[i]
	}

	return &AgeGenderResult{
		Age: AgeResult{PredictedAge: ageScore * 100},
		Gender: GenderResult{
			PredictedGender: genderLabels[best],
			Probabilities:   probabilities,
			Confidence:      probs[best],
		},
	}, nil
}

// resolveModelPath prefers an explicitly configured model file and falls
// back to fetching the family's artifact archive.
func resolveModelPath(ctx context.Context, fetcher Fetcher, family Family, cfg *conf.ModelConfig) (string, error) {
	if cfg.ModelPath != "" {
		return cfg.ModelPath, nil
	}
	dir, err := fetcher.EnsureArtifacts(ctx, family, cfg.ArtifactURL)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ModelFileName), nil
}

func notLoadedError(family Family) error {
	return errors.New(errors.ErrModelNotLoaded).
		Category(errors.CategoryModelNotLoaded).
		Context("family", string(family)).
		Build()
}

func predictionError(family Family, err error) error {
	return errors.Wrap(errors.Join(errors.ErrPrediction, err)).
		Category(errors.CategoryPrediction).
		Context("family", string(family)).
		Build()
}

package inference

import (
	"context"
	"sync"
	"time"

	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/errors"
	"github.com/dtrovato997/speech-analysis-go/internal/logging"
)

// emotionLabels follows the model's output index order.
var emotionLabels = []string{"angry", "calm", "disgust", "fearful", "happy", "neutral", "sad", "surprised"}

// EmotionModel classifies the dominant emotion in a clip and reports the
// full distribution over all emotion classes.
type EmotionModel struct {
	cfg     conf.ModelConfig
	threads int
	xnnpack bool
	fetcher Fetcher

	mu     sync.RWMutex
	status Status
	eng    *engine
}

func NewEmotionModel(settings *conf.Settings, fetcher Fetcher) *EmotionModel {
	return &EmotionModel{
		cfg:     settings.Models.Emotion,
		threads: settings.Models.Threads,
		xnnpack: settings.Models.UseXNNPACK,
		fetcher: fetcher,
	}
}

func (m *EmotionModel) Family() Family { return FamilyEmotion }

func (m *EmotionModel) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *EmotionModel) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusReady {
		return nil
	}

	start := time.Now()
	modelPath, err := resolveModelPath(ctx, m.fetcher, FamilyEmotion, &m.cfg)
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
		"family", string(FamilyEmotion),
		"model_path", modelPath,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (m *EmotionModel) Predict(ctx context.Context, clip *Clip) (any, error) {
	m.mu.RLock()
	eng, status := m.eng, m.status
	m.mu.RUnlock()
	if status != StatusReady {
		return nil, notLoadedError(FamilyEmotion)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outputs, err := eng.invoke(clip.Samples)
	if err != nil {
		return nil, predictionError(FamilyEmotion, err)
	}
	if len(outputs) == 0 {
		return nil, predictionError(FamilyEmotion,
			errors.Newf("model produced no output tensors").Build())
	}

	logits := outputs[0]
	if len(logits) != len(emotionLabels) {
		return nil, predictionError(FamilyEmotion,
			errors.Newf("model produced %d classes, expected %d", len(logits), len(emotionLabels)).Build())
	}

	return decodeEmotion(logits), nil
}

// decodeEmotion maps raw logits onto the emotion payload: argmax as the
// prediction plus the full distribution.
func decodeEmotion(logits []float32) *EmotionResult {
	probs := softmax(logits)
	best := argmax(probs)

	all := make(map[string]float64, len(emotionLabels))
	for i, label := range emotionLabels {
		all[label] = probs[i]
	}

	return &EmotionResult{
		PredictedEmotion: emotionLabels[best],
		Confidence:       probs[best],
		AllEmotions:      all,
	}
}

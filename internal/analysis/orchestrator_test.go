package analysis

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/errors"
	"github.com/dtrovato997/speech-analysis-go/internal/inference"
)

type stubAdapter struct {
	family  inference.Family
	status  inference.Status
	payload any
	err     error
	calls   int
}

func (s *stubAdapter) Family() inference.Family   { return s.family }
func (s *stubAdapter) Status() inference.Status   { return s.status }
func (s *stubAdapter) Load(context.Context) error { return nil }

func (s *stubAdapter) Predict(ctx context.Context, clip *inference.Clip) (any, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func readyAdapter(family inference.Family, payload any) *stubAdapter {
	return &stubAdapter{family: family, status: inference.StatusReady, payload: payload}
}

func wavUpload(t *testing.T, seconds float64) []byte {
	t.Helper()
	return wavUploadWith(t, conf.SampleRate, 1, seconds)
}

func wavUploadWith(t *testing.T, sampleRate, channels int, seconds float64) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	frames := int(float64(sampleRate) * seconds)
	data := make([]int, frames*channels)
	for i := 0; i < frames; i++ {
		v := int(math.Sin(2*math.Pi*200*float64(i)/float64(sampleRate)) * 12000)
		for ch := 0; ch < channels; ch++ {
			data[i*channels+ch] = v
		}
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return content
}

func newTestOrchestrator(t *testing.T, adapters ...inference.Adapter) *Orchestrator {
	t.Helper()
	settings := &conf.Settings{}
	settings.Audio.UploadPath = t.TempDir()
	settings.Audio.MaxClipDurationSeconds = 2
	return New(settings, inference.NewRegistry(adapters...))
}

func TestAnalyzeSingleFamily(t *testing.T) {
	payload := &inference.EmotionResult{PredictedEmotion: "happy", Confidence: 0.9}
	adapter := readyAdapter(inference.FamilyEmotion, payload)
	o := newTestOrchestrator(t, adapter)

	result, err := o.Analyze(context.Background(), inference.FamilyEmotion, "clip.wav", bytes.NewReader(wavUpload(t, 1.0)))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Same(t, any(payload), result.Predictions)
	assert.False(t, result.AudioInfo.WasClipped)
	assert.Equal(t, 2, result.AudioInfo.MaxDurationSeconds)
	assert.Empty(t, result.Warning)
	assert.Equal(t, 1, adapter.calls)
}

func TestAnalyzeUnloadedModelFailsBeforeDecoding(t *testing.T) {
	adapter := &stubAdapter{family: inference.FamilyEmotion, status: inference.StatusUnloaded}
	o := newTestOrchestrator(t, adapter)

	_, err := o.Analyze(context.Background(), inference.FamilyEmotion, "clip.wav", bytes.NewReader(wavUpload(t, 0.5)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrModelNotLoaded))
	assert.Zero(t, adapter.calls)
}

func TestAnalyzeUnknownFamily(t *testing.T) {
	o := newTestOrchestrator(t)

	_, err := o.Analyze(context.Background(), inference.FamilyAgeGender, "clip.wav", bytes.NewReader(wavUpload(t, 0.5)))
	assert.Error(t, err)
}

func TestAnalyzeInvalidUpload(t *testing.T) {
	o := newTestOrchestrator(t, readyAdapter(inference.FamilyEmotion, nil))

	_, err := o.Analyze(context.Background(), inference.FamilyEmotion, "clip.ogg", bytes.NewReader([]byte("x")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidFileType))
}

func TestAnalyzeClippedAudioCarriesWarning(t *testing.T) {
	o := newTestOrchestrator(t, readyAdapter(inference.FamilyEmotion, nil))

	// 3 second clip against a 2 second limit.
	result, err := o.Analyze(context.Background(), inference.FamilyEmotion, "clip.wav", bytes.NewReader(wavUpload(t, 3.0)))
	require.NoError(t, err)

	assert.True(t, result.AudioInfo.WasClipped)
	assert.Contains(t, result.Warning, "longer than 2 seconds")
	assert.Contains(t, result.Warning, "first 2 seconds")
}

func TestAnalyzePredictionFailure(t *testing.T) {
	adapter := &stubAdapter{
		family: inference.FamilyNationality,
		status: inference.StatusReady,
		err:    fmt.Errorf("tensor invoke failed"),
	}
	o := newTestOrchestrator(t, adapter)

	_, err := o.Analyze(context.Background(), inference.FamilyNationality, "clip.wav", bytes.NewReader(wavUpload(t, 0.5)))
	assert.Error(t, err)
}

func TestAnalyzeAll(t *testing.T) {
	demo := readyAdapter(inference.FamilyAgeGender, &inference.AgeGenderResult{})
	nat := readyAdapter(inference.FamilyNationality, &inference.NationalityResult{PredictedLanguage: "ita"})
	emo := readyAdapter(inference.FamilyEmotion, &inference.EmotionResult{PredictedEmotion: "calm"})
	o := newTestOrchestrator(t, demo, nat, emo)

	result, err := o.AnalyzeAll(context.Background(), "clip.wav", bytes.NewReader(wavUpload(t, 1.0)))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Same(t, any(demo.payload), result.Predictions.Demographics)
	assert.Same(t, any(nat.payload), result.Predictions.Nationality)
	assert.Same(t, any(emo.payload), result.Predictions.Emotion)
	assert.GreaterOrEqual(t, result.ProcessingTime.Total, 0.0)
	assert.Equal(t, 1, demo.calls)
	assert.Equal(t, 1, nat.calls)
	assert.Equal(t, 1, emo.calls)
}

func TestAnalyzeAllStereoHighRateUpload(t *testing.T) {
	demo := readyAdapter(inference.FamilyAgeGender, &inference.AgeGenderResult{})
	nat := readyAdapter(inference.FamilyNationality, &inference.NationalityResult{})
	emo := readyAdapter(inference.FamilyEmotion, &inference.EmotionResult{})
	o := newTestOrchestrator(t, demo, nat, emo)

	// A short stereo 44.1 kHz clip stays under the duration bound after
	// downmix and resampling.
	result, err := o.AnalyzeAll(context.Background(), "clip.wav", bytes.NewReader(wavUploadWith(t, 44100, 2, 1.0)))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.False(t, result.AudioInfo.WasClipped)
	assert.Empty(t, result.Warning)
	assert.Equal(t, 1, demo.calls)
	assert.Equal(t, 1, nat.calls)
	assert.Equal(t, 1, emo.calls)
}

func TestAnalyzeAllFailsFastWhenOneFamilyUnloaded(t *testing.T) {
	demo := readyAdapter(inference.FamilyAgeGender, nil)
	nat := &stubAdapter{family: inference.FamilyNationality, status: inference.StatusUnloaded}
	emo := readyAdapter(inference.FamilyEmotion, nil)
	o := newTestOrchestrator(t, demo, nat, emo)

	_, err := o.AnalyzeAll(context.Background(), "clip.wav", bytes.NewReader(wavUpload(t, 0.5)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrModelNotLoaded))
	assert.Contains(t, err.Error(), "nationality")
	assert.Zero(t, demo.calls)
	assert.Zero(t, emo.calls)
}

func TestRoundSeconds(t *testing.T) {
	assert.InDelta(t, 1.234, roundSeconds(1234*1000*1000), 1e-9)
	assert.InDelta(t, 0.001, roundSeconds(1400*1000), 1e-9)
}

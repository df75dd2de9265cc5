package audio

import (
	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/errors"
)

// NormalizedClip is a mono clip at the canonical model sample rate, ready
// for inference.
type NormalizedClip struct {
	Samples    []float32
	SampleRate int
	WasClipped bool
}

// Duration returns the clip length in seconds.
func (c *NormalizedClip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// Normalize converts a decoded signal into the canonical model input:
// mono, conf.SampleRate Hz, truncated to maxDurationSeconds. Truncation
// keeps the head of the clip and reports it via WasClipped.
func Normalize(signal *DecodedSignal, maxDurationSeconds int) (*NormalizedClip, error) {
	if signal == nil || len(signal.Samples) == 0 {
		return nil, errors.Newf("empty audio signal").
			Category(errors.CategoryAudioProcess).
			Build()
	}
	if signal.Channels < 1 {
		return nil, errors.Newf("invalid channel count %d", signal.Channels).
			Category(errors.CategoryAudioProcess).
			Build()
	}

	mono := downmixMono(signal.Samples, signal.Channels)

	samples, err := ResampleAudio(mono, signal.SampleRate, conf.SampleRate)
	if err != nil {
		return nil, errors.Wrap(err).
			Category(errors.CategoryAudioProcess).
			Context("original_rate", signal.SampleRate).
			Context("target_rate", conf.SampleRate).
			Build()
	}

	wasClipped := false
	if maxDurationSeconds > 0 {
		maxSamples := maxDurationSeconds * conf.SampleRate
		if len(samples) > maxSamples {
			samples = samples[:maxSamples]
			wasClipped = true
		}
	}

	return &NormalizedClip{
		Samples:    samples,
		SampleRate: conf.SampleRate,
		WasClipped: wasClipped,
	}, nil
}

// downmixMono averages interleaved channels into a single channel with
// equal weights. Single-channel input is returned as-is.
func downmixMono(samples []float32, channels int) []float32 {
	if channels == 1 {
		return samples
	}

	frames := len(samples) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			sum += samples[base+ch]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

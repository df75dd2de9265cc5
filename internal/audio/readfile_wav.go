package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/dtrovato997/speech-analysis-go/internal/errors"
)

func readWAVInfo(file *os.File) (AudioInfo, error) {
	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()

	if !decoder.IsValidFile() {
		return AudioInfo{}, fmt.Errorf("invalid WAV file format")
	}

	if decoder.BitDepth != 16 && decoder.BitDepth != 24 && decoder.BitDepth != 32 {
		return AudioInfo{}, fmt.Errorf("unsupported bit depth: %d", decoder.BitDepth)
	}

	if decoder.NumChans < 1 {
		return AudioInfo{}, fmt.Errorf("unsupported number of channels: %d", decoder.NumChans)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		return AudioInfo{}, err
	}

	bytesPerSample := int(decoder.BitDepth / 8)
	totalSamples := int(fileInfo.Size()) / bytesPerSample / int(decoder.NumChans)

	return AudioInfo{
		SampleRate:   int(decoder.SampleRate),
		TotalSamples: totalSamples,
		NumChannels:  int(decoder.NumChans),
		BitDepth:     int(decoder.BitDepth),
	}, nil
}

// decodeWAV reads the whole WAV file into an interleaved float32 signal at
// the file's native sample rate.
func decodeWAV(file *os.File) (*DecodedSignal, error) {
	info, err := readWAVInfo(file)
	if err != nil {
		return nil, errors.Newf("reading WAV header: %w: %w", errors.ErrAudioDecode, err).
			Category(errors.CategoryAudioDecode).
			Build()
	}

	if _, err := file.Seek(0, 0); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryFileIO).
			Build()
	}

	decoder := wav.NewDecoder(file)
	decoder.ReadInfo()

	divisor, err := getAudioDivisor(info.BitDepth)
	if err != nil {
		return nil, errors.Newf("%w: %w", errors.ErrAudioDecode, err).
			Category(errors.CategoryAudioDecode).
			Build()
	}

	samples := make([]float32, 0, info.TotalSamples*info.NumChannels)

	// Read in ~1 second blocks to bound memory for the decode loop.
	buf := &goaudio.IntBuffer{
		Data:   make([]int, info.SampleRate*info.NumChannels),
		Format: &goaudio.Format{SampleRate: info.SampleRate, NumChannels: info.NumChannels},
	}

	for {
		n, err := decoder.PCMBuffer(buf)
		if err != nil {
			return nil, errors.Newf("reading WAV samples: %w: %w", errors.ErrAudioDecode, err).
				Category(errors.CategoryAudioDecode).
				Build()
		}
		if n == 0 {
			break
		}
		for _, sample := range buf.Data[:n] {
			samples = append(samples, float32(sample)/divisor)
		}
	}

	if len(samples) == 0 {
		return nil, errors.Newf("WAV file contains no samples: %w", errors.ErrAudioDecode).
			Category(errors.CategoryAudioDecode).
			Build()
	}

	return &DecodedSignal{
		Samples:    samples,
		Channels:   info.NumChannels,
		SampleRate: info.SampleRate,
	}, nil
}

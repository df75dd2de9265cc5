// Package audio handles upload ingestion, decoding and signal normalization.
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/errors"
)

// DecodedSignal holds interleaved float32 samples decoded from an upload at
// the file's native sample rate. Immutable once produced.
type DecodedSignal struct {
	Samples    []float32 // interleaved amplitude samples in [-1, 1]
	Channels   int       // number of interleaved channels
	SampleRate int       // native sample rate in Hz
}

// Duration returns the signal length in seconds.
func (d *DecodedSignal) Duration() float64 {
	if d.SampleRate == 0 || d.Channels == 0 {
		return 0
	}
	return float64(len(d.Samples)) / float64(d.Channels) / float64(d.SampleRate)
}

// AudioInfo describes the PCM layout of a decoded file.
type AudioInfo struct {
	SampleRate   int
	TotalSamples int
	NumChannels  int
	BitDepth     int
}

// AllowedExtension reports whether the filename carries one of the supported
// upload extensions (wav, mp3, flac, m4a).
func AllowedExtension(filename string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" {
		return false
	}
	for _, allowed := range conf.AllowedFileTypes {
		if ext == allowed {
			return true
		}
	}
	return false
}

// DecodeFile decodes an audio file into a DecodedSignal at its native sample
// rate. WAV and FLAC files are decoded natively, mp3 and m4a are decoded
// through ffmpeg.
func DecodeFile(settings *conf.Settings, path string) (*DecodedSignal, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".wav":
		file, err := os.Open(path) //nolint:gosec // G304: path is the request's own temp file
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryFileIO).
				FileContext(path, 0).
				Build()
		}
		defer file.Close() //nolint:errcheck // read-only file
		return decodeWAV(file)
	case ".flac":
		file, err := os.Open(path) //nolint:gosec // G304: path is the request's own temp file
		if err != nil {
			return nil, errors.New(err).
				Category(errors.CategoryFileIO).
				FileContext(path, 0).
				Build()
		}
		defer file.Close() //nolint:errcheck // read-only file
		return decodeFLAC(file)
	case ".mp3", ".m4a":
		return decodeWithFFmpeg(settings, path)
	default:
		return nil, errors.Newf("unsupported audio file extension %q: %w", ext, errors.ErrInvalidFileType).
			Category(errors.CategoryInvalidInput).
			FileContext(path, 0).
			Build()
	}
}

// getAudioDivisor returns the divisor for converting integer PCM samples of
// the given bit depth to float32 in [-1, 1].
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported audio file bit depth: %d", bitDepth)
	}
}

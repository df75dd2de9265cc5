package audio

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/tphakala/flac"

	"github.com/dtrovato997/speech-analysis-go/internal/errors"
)

// decodeFLAC reads the whole FLAC file into an interleaved float32 signal at
// the file's native sample rate.
func decodeFLAC(file *os.File) (*DecodedSignal, error) {
	decoder, err := flac.NewDecoder(file)
	if err != nil {
		return nil, errors.Newf("reading FLAC header: %w: %w", errors.ErrAudioDecode, err).
			Category(errors.CategoryAudioDecode).
			Build()
	}

	divisor, err := getAudioDivisor(decoder.BitsPerSample)
	if err != nil {
		return nil, errors.Newf("%w: %w", errors.ErrAudioDecode, err).
			Category(errors.CategoryAudioDecode).
			Build()
	}

	bytesPerSample := decoder.BitsPerSample / 8
	samples := make([]float32, 0, int(decoder.TotalSamples)*decoder.NChannels)

	for {
		frame, err := decoder.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Newf("reading FLAC frame: %w: %w", errors.ErrAudioDecode, err).
				Category(errors.CategoryAudioDecode).
				Build()
		}

		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			var sample int32
			switch decoder.BitsPerSample {
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(frame[i+2])<<16
				// Sign-extend the 24-bit value.
				if sample&0x800000 != 0 {
					sample |= ^int32(0xFFFFFF)
				}
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[i:]))
			}
			samples = append(samples, float32(sample)/divisor)
		}
	}

	if len(samples) == 0 {
		return nil, errors.Newf("FLAC file contains no samples: %w", errors.ErrAudioDecode).
			Category(errors.CategoryAudioDecode).
			Build()
	}

	return &DecodedSignal{
		Samples:    samples,
		Channels:   decoder.NChannels,
		SampleRate: decoder.SampleRate,
	}, nil
}

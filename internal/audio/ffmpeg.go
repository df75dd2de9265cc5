package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/errors"
)

const ffmpegDecodeTimeout = 60 * time.Second

// probeAudioLayout runs ffprobe to determine the sample rate and channel
// count of an audio file.
func probeAudioLayout(ctx context.Context, ffprobePath, audioPath string) (sampleRate, channels int, err error) {
	// -show_entries stream=sample_rate,channels: only the PCM layout
	// -of default=noprint_wrappers=1:nokey=1: one bare value per line
	cmd := exec.CommandContext(ctx, ffprobePath,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate,channels",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = err.Error()
		}
		return 0, 0, fmt.Errorf("ffprobe failed: %s", errMsg)
	}

	lines := strings.Fields(out.String())
	if len(lines) < 2 {
		return 0, 0, fmt.Errorf("ffprobe returned no audio stream info")
	}

	sampleRate, err = strconv.Atoi(lines[0])
	if err != nil || sampleRate <= 0 {
		return 0, 0, fmt.Errorf("failed to parse sample rate %q", lines[0])
	}
	channels, err = strconv.Atoi(lines[1])
	if err != nil || channels <= 0 {
		return 0, 0, fmt.Errorf("failed to parse channel count %q", lines[1])
	}

	return sampleRate, channels, nil
}

// decodeWithFFmpeg decodes mp3/m4a files by piping signed 16-bit little-endian
// PCM out of an ffmpeg subprocess at the file's native sample rate and
// channel layout.
func decodeWithFFmpeg(settings *conf.Settings, audioPath string) (*DecodedSignal, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ffmpegDecodeTimeout)
	defer cancel()

	sampleRate, channels, err := probeAudioLayout(ctx, settings.Audio.FfprobePath, audioPath)
	if err != nil {
		return nil, errors.Newf("probing audio layout: %w: %w", errors.ErrAudioDecode, err).
			Category(errors.CategoryAudioDecode).
			FileContext(audioPath, 0).
			Build()
	}

	cmd := exec.CommandContext(ctx, settings.Audio.FfmpegPath, //nolint:gosec // G204: ffmpeg path from validated settings
		"-i", audioPath,
		"-loglevel", "error",
		"-vn",            // Disable video
		"-f", "s16le",    // Output signed 16-bit little-endian PCM
		"-ar", strconv.Itoa(sampleRate), // Keep the native sample rate
		"-ac", strconv.Itoa(channels),   // Keep the native channel layout
		"-hide_banner",
		"pipe:1",
	)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = err.Error()
		}
		return nil, errors.Newf("ffmpeg decode: %w: %s", errors.ErrAudioDecode, errMsg).
			Category(errors.CategoryAudioDecode).
			FileContext(audioPath, 0).
			Build()
	}

	pcm := out.Bytes()
	if len(pcm) < 2 {
		return nil, errors.Newf("ffmpeg produced no samples: %w", errors.ErrAudioDecode).
			Category(errors.CategoryAudioDecode).
			FileContext(audioPath, 0).
			Build()
	}

	samples := make([]float32, 0, len(pcm)/2)
	for i := 0; i+2 <= len(pcm); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(pcm[i:]))
		samples = append(samples, float32(sample)/32768.0)
	}

	return &DecodedSignal{
		Samples:    samples,
		Channels:   channels,
		SampleRate: sampleRate,
	}, nil
}

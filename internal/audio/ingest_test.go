package audio

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtrovato997/speech-analysis-go/internal/errors"
)

func TestIngestRejectsEmptyFilename(t *testing.T) {
	_, err := Ingest(testSettings(t), "", strings.NewReader("data"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoFileSelected))
}

func TestIngestRejectsDisallowedExtension(t *testing.T) {
	_, err := Ingest(testSettings(t), "malware.exe", strings.NewReader("data"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidFileType))
}

func TestIngestRejectsEmptyUpload(t *testing.T) {
	_, err := Ingest(testSettings(t), "silence.wav", bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestIngestDecodesWAVUpload(t *testing.T) {
	settings := testSettings(t)
	path := writeTestWAV(t, t.TempDir(), 16000, 1, 0.5)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	signal, err := Ingest(settings, "voice.wav", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 16000, signal.SampleRate)
	assert.Len(t, signal.Samples, 8000)
}

func TestIngestRemovesTempFile(t *testing.T) {
	settings := testSettings(t)
	path := writeTestWAV(t, t.TempDir(), 16000, 1, 0.1)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = Ingest(settings, "voice.wav", bytes.NewReader(data))
	require.NoError(t, err)

	entries, err := os.ReadDir(settings.Audio.UploadPath)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestIngestRemovesTempFileOnDecodeError(t *testing.T) {
	settings := testSettings(t)

	_, err := Ingest(settings, "broken.wav", strings.NewReader("RIFFgarbage"))
	require.Error(t, err)

	entries, err := os.ReadDir(settings.Audio.UploadPath)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

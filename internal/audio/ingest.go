package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/errors"
)

// Ingest validates an uploaded clip, spools it to a temporary file under the
// configured upload path, decodes it at its native layout, and removes the
// temporary file before returning. The returned signal is the only artifact
// that survives the call.
func Ingest(settings *conf.Settings, filename string, r io.Reader) (*DecodedSignal, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, errors.New(errors.ErrNoFileSelected).
			Category(errors.CategoryInvalidInput).
			Build()
	}

	if !AllowedExtension(filename) {
		return nil, errors.Newf("file type not allowed for %q: %w", filename, errors.ErrInvalidFileType).
			Category(errors.CategoryInvalidInput).
			Context("filename", filename).
			Build()
	}

	tempPath, err := spoolUpload(settings.Audio.UploadPath, filename, r)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tempPath)

	return DecodeFile(settings, tempPath)
}

// spoolUpload copies the upload to a uniquely named file so that decoders
// that need seekable input or a path (ffmpeg) can operate on it.
func spoolUpload(uploadPath, filename string, r io.Reader) (string, error) {
	if err := os.MkdirAll(uploadPath, 0o755); err != nil {
		return "", errors.Wrap(err).
			Category(errors.CategoryFileIO).
			Context("upload_path", uploadPath).
			Build()
	}

	ext := strings.ToLower(filepath.Ext(filename))
	name := fmt.Sprintf("upload_%d_%s%s", time.Now().Unix(), uuid.New().String(), ext)
	tempPath := filepath.Join(uploadPath, name)

	out, err := os.Create(tempPath)
	if err != nil {
		return "", errors.Wrap(err).
			Category(errors.CategoryFileIO).
			Context("temp_path", tempPath).
			Build()
	}

	written, err := io.Copy(out, r)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tempPath)
		return "", errors.Wrap(err).
			Category(errors.CategoryFileIO).
			FileContext(tempPath, written).
			Build()
	}
	if written == 0 {
		os.Remove(tempPath)
		return "", errors.Newf("uploaded file %q is empty", filename).
			Category(errors.CategoryInvalidInput).
			Context("filename", filename).
			Build()
	}

	return tempPath, nil
}

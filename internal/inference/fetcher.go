package inference

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dtrovato997/speech-analysis-go/internal/errors"
	"github.com/dtrovato997/speech-analysis-go/internal/logging"
)

// ModelFileName is the artifact each family must contain after extraction.
const ModelFileName = "model.tflite"

// Fetcher provisions model artifacts for a family and returns the local
// directory holding them.
type Fetcher interface {
	EnsureArtifacts(ctx context.Context, family Family, artifactURL string) (string, error)
}

// HTTPFetcher downloads zipped model artifacts over HTTP and caches the
// extracted contents under cacheRoot/<family>. A cached model is never
// re-downloaded.
type HTTPFetcher struct {
	client    *http.Client
	cacheRoot string
}

func NewHTTPFetcher(cacheRoot string) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: 10 * time.Minute},
		cacheRoot: cacheRoot,
	}
}

// WithClient replaces the HTTP client, used by tests to intercept transport.
func (f *HTTPFetcher) WithClient(client *http.Client) *HTTPFetcher {
	f.client = client
	return f
}

func (f *HTTPFetcher) EnsureArtifacts(ctx context.Context, family Family, artifactURL string) (string, error) {
	dir := filepath.Join(f.cacheRoot, string(family))
	modelPath := filepath.Join(dir, ModelFileName)

	if _, err := os.Stat(modelPath); err == nil {
		logging.ForService("inference").Debug("model artifacts cached, skipping download",
			"family", string(family), "path", dir)
		return dir, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(err).
			Category(errors.CategoryFileIO).
			Context("cache_dir", dir).
			Build()
	}

	zipPath := filepath.Join(dir, "artifact.zip")
	if err := f.download(ctx, artifactURL, zipPath); err != nil {
		return "", errors.Wrap(err).
			Category(errors.CategoryNetwork).
			ModelContext(string(family), artifactURL).
			Build()
	}
	defer os.Remove(zipPath)

	if err := extractArchive(zipPath, dir); err != nil {
		return "", errors.Wrap(err).
			Category(errors.CategoryModelLoad).
			ModelContext(string(family), artifactURL).
			Build()
	}

	if _, err := os.Stat(modelPath); err != nil {
		return "", errors.Newf("archive for %s did not contain %s", family, ModelFileName).
			Category(errors.CategoryModelLoad).
			ModelContext(string(family), artifactURL).
			Build()
	}

	return dir, nil
}

func (f *HTTPFetcher) download(ctx context.Context, url, dest string) error {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf("artifact download returned status %d", resp.StatusCode).
			Category(errors.CategoryHTTP).
			Context("url", url).
			Build()
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		return err
	}

	logging.ForService("inference").Info("model artifact downloaded",
		"url", url,
		"bytes", written,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

// extractArchive unpacks a zip into destDir, refusing entries that would
// escape it.
func extractArchive(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, file := range r.File {
		if err := extractEntry(file, destDir); err != nil {
			return err
		}
	}
	return nil
}

func extractEntry(file *zip.File, destDir string) error {
	// Flatten archive layout: some artifacts nest files under a version
	// directory, the adapters expect them at the family root.
	name := filepath.Base(filepath.Clean(file.Name))
	if file.FileInfo().IsDir() || name == "." || strings.HasPrefix(name, "..") {
		return nil
	}

	dest := filepath.Join(destDir, name)
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, rc) //nolint:gosec // G110: artifact archives come from configured trusted URLs
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dest)
		return err
	}
	return nil
}

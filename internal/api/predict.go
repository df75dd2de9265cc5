package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dtrovato997/speech-analysis-go/internal/errors"
	"github.com/dtrovato997/speech-analysis-go/internal/inference"
)

// PredictAgeGender predicts speaker age and gender from an uploaded clip.
func (c *Controller) PredictAgeGender(ctx echo.Context) error {
	return c.predictFamily(ctx, inference.FamilyAgeGender)
}

// PredictNationality predicts the spoken language from an uploaded clip.
func (c *Controller) PredictNationality(ctx echo.Context) error {
	return c.predictFamily(ctx, inference.FamilyNationality)
}

// PredictEmotion predicts the dominant emotion from an uploaded clip.
func (c *Controller) PredictEmotion(ctx echo.Context) error {
	return c.predictFamily(ctx, inference.FamilyEmotion)
}

func (c *Controller) predictFamily(ctx echo.Context, family inference.Family) error {
	filename, src, err := c.openUpload(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid file upload", http.StatusBadRequest)
	}
	defer src.Close()

	result, err := c.Analyzer.Analyze(ctx.Request().Context(), family, filename, src)
	if err != nil {
		return c.handleAnalysisError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, result)
}

// PredictAll runs every model family over one uploaded clip.
func (c *Controller) PredictAll(ctx echo.Context) error {
	filename, src, err := c.openUpload(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid file upload", http.StatusBadRequest)
	}
	defer src.Close()

	result, err := c.Analyzer.AnalyzeAll(ctx.Request().Context(), filename, src)
	if err != nil {
		return c.handleAnalysisError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, result)
}

// openUpload extracts the multipart file from the request.
func (c *Controller) openUpload(ctx echo.Context) (string, multipartFile, error) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return "", nil, errors.Newf("missing form file %q: %w", "file", errors.ErrNoFileSelected).
			Category(errors.CategoryInvalidInput).
			Build()
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", nil, errors.Wrap(err).
			Category(errors.CategoryInvalidInput).
			Context("filename", fileHeader.Filename).
			Build()
	}

	if c.metrics != nil {
		c.metrics.HTTP.RecordUpload(fileHeader.Size)
	}
	return fileHeader.Filename, src, nil
}

type multipartFile interface {
	Read(p []byte) (int, error)
	Close() error
}

// handleAnalysisError maps pipeline failures onto HTTP status codes. Bad
// uploads are client errors, an unloaded model means the service cannot
// currently serve that family, everything else is internal.
func (c *Controller) handleAnalysisError(ctx echo.Context, err error) error {
	switch {
	case errors.Is(err, errors.ErrNoFileSelected):
		return c.HandleError(ctx, err, "No file selected", http.StatusBadRequest)
	case errors.Is(err, errors.ErrInvalidFileType):
		return c.HandleError(ctx, err, "Invalid file type. Allowed: wav, mp3, flac, m4a", http.StatusBadRequest)
	case errors.Is(err, errors.ErrModelNotLoaded):
		return c.HandleError(ctx, err, "Model not loaded", http.StatusServiceUnavailable)
	}

	switch categoryOf(err) {
	case errors.CategoryInvalidInput, errors.CategoryValidation, errors.CategoryAudioDecode:
		return c.HandleError(ctx, err, "Could not decode audio file", http.StatusBadRequest)
	case errors.CategoryModelNotLoaded:
		return c.HandleError(ctx, err, "Model not loaded", http.StatusServiceUnavailable)
	default:
		return c.HandleError(ctx, err, "Error processing audio file", http.StatusInternalServerError)
	}
}

func categoryOf(err error) errors.ErrorCategory {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return errors.ErrorCategory(ee.GetCategory())
	}
	return errors.CategoryGeneric
}

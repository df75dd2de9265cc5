package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dtrovato997/speech-analysis-go/internal/analysis"
	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/errors"
	"github.com/dtrovato997/speech-analysis-go/internal/inference"
	"github.com/dtrovato997/speech-analysis-go/internal/observability"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubAnalyzer struct {
	result   *analysis.Result
	combined *analysis.CombinedResult
	err      error
	lastName string
}

func (s *stubAnalyzer) Analyze(ctx context.Context, family inference.Family, filename string, upload io.Reader) (*analysis.Result, error) {
	s.lastName = filename
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubAnalyzer) AnalyzeAll(ctx context.Context, filename string, upload io.Reader) (*analysis.CombinedResult, error) {
	s.lastName = filename
	if s.err != nil {
		return nil, s.err
	}
	return s.combined, nil
}

type stubModel struct {
	family inference.Family
	status inference.Status
}

func (s *stubModel) Family() inference.Family { return s.family }
func (s *stubModel) Status() inference.Status { return s.status }
func (s *stubModel) Load(context.Context) error { return nil }
func (s *stubModel) Predict(context.Context, *inference.Clip) (any, error) { return nil, nil }

func newTestController(t *testing.T, analyzer Analyzer, adapters ...inference.Adapter) (*Controller, *echo.Echo) {
	t.Helper()
	settings := &conf.Settings{Version: "test"}
	settings.WebServer.Port = "0"
	e := echo.New()
	c := New(e, settings, analyzer, inference.NewRegistry(adapters...))
	return c, e
}

func multipartUpload(t *testing.T, fieldName, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile(fieldName, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func doRequest(e *echo.Echo, method, target, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPredictEmotionReturnsPayload(t *testing.T) {
	analyzer := &stubAnalyzer{
		result: &analysis.Result{
			Success:        true,
			Predictions:    &inference.EmotionResult{PredictedEmotion: "happy", Confidence: 0.91},
			ProcessingTime: 0.2,
			AudioInfo:      analysis.AudioInfo{MaxDurationSeconds: 120},
		},
	}
	_, e := newTestController(t, analyzer)

	body, contentType := multipartUpload(t, "file", "clip.wav", []byte("fake-audio"))
	rec := doRequest(e, http.MethodPost, "/api/v1/predict/emotion", contentType, body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "clip.wav", analyzer.lastName)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	predictions, ok := resp["predictions"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "happy", predictions["predicted_emotion"])
}

func TestPredictMissingFileField(t *testing.T) {
	_, e := newTestController(t, &stubAnalyzer{})

	body, contentType := multipartUpload(t, "wrong_field", "clip.wav", []byte("x"))
	rec := doRequest(e, http.MethodPost, "/api/v1/predict/age-gender", contentType, body)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Len(t, resp.CorrelationID, 8)
}

func TestPredictInvalidFileTypeMapsTo400(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.Newf("bad type: %w", errors.ErrInvalidFileType).
		Category(errors.CategoryInvalidInput).Build()}
	_, e := newTestController(t, analyzer)

	body, contentType := multipartUpload(t, "file", "clip.ogg", []byte("x"))
	rec := doRequest(e, http.MethodPost, "/api/v1/predict/nationality", contentType, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid file type")
}

func TestPredictDecodeFailureMapsTo400(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.Newf("broken header: %w", errors.ErrAudioDecode).
		Category(errors.CategoryAudioDecode).Build()}
	_, e := newTestController(t, analyzer)

	body, contentType := multipartUpload(t, "file", "clip.wav", []byte("x"))
	rec := doRequest(e, http.MethodPost, "/api/v1/predict/emotion", contentType, body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictModelNotLoadedMapsTo503(t *testing.T) {
	analyzer := &stubAnalyzer{err: errors.Newf("emotion model not loaded: %w", errors.ErrModelNotLoaded).
		Category(errors.CategoryModelNotLoaded).Build()}
	_, e := newTestController(t, analyzer)

	body, contentType := multipartUpload(t, "file", "clip.wav", []byte("x"))
	rec := doRequest(e, http.MethodPost, "/api/v1/predict/emotion", contentType, body)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPredictInternalErrorMapsTo500(t *testing.T) {
	analyzer := &stubAnalyzer{err: fmt.Errorf("tensor invoke failed")}
	_, e := newTestController(t, analyzer)

	body, contentType := multipartUpload(t, "file", "clip.wav", []byte("x"))
	rec := doRequest(e, http.MethodPost, "/api/v1/predict", contentType, body)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPredictAllReturnsCombinedPayload(t *testing.T) {
	analyzer := &stubAnalyzer{
		combined: &analysis.CombinedResult{
			Success: true,
			Predictions: analysis.CombinedPredictions{
				Demographics: &inference.AgeGenderResult{Age: inference.AgeResult{PredictedAge: 31.5}},
				Nationality:  &inference.NationalityResult{PredictedLanguage: "ita"},
				Emotion:      &inference.EmotionResult{PredictedEmotion: "calm"},
			},
			ProcessingTime: analysis.CombinedTiming{Total: 1.2},
			AudioInfo:      analysis.AudioInfo{WasClipped: true, MaxDurationSeconds: 120},
			Warning:        "Audio was longer than 120 seconds and was automatically clipped to the first 120 seconds for analysis.",
		},
	}
	_, e := newTestController(t, analyzer)

	body, contentType := multipartUpload(t, "file", "long.mp3", []byte("fake"))
	rec := doRequest(e, http.MethodPost, "/api/v1/predict", contentType, body)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "warning")
	predictions, ok := resp["predictions"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, predictions, "demographics")
	assert.Contains(t, predictions, "nationality")
	assert.Contains(t, predictions, "emotion")
}

func TestHealthCheckAllModelsReady(t *testing.T) {
	_, e := newTestController(t, &stubAnalyzer{},
		&stubModel{family: inference.FamilyAgeGender, status: inference.StatusReady},
		&stubModel{family: inference.FamilyEmotion, status: inference.StatusReady},
	)

	rec := doRequest(e, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp["status"])

	loaded, ok := resp["models_loaded"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, loaded["age_gender"])
	assert.Equal(t, true, loaded["emotion"])
}

func TestHealthCheckDegradedWhenModelUnloaded(t *testing.T) {
	_, e := newTestController(t, &stubAnalyzer{},
		&stubModel{family: inference.FamilyAgeGender, status: inference.StatusReady},
		&stubModel{family: inference.FamilyNationality, status: inference.StatusUnloaded},
	)

	rec := doRequest(e, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp["status"])
}

func TestModelStatuses(t *testing.T) {
	_, e := newTestController(t, &stubAnalyzer{},
		&stubModel{family: inference.FamilyAgeGender, status: inference.StatusReady},
		&stubModel{family: inference.FamilyNationality, status: inference.StatusUnloaded},
	)

	rec := doRequest(e, http.MethodGet, "/api/v1/models", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Models []ModelStatus `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Models, 2)
	assert.Equal(t, "age_gender", resp.Models[0].Family)
	assert.Equal(t, "ready", resp.Models[0].Status)
	assert.Equal(t, "unloaded", resp.Models[1].Status)
}

func TestMetricsEndpointRegisteredWithMetrics(t *testing.T) {
	metrics, err := observability.NewMetrics()
	require.NoError(t, err)

	settings := &conf.Settings{}
	e := echo.New()
	New(e, settings, &stubAnalyzer{}, inference.NewRegistry(), WithMetrics(metrics))

	rec := doRequest(e, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewErrorResponseUsesMessageWithoutError(t *testing.T) {
	resp := NewErrorResponse(nil, "something failed", http.StatusBadRequest)
	assert.Equal(t, "something failed", resp.Error)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Len(t, resp.CorrelationID, 8)
}

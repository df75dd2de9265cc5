package inference

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/errors"
	"github.com/dtrovato997/speech-analysis-go/internal/logging"
)

// LabelsFileName lists language codes next to the nationality model, one
// ISO code per line in output-index order.
const LabelsFileName = "labels.txt"

// topLanguageCount is how many ranked languages a prediction reports.
const topLanguageCount = 5

// NationalityModel identifies the spoken language of a clip and ranks the
// most likely candidates.
type NationalityModel struct {
	cfg     conf.ModelConfig
	threads int
	xnnpack bool
	fetcher Fetcher

	mu     sync.RWMutex
	status Status
	eng    *engine
	labels []string
}

func NewNationalityModel(settings *conf.Settings, fetcher Fetcher) *NationalityModel {
	return &NationalityModel{
		cfg:     settings.Models.Nationality,
		threads: settings.Models.Threads,
		xnnpack: settings.Models.UseXNNPACK,
		fetcher: fetcher,
	}
}

func (m *NationalityModel) Family() Family { return FamilyNationality }

func (m *NationalityModel) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *NationalityModel) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == StatusReady {
		return nil
	}

	start := time.Now()
	modelPath, err := resolveModelPath(ctx, m.fetcher, FamilyNationality, &m.cfg)
	if err != nil {
		return err
	}

	labels, err := loadLanguageLabels(filepath.Join(filepath.Dir(modelPath), LabelsFileName))
	if err != nil {
		return err
	}

	eng, err := newEngine(modelPath, m.threads, m.xnnpack)
	if err != nil {
		return err
	}

	m.eng = eng
	m.labels = labels
	m.status = StatusReady
	logging.ForService("inference").Info("model loaded",
		"family", string(FamilyNationality),
		"model_path", modelPath,
		"languages", len(labels),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (m *NationalityModel) Predict(ctx context.Context, clip *Clip) (any, error) {
	m.mu.RLock()
	eng, labels, status := m.eng, m.labels, m.status
	m.mu.RUnlock()
	if status != StatusReady {
		return nil, notLoadedError(FamilyNationality)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outputs, err := eng.invoke(clip.Samples)
	if err != nil {
		return nil, predictionError(FamilyNationality, err)
	}
	if len(outputs) == 0 {
		return nil, predictionError(FamilyNationality,
			errors.Newf("model produced no output tensors").Build())
	}

	logits := outputs[0]
	if len(logits) != len(labels) {
		return nil, predictionError(FamilyNationality,
			errors.Newf("model produced %d classes, label file has %d", len(logits), len(labels)).Build())
	}

	return rankLanguages(labels, softmax(logits), topLanguageCount), nil
}

// rankLanguages orders the distribution by probability and keeps the top k
// entries. Ties resolve to the lower label index so equal scores have a
// deterministic order.
func rankLanguages(labels []string, probs []float64, k int) *NationalityResult {
	order := make([]int, len(probs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] > probs[order[b]]
	})

	if k > len(order) {
		k = len(order)
	}
	top := make([]LanguageScore, 0, k)
	for _, idx := range order[:k] {
		top = append(top, LanguageScore{
			LanguageCode: labels[idx],
			Probability:  probs[idx],
		})
	}

	best := order[0]
	return &NationalityResult{
		PredictedLanguage: labels[best],
		Confidence:        probs[best],
		TopLanguages:      top,
	}
}

// loadLanguageLabels reads one language code per line, skipping blanks.
func loadLanguageLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err).
			Category(errors.CategoryLabelLoad).
			Context("label_path", path).
			Build()
	}
	defer f.Close()

	var labels []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err).
			Category(errors.CategoryLabelLoad).
			Context("label_path", path).
			Context("operation", "scan_labels").
			Build()
	}
	if len(labels) == 0 {
		return nil, errors.Newf("label file %s is empty", path).
			Category(errors.CategoryLabelLoad).
			Build()
	}
	return labels, nil
}

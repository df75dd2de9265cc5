package inference

import (
	"context"
	"sync"

	"time"

	"github.com/dtrovato997/speech-analysis-go/internal/conf"
	"github.com/dtrovato997/speech-analysis-go/internal/errors"
	"github.com/dtrovato997/speech-analysis-go/internal/logging"
	"github.com/dtrovato997/speech-analysis-go/internal/observability/metrics"
)

// Registry holds the adapters this process serves. The adapter set is fixed
// at construction, only adapter state changes afterwards.
type Registry struct {
	adapters map[Family]Adapter
	order    []Family
	metrics  *metrics.InferenceMetrics
}

// NewRegistry builds a registry over the given adapters. Later adapters
// with a duplicate family replace earlier ones.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[Family]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, seen := r.adapters[a.Family()]; !seen {
			r.order = append(r.order, a.Family())
		}
		r.adapters[a.Family()] = a
	}
	return r
}

// NewRegistryFromConfig wires the standard adapter set, honoring per-family
// enable flags.
func NewRegistryFromConfig(settings *conf.Settings, fetcher Fetcher) *Registry {
	var adapters []Adapter
	if settings.Models.AgeGender.Enabled {
		adapters = append(adapters, NewAgeGenderModel(settings, fetcher))
	}
	if settings.Models.Nationality.Enabled {
		adapters = append(adapters, NewNationalityModel(settings, fetcher))
	}
	if settings.Models.Emotion.Enabled {
		adapters = append(adapters, NewEmotionModel(settings, fetcher))
	}
	return NewRegistry(adapters...)
}

// SetMetrics attaches inference metrics. Call before LoadAll; a nil
// receiver value disables recording.
func (r *Registry) SetMetrics(m *metrics.InferenceMetrics) {
	r.metrics = m
}

// Get returns the adapter for a family.
func (r *Registry) Get(family Family) (Adapter, error) {
	a, ok := r.adapters[family]
	if !ok {
		return nil, errors.Newf("no adapter registered for family %q", family).
			Category(errors.CategoryConfiguration).
			Build()
	}
	return a, nil
}

// Families lists registered families in registration order.
func (r *Registry) Families() []Family {
	out := make([]Family, len(r.order))
	copy(out, r.order)
	return out
}

// Statuses reports the current lifecycle state per family.
func (r *Registry) Statuses() map[Family]Status {
	out := make(map[Family]Status, len(r.adapters))
	for family, a := range r.adapters {
		out[family] = a.Status()
	}
	return out
}

// LoadAll loads every adapter concurrently. A failing family is logged and
// left unloaded, it never blocks the others. The returned map carries the
// per-family load errors.
func (r *Registry) LoadAll(ctx context.Context) map[Family]error {
	log := logging.ForService("inference")

	var mu sync.Mutex
	failures := make(map[Family]error)

	var wg sync.WaitGroup
	for _, family := range r.order {
		adapter := r.adapters[family]
		wg.Add(1)
		go func(family Family, adapter Adapter) {
			defer wg.Done()
			start := time.Now()
			err := adapter.Load(ctx)
			if r.metrics != nil {
				r.metrics.RecordModelLoad(string(family), time.Since(start).Seconds(), err)
			}
			if err != nil {
				log.Error("model load failed, family stays unloaded",
					"family", string(family), "error", err.Error())
				mu.Lock()
				failures[family] = err
				mu.Unlock()
			}
		}(family, adapter)
	}
	wg.Wait()

	return failures
}

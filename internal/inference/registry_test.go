package inference

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	family  Family
	status  atomic.Int32
	loadErr error
	payload any
}

func (f *fakeAdapter) Family() Family { return f.family }

func (f *fakeAdapter) Status() Status { return Status(f.status.Load()) }

func (f *fakeAdapter) Load(ctx context.Context) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.status.Store(int32(StatusReady))
	return nil
}

func (f *fakeAdapter) Predict(ctx context.Context, clip *Clip) (any, error) {
	if f.Status() != StatusReady {
		return nil, notLoadedError(f.family)
	}
	return f.payload, nil
}

func TestRegistryGet(t *testing.T) {
	a := &fakeAdapter{family: FamilyEmotion}
	r := NewRegistry(a)

	got, err := r.Get(FamilyEmotion)
	require.NoError(t, err)
	assert.Same(t, Adapter(a), got)

	_, err = r.Get(FamilyAgeGender)
	assert.Error(t, err)
}

func TestRegistryFamiliesKeepOrder(t *testing.T) {
	r := NewRegistry(
		&fakeAdapter{family: FamilyAgeGender},
		&fakeAdapter{family: FamilyNationality},
		&fakeAdapter{family: FamilyEmotion},
	)
	assert.Equal(t, []Family{FamilyAgeGender, FamilyNationality, FamilyEmotion}, r.Families())
}

func TestRegistryLoadAllIsolatesFailures(t *testing.T) {
	broken := &fakeAdapter{family: FamilyNationality, loadErr: fmt.Errorf("download failed")}
	healthy := &fakeAdapter{family: FamilyEmotion}
	r := NewRegistry(broken, healthy)

	failures := r.LoadAll(context.Background())

	require.Len(t, failures, 1)
	assert.Error(t, failures[FamilyNationality])
	assert.Equal(t, StatusUnloaded, broken.Status())
	assert.Equal(t, StatusReady, healthy.Status())
}

func TestRegistryStatuses(t *testing.T) {
	a := &fakeAdapter{family: FamilyAgeGender}
	b := &fakeAdapter{family: FamilyEmotion}
	r := NewRegistry(a, b)

	require.Empty(t, r.LoadAll(context.Background()))

	statuses := r.Statuses()
	assert.Equal(t, StatusReady, statuses[FamilyAgeGender])
	assert.Equal(t, StatusReady, statuses[FamilyEmotion])
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "unloaded", StatusUnloaded.String())
	assert.Equal(t, "ready", StatusReady.String())
}

func TestPredictOnUnloadedAdapter(t *testing.T) {
	a := &fakeAdapter{family: FamilyEmotion}
	_, err := a.Predict(context.Background(), &Clip{Samples: []float32{0}, SampleRate: 16000})
	assert.Error(t, err)
}

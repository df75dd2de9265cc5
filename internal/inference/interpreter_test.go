package inference

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoftmax(t *testing.T) {
	tests := []struct {
		name   string
		logits []float32
	}{
		{"uniform", []float32{0, 0, 0}},
		{"dominant", []float32{10, 0, 0}},
		{"negative", []float32{-5, -1, -3}},
		{"large_values", []float32{1000, 999, 998}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probs := softmax(tt.logits)
			require.Len(t, probs, len(tt.logits))

			var sum float64
			for _, p := range probs {
				assert.GreaterOrEqual(t, p, 0.0)
				assert.LessOrEqual(t, p, 1.0)
				sum += p
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
		})
	}
}

func TestSoftmaxOrderPreserved(t *testing.T) {
	probs := softmax([]float32{1, 3, 2})
	assert.Greater(t, probs[1], probs[2])
	assert.Greater(t, probs[2], probs[0])
}

func TestSoftmaxEmpty(t *testing.T) {
	assert.Empty(t, softmax(nil))
}

func TestArgmax(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected int
	}{
		{"single", []float64{0.5}, 0},
		{"last_wins", []float64{0.1, 0.2, 0.7}, 2},
		{"first_wins", []float64{0.9, 0.05, 0.05}, 0},
		{"tie_prefers_earlier", []float64{0.4, 0.4, 0.2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, argmax(tt.values))
		})
	}
}

func TestDetermineThreadCount(t *testing.T) {
	cpus := runtime.NumCPU()

	assert.Equal(t, cpus, determineThreadCount(0))
	assert.Equal(t, cpus, determineThreadCount(-1))
	assert.Equal(t, 1, determineThreadCount(1))
	assert.Equal(t, cpus, determineThreadCount(cpus+100))
}

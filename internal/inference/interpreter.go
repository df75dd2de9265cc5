package inference

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"sync"

	tflite "github.com/tphakala/go-tflite"
	"github.com/tphakala/go-tflite/delegates/xnnpack"

	"github.com/dtrovato997/speech-analysis-go/internal/errors"
	"github.com/dtrovato997/speech-analysis-go/internal/logging"
)

// engine wraps one TensorFlow Lite interpreter. Invoke is not reentrant so
// all access is serialized behind the mutex.
type engine struct {
	mu          sync.Mutex
	interpreter *tflite.Interpreter
	model       *tflite.Model
}

// windowSize reports how many samples the model consumes per invocation.
func (e *engine) windowSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	t := e.interpreter.GetInputTensor(0)
	if t == nil {
		return 0
	}
	return t.Dim(t.NumDims() - 1)
}

// newEngine loads a model file and prepares an interpreter for it.
func newEngine(modelPath string, threads int, useXNNPACK bool) (*engine, error) {
	modelData, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, errors.Wrap(err).
			Category(errors.CategoryModelLoad).
			Context("model_path", modelPath).
			Build()
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, errors.Newf("cannot parse TensorFlow Lite model").
			Category(errors.CategoryModelInit).
			Context("model_path", modelPath).
			Context("model_size_mb", len(modelData)/1024/1024).
			Build()
	}

	threads = determineThreadCount(threads)

	options := tflite.NewInterpreterOptions()
	if useXNNPACK {
		delegate := xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(max(1, threads-1))}) //nolint:gosec // G115: thread count bounded by CPU count, safe conversion
		if delegate == nil {
			logging.Structured().Warn("Failed to create XNNPACK delegate, falling back to default CPU",
				"model_path", modelPath)
			options.SetNumThread(threads)
		} else {
			options.AddDelegate(delegate)
			options.SetNumThread(1)
		}
	} else {
		options.SetNumThread(threads)
	}

	options.SetErrorReporter(func(msg string, userData any) {
		logging.Structured().Error("TFLite error", "message", msg)
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, errors.Newf("cannot create interpreter for %s", modelPath).
			Category(errors.CategoryModelInit).
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, errors.Newf("tensor allocation failed for %s", modelPath).
			Category(errors.CategoryModelInit).
			Build()
	}

	// TFLite keeps its own copy of the model data, reclaim ours.
	runtime.GC()

	return &engine{interpreter: interpreter, model: model}, nil
}

// invoke runs the model over one sample window and returns a copy of every
// output tensor. The exported models carry a fixed input signature, so the
// clip is zero padded or truncated to the model's window size.
func (e *engine) invoke(samples []float32) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(samples) == 0 {
		return nil, fmt.Errorf("empty input window")
	}

	inputTensor := e.interpreter.GetInputTensor(0)
	if inputTensor == nil {
		return nil, fmt.Errorf("cannot get input tensor")
	}

	window := inputTensor.Float32s()
	n := copy(window, samples)
	for i := n; i < len(window); i++ {
		window[i] = 0
	}

	if status := e.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tensor invoke failed")
	}

	count := e.interpreter.GetOutputTensorCount()
	outputs := make([][]float32, 0, count)
	for i := 0; i < count; i++ {
		tensor := e.interpreter.GetOutputTensor(i)
		if tensor == nil {
			return nil, fmt.Errorf("cannot get output tensor %d", i)
		}
		values := make([]float32, len(tensor.Float32s()))
		copy(values, tensor.Float32s())
		outputs = append(outputs, values)
	}

	return outputs, nil
}

func (e *engine) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.interpreter != nil {
		e.interpreter.Delete()
		e.interpreter = nil
	}
	if e.model != nil {
		e.model.Delete()
		e.model = nil
	}
}

// determineThreadCount resolves the configured thread count, using all
// available cores when unset and clamping to the system capacity.
func determineThreadCount(configured int) int {
	systemCPUCount := runtime.NumCPU()
	if configured <= 0 || configured > systemCPUCount {
		return systemCPUCount
	}
	return configured
}

// softmax converts logits into a probability distribution.
func softmax(logits []float32) []float64 {
	probs := make([]float64, len(logits))
	if len(logits) == 0 {
		return probs
	}

	// Subtract the max for numerical stability.
	maxLogit := float64(logits[0])
	for _, v := range logits[1:] {
		if float64(v) > maxLogit {
			maxLogit = float64(v)
		}
	}

	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(float64(v) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// argmax returns the index of the largest value, preferring the earlier
// index on ties.
func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

// Package inference hosts the pretrained speech models and the shared
// TensorFlow Lite plumbing they run on. Each model family is wrapped in an
// Adapter that owns its artifacts, its interpreter, and its output decoding.
package inference

import "context"

// Family identifies a model family served by this process.
type Family string

const (
	FamilyAgeGender   Family = "age_gender"
	FamilyNationality Family = "nationality"
	FamilyEmotion     Family = "emotion"
)

// Status is the lifecycle state of an adapter. Adapters start Unloaded and
// become Ready once Load succeeds; a failed Load leaves them Unloaded.
type Status int32

const (
	StatusUnloaded Status = iota
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	default:
		return "unloaded"
	}
}

// Clip is the canonical model input: mono float32 samples at 16 kHz.
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Adapter is a loaded (or loadable) model family. Predict returns a
// family-specific payload that marshals directly into the API response.
type Adapter interface {
	Family() Family
	Status() Status
	Load(ctx context.Context) error
	Predict(ctx context.Context, clip *Clip) (any, error)
}

// AgeGenderResult carries both heads of the age and gender model.
type AgeGenderResult struct {
	Age    AgeResult    `json:"age"`
	Gender GenderResult `json:"gender"`
}

type AgeResult struct {
	PredictedAge float64 `json:"predicted_age"`
}

type GenderResult struct {
	PredictedGender string             `json:"predicted_gender"`
	Probabilities   map[string]float64 `json:"probabilities"`
	Confidence      float64            `json:"confidence"`
}

// LanguageScore is one entry of the spoken-language ranking.
type LanguageScore struct {
	LanguageCode string  `json:"language_code"`
	Probability  float64 `json:"probability"`
}

type NationalityResult struct {
	PredictedLanguage string          `json:"predicted_language"`
	Confidence        float64         `json:"confidence"`
	TopLanguages      []LanguageScore `json:"top_languages"`
}

type EmotionResult struct {
	PredictedEmotion string             `json:"predicted_emotion"`
	Confidence       float64            `json:"confidence"`
	AllEmotions      map[string]float64 `json:"all_emotions"`
}

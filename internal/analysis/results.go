package analysis

// AudioInfo describes how the uploaded clip was prepared for inference.
type AudioInfo struct {
	WasClipped         bool `json:"was_clipped"`
	MaxDurationSeconds int  `json:"max_duration_seconds"`
}

// Result is the response body for a single-model prediction request.
type Result struct {
	Success        bool      `json:"success"`
	Predictions    any       `json:"predictions"`
	ProcessingTime float64   `json:"processing_time"`
	AudioInfo      AudioInfo `json:"audio_info"`
	Warning        string    `json:"warning,omitempty"`
}

// CombinedTiming breaks the combined analysis wall clock down per family.
type CombinedTiming struct {
	Total       float64 `json:"total"`
	AgeGender   float64 `json:"age_gender"`
	Nationality float64 `json:"nationality"`
	Emotion     float64 `json:"emotion"`
}

// CombinedPredictions groups every family's payload in one response.
type CombinedPredictions struct {
	Demographics any `json:"demographics"`
	Nationality  any `json:"nationality"`
	Emotion      any `json:"emotion"`
}

// CombinedResult is the response body for a full analysis request.
type CombinedResult struct {
	Success        bool                `json:"success"`
	Predictions    CombinedPredictions `json:"predictions"`
	ProcessingTime CombinedTiming      `json:"processing_time"`
	AudioInfo      AudioInfo           `json:"audio_info"`
	Warning        string              `json:"warning,omitempty"`
}

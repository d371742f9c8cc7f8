package types

// EmotionLabel is the closed set of emotions the system understands.
// Unknown inputs collapse to EmotionNeutral.
type EmotionLabel string

const (
	EmotionHappy    EmotionLabel = "happy"
	EmotionSad      EmotionLabel = "sad"
	EmotionAngry    EmotionLabel = "angry"
	EmotionFear     EmotionLabel = "fear"
	EmotionSurprise EmotionLabel = "surprise"
	EmotionDisgust  EmotionLabel = "disgust"
	EmotionNeutral  EmotionLabel = "neutral"
)

// AllEmotions lists every label in the closed set.
func AllEmotions() []EmotionLabel {
	return []EmotionLabel{
		EmotionHappy, EmotionSad, EmotionAngry, EmotionFear,
		EmotionSurprise, EmotionDisgust, EmotionNeutral,
	}
}

// IsValid reports whether the label is a member of the closed set.
func (e EmotionLabel) IsValid() bool {
	switch e {
	case EmotionHappy, EmotionSad, EmotionAngry, EmotionFear,
		EmotionSurprise, EmotionDisgust, EmotionNeutral:
		return true
	}
	return false
}

// EmotionSource identifies which modality produced a reading
type EmotionSource string

const (
	SourceText  EmotionSource = "text"
	SourceImage EmotionSource = "image"
	SourceAudio EmotionSource = "audio"
)

// EmotionReading is one classification result
type EmotionReading struct {
	Primary    EmotionLabel   `json:"primary"`
	Intensity  float64        `json:"intensity"` // 0..1, clamped on ingress
	Secondary  []EmotionLabel `json:"secondary,omitempty"`
	Features   string         `json:"features,omitempty"`
	Source     EmotionSource  `json:"source"`
	Confidence float64        `json:"confidence"` // 0..1
	Timestamp  int64          `json:"ts_unix"`
}

// Clamp01 bounds v to [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

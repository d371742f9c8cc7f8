package emotion

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/pkg/types"
)

func newTestEngine(text TextClassifierPort, vision VisionClassifierPort, audio AudioClassifierPort) *Engine {
	return NewEngine(text, vision, audio, zerolog.Nop())
}

func TestPredict_LexiconText(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		text     string
		expected types.EmotionLabel
	}{
		{"English happy", "I am so happy and full of joy", types.EmotionHappy},
		{"Chinese happy", "今天天氣真好！我很開心。", types.EmotionHappy},
		{"English sad", "tears and sorrow filled the lonely room", types.EmotionSad},
		{"Chinese angry", "他非常生氣，憤怒地大喊", types.EmotionAngry},
		{"Fear", "she was terrified, frozen in panic", types.EmotionFear},
		{"No match", "the table has four legs", types.EmotionNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reading := engine.Predict(ctx, Payload{Text: tt.text})
			if reading.Primary != tt.expected {
				t.Errorf("Predict(%q).Primary = %s, want %s", tt.text, reading.Primary, tt.expected)
			}
			if reading.Source != types.SourceText {
				t.Errorf("Source = %s, want text", reading.Source)
			}
			if reading.Intensity < 0 || reading.Intensity > 1 {
				t.Errorf("Intensity out of range: %f", reading.Intensity)
			}
		})
	}

	t.Run("No match defaults", func(t *testing.T) {
		reading := engine.Predict(ctx, Payload{Text: "the table has four legs"})
		if reading.Intensity != 0.5 {
			t.Errorf("Neutral intensity = %f, want 0.5", reading.Intensity)
		}
	})
}

func TestPredict_Memoization(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	ctx := context.Background()

	first := engine.Predict(ctx, Payload{Text: "so happy today"})
	second := engine.Predict(ctx, Payload{Text: "so happy today"})

	if first.Timestamp != second.Timestamp {
		t.Error("Identical inputs should return the memoized reading")
	}
	if first.Primary != second.Primary || first.Intensity != second.Intensity {
		t.Error("Memoized reading differs from original")
	}
}

func TestPredict_MissingBackends(t *testing.T) {
	engine := newTestEngine(nil, nil, nil)
	ctx := context.Background()

	t.Run("Image without vision port", func(t *testing.T) {
		reading := engine.Predict(ctx, Payload{Image: []byte{0x89, 0x50}})
		if reading.Primary != types.EmotionNeutral {
			t.Errorf("Primary = %s, want neutral", reading.Primary)
		}
		if reading.Intensity != 0.5 {
			t.Errorf("Intensity = %f, want 0.5", reading.Intensity)
		}
		if reading.Confidence != 0.0 {
			t.Errorf("Confidence = %f, want 0", reading.Confidence)
		}
		if reading.Features != "unavailable" {
			t.Errorf("Features = %q, want unavailable", reading.Features)
		}
		if reading.Source != types.SourceImage {
			t.Errorf("Source = %s, want image", reading.Source)
		}
	})

	t.Run("Audio without audio port", func(t *testing.T) {
		reading := engine.Predict(ctx, Payload{Audio: []byte{0x01}})
		if reading.Source != types.SourceAudio || reading.Confidence != 0.0 {
			t.Errorf("Unexpected degraded reading: %+v", reading)
		}
	})
}

// failingClassifier always errors
type failingClassifier struct{}

func (failingClassifier) ClassifyText(ctx context.Context, text string) (*types.EmotionReading, error) {
	return nil, fmt.Errorf("upstream down")
}

// fixedClassifier returns a canned reading
type fixedClassifier struct {
	reading types.EmotionReading
}

func (f fixedClassifier) ClassifyText(ctx context.Context, text string) (*types.EmotionReading, error) {
	r := f.reading
	return &r, nil
}

func TestPredict_RemoteFallback(t *testing.T) {
	t.Run("Remote failure caps confidence", func(t *testing.T) {
		engine := newTestEngine(failingClassifier{}, nil, nil)
		reading := engine.Predict(context.Background(), Payload{Text: "so happy and joyful and wonderful and great"})

		if reading.Primary != types.EmotionHappy {
			t.Errorf("Fallback primary = %s, want happy", reading.Primary)
		}
		if reading.Confidence > 0.5 {
			t.Errorf("Fallback confidence = %f, want <= 0.5", reading.Confidence)
		}
	})

	t.Run("Remote label normalized", func(t *testing.T) {
		engine := newTestEngine(fixedClassifier{types.EmotionReading{
			Primary:    "excited",
			Intensity:  1.7,
			Confidence: 0.9,
		}}, nil, nil)
		reading := engine.Predict(context.Background(), Payload{Text: "whatever"})

		if reading.Primary != types.EmotionHappy {
			t.Errorf("Primary = %s, want happy (excited alias)", reading.Primary)
		}
		if reading.Intensity != 1.0 {
			t.Errorf("Intensity = %f, want clamped 1.0", reading.Intensity)
		}
	})
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		raw      string
		expected types.EmotionLabel
	}{
		{"happy", types.EmotionHappy},
		{"HAPPY", types.EmotionHappy},
		{" sad ", types.EmotionSad},
		{"excited", types.EmotionHappy},
		{"terrified", types.EmotionFear},
		{"bogus", types.EmotionNeutral},
		{"", types.EmotionNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeLabel(tt.raw); got != tt.expected {
				t.Errorf("NormalizeLabel(%q) = %s, want %s", tt.raw, got, tt.expected)
			}
		})
	}
}

package mapping

import (
	"testing"

	"github.com/yichenlu/sensereader/pkg/types"
)

func TestV1Baseline(t *testing.T) {
	tests := []struct {
		label       types.EmotionLabel
		voice       string
		rate        float64
		hapticName  string
		hapticInt   float64
		hapticFreq  int
		hapticDurMs int
		scentInt    float64
		scentDurS   int
		arKind      string
		arOpacity   float64
		arParticles int
	}{
		{types.EmotionHappy, "cheerful", 1.10, "gentle_pulse", 0.70, 180, 1500, 0.80, 180, "sparkles", 0.70, 50},
		{types.EmotionSad, "melancholic", 0.90, "slow_wave", 0.50, 60, 3000, 0.60, 300, "rain", 0.50, 30},
		{types.EmotionAngry, "intense", 1.20, "sharp_burst", 0.90, 200, 500, 0.50, 120, "flames", 0.80, 60},
		{types.EmotionFear, "tense", 1.05, "tremor", 0.80, 150, 2000, 0.70, 240, "fog", 0.60, 40},
		{types.EmotionSurprise, "energetic", 1.15, "sudden_spike", 1.00, 220, 800, 0.90, 90, "burst", 0.90, 80},
		{types.EmotionDisgust, "normal", 1.00, "recoil_wave", 0.60, 90, 1200, 0.40, 150, "ripple", 0.40, 25},
		{types.EmotionNeutral, "normal", 1.00, "subtle_tap", 0.30, 80, 2000, 0.30, 200, "ambient", 0.30, 20},
	}

	for _, tt := range tests {
		t.Run(string(tt.label), func(t *testing.T) {
			p := Prosody(tt.label)
			if p.VoiceID != tt.voice || p.Rate != tt.rate {
				t.Errorf("Prosody = %+v, want voice %s rate %f", p, tt.voice, tt.rate)
			}

			h := Haptic(tt.label)
			if h.Name != tt.hapticName || h.Intensity != tt.hapticInt ||
				h.FrequencyHz != tt.hapticFreq || h.DurationMs != tt.hapticDurMs {
				t.Errorf("Haptic = %+v", h)
			}

			s := Scent(tt.label)
			if s.Intensity != tt.scentInt || s.DurationSeconds != tt.scentDurS {
				t.Errorf("Scent = %+v", s)
			}

			a := AR(tt.label)
			if a.Kind != tt.arKind || a.Opacity != tt.arOpacity || a.Particles != tt.arParticles {
				t.Errorf("AR = %+v", a)
			}
		})
	}
}

func TestHapticRegions(t *testing.T) {
	tests := []struct {
		label   types.EmotionLabel
		regions []string
	}{
		{types.EmotionHappy, []string{"chest", "shoulders"}},
		{types.EmotionAngry, []string{"arms", "chest", "back"}},
		{types.EmotionNeutral, []string{"chest"}},
	}

	for _, tt := range tests {
		h := Haptic(tt.label)
		if len(h.Regions) != len(tt.regions) {
			t.Errorf("%s: regions = %v, want %v", tt.label, h.Regions, tt.regions)
			continue
		}
		for i := range tt.regions {
			if h.Regions[i] != tt.regions[i] {
				t.Errorf("%s: regions = %v, want %v", tt.label, h.Regions, tt.regions)
			}
		}
	}
}

func TestForReading_Scaling(t *testing.T) {
	t.Run("Scales by intensity", func(t *testing.T) {
		set := ForReading(types.EmotionReading{Primary: types.EmotionHappy, Intensity: 0.5})
		if set.Haptic.Intensity != 0.35 {
			t.Errorf("Haptic intensity = %f, want 0.35", set.Haptic.Intensity)
		}
		if set.Scent.Intensity != 0.4 {
			t.Errorf("Scent intensity = %f, want 0.4", set.Scent.Intensity)
		}
	})

	t.Run("Floors at minimum scale", func(t *testing.T) {
		set := ForReading(types.EmotionReading{Primary: types.EmotionSurprise, Intensity: 0.0})
		want := 1.00 * MinIntensityScale
		if set.Haptic.Intensity != want {
			t.Errorf("Haptic intensity = %f, want %f", set.Haptic.Intensity, want)
		}
	})

	t.Run("Clamps to one", func(t *testing.T) {
		set := ForReading(types.EmotionReading{Primary: types.EmotionSurprise, Intensity: 1.0})
		if set.Haptic.Intensity > 1.0 {
			t.Errorf("Haptic intensity = %f, want <= 1.0", set.Haptic.Intensity)
		}
	})

	t.Run("Unknown label collapses to neutral", func(t *testing.T) {
		set := ForReading(types.EmotionReading{Primary: "bogus", Intensity: 1.0})
		if set.Haptic.Name != "subtle_tap" {
			t.Errorf("Haptic = %s, want subtle_tap", set.Haptic.Name)
		}
	})
}

func TestResolve_Aliases(t *testing.T) {
	t.Run("Excited maps to happy family", func(t *testing.T) {
		set := Resolve("excited", 0.9)
		if set.Haptic.Name != "gentle_pulse" {
			t.Errorf("Haptic = %s, want gentle_pulse", set.Haptic.Name)
		}
		want := 0.70 * 0.9
		if diff := set.Haptic.Intensity - want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("Haptic intensity = %f, want %f", set.Haptic.Intensity, want)
		}
		if set.Haptic.Intensity > 1.0 {
			t.Errorf("Intensity above 1.0")
		}
	})

	t.Run("Unknown label resolves neutral", func(t *testing.T) {
		set := Resolve("perplexed", 0.5)
		if set.Prosody.VoiceID != "normal" {
			t.Errorf("Prosody voice = %s, want normal", set.Prosody.VoiceID)
		}
	})
}

func TestPatternNames(t *testing.T) {
	names := PatternNames()
	if len(names) != 7 {
		t.Fatalf("Expected 7 patterns, got %d", len(names))
	}
	if names[0] != "gentle_pulse" {
		t.Errorf("First pattern = %s, want gentle_pulse (label order)", names[0])
	}

	if _, ok := HapticByName("tremor"); !ok {
		t.Error("tremor should resolve by name")
	}
	if _, ok := HapticByName("nope"); ok {
		t.Error("Unknown name should not resolve")
	}
}

func TestMutationSafety(t *testing.T) {
	h := Haptic(types.EmotionHappy)
	h.Regions[0] = "mutated"

	fresh := Haptic(types.EmotionHappy)
	if fresh.Regions[0] != "chest" {
		t.Error("Table regions leaked through a returned copy")
	}
}

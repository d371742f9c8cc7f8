// Package mapping holds the static emotion-to-modality tables. The v1 values
// are load-bearing: clients and device adapters calibrate against them, so
// changes require a version bump.
package mapping

import (
	"github.com/yichenlu/sensereader/internal/emotion"
	"github.com/yichenlu/sensereader/pkg/types"
)

// Version identifies the active table revision
const Version = "v1"

// MinIntensityScale floors the scaling factor so low-intensity readings still
// produce perceptible output.
const MinIntensityScale = 0.2

var prosodyTable = map[types.EmotionLabel]types.ProsodyPreset{
	types.EmotionHappy:    {VoiceID: "cheerful", Rate: 1.10, Pitch: 1.10, Volume: 1.00},
	types.EmotionSad:      {VoiceID: "melancholic", Rate: 0.90, Pitch: 0.90, Volume: 0.80},
	types.EmotionAngry:    {VoiceID: "intense", Rate: 1.20, Pitch: 1.00, Volume: 1.10},
	types.EmotionFear:     {VoiceID: "tense", Rate: 1.05, Pitch: 1.05, Volume: 1.00},
	types.EmotionSurprise: {VoiceID: "energetic", Rate: 1.15, Pitch: 1.05, Volume: 1.00},
	types.EmotionDisgust:  {VoiceID: "normal", Rate: 1.00, Pitch: 0.95, Volume: 0.95},
	types.EmotionNeutral:  {VoiceID: "normal", Rate: 1.00, Pitch: 1.00, Volume: 1.00},
}

var hapticTable = map[types.EmotionLabel]types.HapticPattern{
	types.EmotionHappy: {
		Name: "gentle_pulse", Intensity: 0.70, FrequencyHz: 180, DurationMs: 1500,
		Regions: []string{"chest", "shoulders"}, Repeat: types.RepeatSpec{Count: 1},
	},
	types.EmotionSad: {
		Name: "slow_wave", Intensity: 0.50, FrequencyHz: 60, DurationMs: 3000,
		Regions: []string{"chest", "back"}, Repeat: types.RepeatSpec{Count: 1},
	},
	types.EmotionAngry: {
		Name: "sharp_burst", Intensity: 0.90, FrequencyHz: 200, DurationMs: 500,
		Regions: []string{"arms", "chest", "back"}, Repeat: types.RepeatSpec{Count: 1},
	},
	types.EmotionFear: {
		Name: "tremor", Intensity: 0.80, FrequencyHz: 150, DurationMs: 2000,
		Regions: []string{"spine", "shoulders"}, Repeat: types.RepeatSpec{Count: 1},
	},
	types.EmotionSurprise: {
		Name: "sudden_spike", Intensity: 1.00, FrequencyHz: 220, DurationMs: 800,
		Regions: []string{"chest", "arms"}, Repeat: types.RepeatSpec{Count: 1},
	},
	types.EmotionDisgust: {
		Name: "recoil_wave", Intensity: 0.60, FrequencyHz: 90, DurationMs: 1200,
		Regions: []string{"stomach", "chest"}, Repeat: types.RepeatSpec{Count: 1},
	},
	types.EmotionNeutral: {
		Name: "subtle_tap", Intensity: 0.30, FrequencyHz: 80, DurationMs: 2000,
		Regions: []string{"chest"}, Repeat: types.RepeatSpec{Count: 1},
	},
}

var scentTable = map[types.EmotionLabel]types.ScentRecipe{
	types.EmotionHappy:    {Name: "citrus_burst", Notes: []string{"orange", "bergamot"}, Intensity: 0.80, DurationSeconds: 180},
	types.EmotionSad:      {Name: "soft_lavender", Notes: []string{"lavender", "chamomile"}, Intensity: 0.60, DurationSeconds: 300},
	types.EmotionAngry:    {Name: "cooling_mint", Notes: []string{"peppermint", "eucalyptus"}, Intensity: 0.50, DurationSeconds: 120},
	types.EmotionFear:     {Name: "grounding_cedar", Notes: []string{"cedarwood", "vetiver"}, Intensity: 0.70, DurationSeconds: 240},
	types.EmotionSurprise: {Name: "sparkling_yuzu", Notes: []string{"yuzu", "ginger"}, Intensity: 0.90, DurationSeconds: 90},
	types.EmotionDisgust:  {Name: "clearing_lemon", Notes: []string{"lemon", "tea tree"}, Intensity: 0.40, DurationSeconds: 150},
	types.EmotionNeutral:  {Name: "ambient_green", Notes: []string{"green tea", "bamboo"}, Intensity: 0.30, DurationSeconds: 200},
}

var arTable = map[types.EmotionLabel]types.AROverlay{
	types.EmotionHappy:    {Kind: "sparkles", ColorRGB: [3]uint8{255, 215, 64}, Opacity: 0.70, Animation: "float", Particles: 50},
	types.EmotionSad:      {Kind: "rain", ColorRGB: [3]uint8{96, 125, 180}, Opacity: 0.50, Animation: "fall", Particles: 30},
	types.EmotionAngry:    {Kind: "flames", ColorRGB: [3]uint8{229, 57, 53}, Opacity: 0.80, Animation: "flicker", Particles: 60},
	types.EmotionFear:     {Kind: "fog", ColorRGB: [3]uint8{120, 120, 140}, Opacity: 0.60, Animation: "drift", Particles: 40},
	types.EmotionSurprise: {Kind: "burst", ColorRGB: [3]uint8{255, 235, 59}, Opacity: 0.90, Animation: "explode", Particles: 80},
	types.EmotionDisgust:  {Kind: "ripple", ColorRGB: [3]uint8{124, 179, 66}, Opacity: 0.40, Animation: "wave", Particles: 25},
	types.EmotionNeutral:  {Kind: "ambient", ColorRGB: [3]uint8{200, 200, 210}, Opacity: 0.30, Animation: "breathe", Particles: 20},
}

// Prosody returns the prosody preset for a label. Unknown labels resolve to
// neutral.
func Prosody(label types.EmotionLabel) types.ProsodyPreset {
	if p, ok := prosodyTable[label]; ok {
		return p
	}
	return prosodyTable[types.EmotionNeutral]
}

// Haptic returns the haptic pattern for a label
func Haptic(label types.EmotionLabel) types.HapticPattern {
	if h, ok := hapticTable[label]; ok {
		return cloneHaptic(h)
	}
	return cloneHaptic(hapticTable[types.EmotionNeutral])
}

// Scent returns the scent recipe for a label
func Scent(label types.EmotionLabel) types.ScentRecipe {
	if s, ok := scentTable[label]; ok {
		return cloneScent(s)
	}
	return cloneScent(scentTable[types.EmotionNeutral])
}

// AR returns the AR overlay for a label
func AR(label types.EmotionLabel) types.AROverlay {
	if a, ok := arTable[label]; ok {
		return a
	}
	return arTable[types.EmotionNeutral]
}

// PatternNames lists the predefined haptic pattern names in label order.
func PatternNames() []string {
	names := make([]string, 0, len(hapticTable))
	for _, label := range types.AllEmotions() {
		names = append(names, hapticTable[label].Name)
	}
	return names
}

// HapticByName resolves a pattern by its name, for callers that address
// patterns directly instead of via an emotion label.
func HapticByName(name string) (types.HapticPattern, bool) {
	for _, h := range hapticTable {
		if h.Name == name {
			return cloneHaptic(h), true
		}
	}
	return types.HapticPattern{}, false
}

// Resolve maps a raw emotion label (possibly off-vocabulary) and a reading
// intensity to the full scaled modality set.
func Resolve(rawLabel string, intensity float64) types.ModalitySet {
	label := emotion.NormalizeLabel(rawLabel)
	return ForReading(types.EmotionReading{Primary: label, Intensity: intensity})
}

// ForReading builds the scaled modality set for a reading. Payload
// intensities are the table value multiplied by max(MinIntensityScale,
// reading.Intensity) and clamped back into each field's range.
func ForReading(reading types.EmotionReading) types.ModalitySet {
	label := reading.Primary
	if !label.IsValid() {
		label = types.EmotionNeutral
	}
	scale := reading.Intensity
	if scale < MinIntensityScale {
		scale = MinIntensityScale
	}

	haptic := Haptic(label)
	haptic.Intensity = types.Clamp01(haptic.Intensity * scale)

	scent := Scent(label)
	scent.Intensity = types.Clamp01(scent.Intensity * scale)

	ar := AR(label)
	ar.Opacity = types.Clamp01(ar.Opacity * scale)

	return types.ModalitySet{
		Prosody: Prosody(label),
		Haptic:  haptic,
		Scent:   scent,
		AR:      ar,
	}
}

func cloneHaptic(h types.HapticPattern) types.HapticPattern {
	out := h
	out.Regions = append([]string(nil), h.Regions...)
	return out
}

func cloneScent(s types.ScentRecipe) types.ScentRecipe {
	out := s
	out.Notes = append([]string(nil), s.Notes...)
	return out
}

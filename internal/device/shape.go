package device

import (
	"github.com/yichenlu/sensereader/internal/mapping"
	"github.com/yichenlu/sensereader/pkg/types"
)

// watchNudgeDurationMs is the fixed length of the scalar haptic nudge sent
// to watches instead of a full pattern.
const watchNudgeDurationMs = 300

// ShapePayload builds the subset of the modality set a device can consume.
// A device only ever receives payload fields matching its declared
// capabilities. Returns false when nothing in the set is consumable.
func ShapePayload(desc types.DeviceDescriptor, reading types.EmotionReading, set types.ModalitySet, text string) (types.DevicePayload, bool) {
	payload := types.DevicePayload{
		Emotion:   reading.Primary,
		Intensity: types.Clamp01(reading.Intensity),
	}
	shaped := false

	if desc.HasCapability(types.CapHaptic) {
		if desc.Class == types.DeviceWatch {
			// Watches get a scalar-intensity nudge, not a spatial pattern.
			payload.Haptic = &types.HapticPattern{
				Name:        "nudge",
				Intensity:   set.Haptic.Intensity,
				FrequencyHz: set.Haptic.FrequencyHz,
				DurationMs:  watchNudgeDurationMs,
				Repeat:      types.RepeatSpec{Count: 1},
			}
		} else {
			haptic := set.Haptic
			payload.Haptic = &haptic
		}
		shaped = true
	}

	if desc.HasCapability(types.CapScent) {
		scent := set.Scent
		payload.Scent = &scent
		shaped = true
	}

	if desc.HasCapability(types.CapAR) {
		ar := set.AR
		payload.AR = &ar
		if desc.HasCapability(types.CapDisplay) {
			payload.Text = text
		}
		shaped = true
	}

	if desc.HasCapability(types.CapTTS) {
		prosody := set.Prosody
		payload.Prosody = &prosody
		payload.Text = text
		shaped = true
	}

	if desc.HasCapability(types.CapDisplay) && payload.AR == nil && payload.Prosody == nil {
		payload.Text = text
		shaped = true
	}

	return payload, shaped
}

// ShapeForReading is ShapePayload with the modality set resolved from the
// mapping tables.
func ShapeForReading(desc types.DeviceDescriptor, reading types.EmotionReading, text string) (types.DevicePayload, bool) {
	return ShapePayload(desc, reading, mapping.ForReading(reading), text)
}

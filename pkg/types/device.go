package types

import "time"

// DeviceClass identifies the kind of output hardware
type DeviceClass string

const (
	DeviceWatch          DeviceClass = "watch"
	DeviceARGlasses      DeviceClass = "ar_glasses"
	DeviceFullBodyHaptic DeviceClass = "full_body_haptic"
	DeviceHapticVest     DeviceClass = "haptic_vest"
	DeviceScent          DeviceClass = "scent"
	DeviceTaste          DeviceClass = "taste"
	DeviceGenericTTS     DeviceClass = "generic_tts"
	DeviceGenericDisplay DeviceClass = "generic_display"
)

// Capability is a typed declaration of what a device can render
type Capability string

const (
	CapHaptic  Capability = "haptic"
	CapScent   Capability = "scent"
	CapAR      Capability = "ar"
	CapTTS     Capability = "tts"
	CapDisplay Capability = "display"
)

// DefaultCapabilities returns the capability set implied by a device class.
func DefaultCapabilities(class DeviceClass) []Capability {
	switch class {
	case DeviceWatch:
		return []Capability{CapHaptic, CapDisplay}
	case DeviceARGlasses:
		return []Capability{CapAR, CapDisplay}
	case DeviceFullBodyHaptic, DeviceHapticVest:
		return []Capability{CapHaptic}
	case DeviceScent, DeviceTaste:
		return []Capability{CapScent}
	case DeviceGenericTTS:
		return []Capability{CapTTS}
	case DeviceGenericDisplay:
		return []Capability{CapDisplay}
	}
	return nil
}

// DeviceStatus tracks device liveness
type DeviceStatus string

const (
	DeviceOnline   DeviceStatus = "online"
	DeviceDegraded DeviceStatus = "degraded"
	DeviceOffline  DeviceStatus = "offline"
)

// DeviceDescriptor describes one connected output device
type DeviceDescriptor struct {
	ID           string       `json:"id"`
	Class        DeviceClass  `json:"class"`
	Capabilities []Capability `json:"capabilities"`
	Addr         string       `json:"addr,omitempty"`
	Status       DeviceStatus `json:"status"`
	LastSeen     time.Time    `json:"last_seen"`
}

// HasCapability reports whether the descriptor declares cap.
func (d *DeviceDescriptor) HasCapability(cap Capability) bool {
	for _, c := range d.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// DispatchStatus is the terminal outcome of one device dispatch
type DispatchStatus string

const (
	DispatchSuccess        DispatchStatus = "success"
	DispatchRetriedSuccess DispatchStatus = "retried_success"
	DispatchFailed         DispatchStatus = "failed"
	DispatchSkipped        DispatchStatus = "skipped_incompatible"
)

// DispatchResult records the outcome of sending one payload to one device
type DispatchResult struct {
	Status    DispatchStatus `json:"status"`
	Attempts  int            `json:"attempts"`
	Error     string         `json:"error,omitempty"`
	LatencyMs int64          `json:"latency_ms"`
}

// DevicePayload is the capability-shaped content handed to a device adapter.
// Only the fields matching the device's capabilities are populated.
type DevicePayload struct {
	Emotion        EmotionLabel   `json:"emotion"`
	Intensity      float64        `json:"intensity"`
	PlanGeneration uint64         `json:"plan_generation,omitempty"`
	Haptic         *HapticPattern `json:"haptic,omitempty"`
	Scent          *ScentRecipe   `json:"scent,omitempty"`
	AR             *AROverlay     `json:"ar,omitempty"`
	Prosody        *ProsodyPreset `json:"prosody,omitempty"`
	Text           string         `json:"text,omitempty"`
}

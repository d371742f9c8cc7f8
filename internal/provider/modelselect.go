package provider

import (
	"fmt"

	"github.com/yichenlu/sensereader/pkg/types"
)

// ModelChoice is the outcome of model selection for a client device
type ModelChoice struct {
	Chosen   string   `json:"chosen"`
	Fallback string   `json:"fallback"`
	Reasons  []string `json:"reasons"`
}

// Model tiers, largest first. Edge devices step down this ladder.
const (
	modelFull   = "emotion-full"
	modelDistil = "emotion-distil"
	modelTiny   = "emotion-tiny"
)

// SelectModel picks a classifier model tier from the client's device class,
// memory budget and quality preference. The fallback is always one tier
// below the choice.
func SelectModel(deviceClass string, memoryMB int, preferQuality bool) ModelChoice {
	reasons := make([]string, 0, 3)

	tier := modelDistil
	switch {
	case memoryMB <= 0:
		reasons = append(reasons, "memory unknown, assuming mid-tier budget")
	case memoryMB >= 8192:
		tier = modelFull
		reasons = append(reasons, fmt.Sprintf("%d MB supports the full model", memoryMB))
	case memoryMB >= 2048:
		tier = modelDistil
		reasons = append(reasons, fmt.Sprintf("%d MB fits the distilled model", memoryMB))
	default:
		tier = modelTiny
		reasons = append(reasons, fmt.Sprintf("%d MB restricts to the tiny model", memoryMB))
	}

	switch types.DeviceClass(deviceClass) {
	case types.DeviceWatch, types.DeviceARGlasses:
		if tier == modelFull {
			tier = modelDistil
		}
		reasons = append(reasons, "edge device class caps the tier at distil")
	}

	if preferQuality && tier == modelTiny && memoryMB >= 1024 {
		tier = modelDistil
		reasons = append(reasons, "quality preference promotes one tier")
	}

	return ModelChoice{
		Chosen:   tier,
		Fallback: fallbackFor(tier),
		Reasons:  reasons,
	}
}

func fallbackFor(tier string) string {
	switch tier {
	case modelFull:
		return modelDistil
	case modelDistil:
		return modelTiny
	}
	// Below tiny there is only the in-process keyword lexicon.
	return "lexicon"
}

package api

import (
	"net/http"

	"github.com/yichenlu/sensereader/internal/emotion"
	"github.com/yichenlu/sensereader/internal/gateway"
	"github.com/yichenlu/sensereader/internal/mapping"
	"github.com/yichenlu/sensereader/internal/segmenter"
	"github.com/yichenlu/sensereader/pkg/errs"
	"github.com/yichenlu/sensereader/pkg/types"
)

// SegmentText handles POST /segment_text
func (h *Handler) SegmentText(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Text          string `json:"text"`
		Strategy      string `json:"strategy,omitempty"`
		MaxChunkChars int    `json:"max_chunk_chars,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}
	if req.Text == "" {
		gateway.WriteError(w,
			errs.New(errs.InvalidArgument, "text is required"),
			gateway.TraceID(r.Context()))
		return
	}

	strategy := parseStrategy(req.Strategy)
	segments := h.segmenter.Segment(req.Text, segmenter.Options{
		Strategy:      strategy,
		MaxChunkChars: req.MaxChunkChars,
		ReadingWPM:    h.segCfg.ReadingWPM,
	})

	totalLength := 0
	totalHighlights := 0
	for _, seg := range segments {
		totalLength += len([]rune(seg.Text))
		totalHighlights += len(seg.Highlights)
	}

	gateway.WriteJSON(w, map[string]any{
		"segments":       segments,
		"total_segments": len(segments),
		"total_length":   totalLength,
		"strategy_used":  strategy,
		"metadata": map[string]any{
			"total_highlights": totalHighlights,
		},
	}, http.StatusOK)
}

// GenerateHaptics handles POST /generate_haptics. The pattern comes from an
// explicit pattern name, an emotion label (off-vocabulary labels collapse
// through the alias table), or the text's predicted emotion.
func (h *Handler) GenerateHaptics(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Text        string  `json:"text,omitempty"`
		Emotion     string  `json:"emotion,omitempty"`
		Intensity   float64 `json:"intensity,omitempty"`
		PatternName string  `json:"pattern_name,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	intensity := req.Intensity
	if intensity <= 0 {
		intensity = 0.7
	}
	intensity = types.Clamp01(intensity)

	var pattern types.HapticPattern
	switch {
	case req.PatternName != "":
		p, ok := mapping.HapticByName(req.PatternName)
		if !ok {
			gateway.WriteError(w,
				errs.Newf(errs.NotFound, "unknown haptic pattern: %s", req.PatternName),
				gateway.TraceID(r.Context()))
			return
		}
		p.Intensity = types.Clamp01(p.Intensity * scaleFor(intensity))
		pattern = p
	case req.Emotion != "":
		pattern = mapping.Resolve(req.Emotion, intensity).Haptic
	case req.Text != "":
		reading := h.emotion.Predict(r.Context(), emotion.Payload{Text: req.Text})
		if req.Intensity > 0 {
			reading.Intensity = intensity
		}
		pattern = mapping.ForReading(reading).Haptic
	default:
		gateway.WriteError(w,
			errs.New(errs.InvalidArgument, "one of text, emotion or pattern_name is required"),
			gateway.TraceID(r.Context()))
		return
	}

	gateway.WriteJSON(w, pattern, http.StatusOK)
}

// HapticPatterns handles GET /haptic_patterns
func (h *Handler) HapticPatterns(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	gateway.WriteJSON(w, map[string]any{
		"patterns": mapping.PatternNames(),
		"version":  mapping.Version,
	}, http.StatusOK)
}

func scaleFor(intensity float64) float64 {
	if intensity < mapping.MinIntensityScale {
		return mapping.MinIntensityScale
	}
	return intensity
}

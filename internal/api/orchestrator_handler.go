package api

import (
	"net/http"

	"github.com/yichenlu/sensereader/internal/gateway"
	"github.com/yichenlu/sensereader/pkg/errs"
	"github.com/yichenlu/sensereader/pkg/types"
)

// playRequest is the body of POST /orchestrator/play
type playRequest struct {
	Text     string `json:"text"`
	UserID   string `json:"user_id,omitempty"`
	Strategy string `json:"strategy,omitempty"`
}

// playResponse mirrors the playback plan for clients
type playResponse struct {
	SessionID   string       `json:"session_id"`
	PlaybackURL string       `json:"playback_url"`
	Metadata    planMetadata `json:"metadata"`
}

type planMetadata struct {
	Segments      []*types.Segment     `json:"segments"`
	Emotion       types.EmotionReading `json:"emotion"`
	Prosody       types.ProsodyPreset  `json:"prosody"`
	HapticEvents  []types.TimedEvent   `json:"haptic_events"`
	ScentEvents   []types.TimedEvent   `json:"scent_events"`
	AREvents      []types.TimedEvent   `json:"ar_events"`
	TotalDuration float64              `json:"total_duration"`
}

// Play handles POST /orchestrator/play
func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req playRequest
	if err := decode(r, &req); err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	result, err := h.orch.Play(r.Context(), req.Text, req.UserID, parseStrategy(req.Strategy))
	if err != nil {
		// Subscribers hear about orchestration failures without the push
		// channel ever closing.
		h.sync.Hub().NotifyError(string(errs.KindOf(err)), "play failed")
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	gateway.WriteJSON(w, playResponse{
		SessionID:   result.Plan.SessionID,
		PlaybackURL: result.PlaybackURL,
		Metadata: planMetadata{
			Segments:      result.Plan.Segments,
			Emotion:       result.Plan.Emotion,
			Prosody:       result.Plan.Prosody,
			HapticEvents:  result.Plan.HapticEvents,
			ScentEvents:   result.Plan.ScentEvents,
			AREvents:      result.Plan.AREvents,
			TotalDuration: result.Plan.TotalDuration,
		},
	}, http.StatusOK)
}

// Pause handles POST /orchestrator/pause
func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := decode(r, &req); err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	sess, err := h.orch.Pause(req.SessionID)
	if err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	gateway.WriteJSON(w, map[string]any{
		"status":        "paused",
		"current_index": sess.CurrentIndex,
		"playing":       false,
	}, http.StatusOK)
}

// Seek handles POST /orchestrator/seek
func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		SessionID    string `json:"session_id"`
		SegmentIndex int    `json:"segment_index"`
	}
	if err := decode(r, &req); err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	sess, err := h.orch.Seek(r.Context(), req.SessionID, req.SegmentIndex)
	if err != nil {
		if errs.IsKind(err, errs.InvalidArgument) {
			gateway.WriteJSON(w, map[string]any{"error": "invalid_segment"}, http.StatusBadRequest)
			return
		}
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	seg := sess.Segments[sess.CurrentIndex]
	gateway.WriteJSON(w, map[string]any{
		"status":           "seeked",
		"current_index":    sess.CurrentIndex,
		"segment_text":     seg.Text,
		"segment_duration": seg.EstDuration,
	}, http.StatusOK)
}

// Summary handles GET /orchestrator/summary?session_id=...
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		gateway.WriteError(w,
			errs.New(errs.InvalidArgument, "session_id is required"),
			gateway.TraceID(r.Context()))
		return
	}

	summary, err := h.orch.Summary(sessionID)
	if err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	gateway.WriteJSON(w, map[string]any{
		"summary":          summary.Summary,
		"total_segments":   summary.TotalSegments,
		"total_highlights": summary.TotalHighlights,
		"current_position": summary.CurrentIndex,
		"playing":          summary.Playing,
		"emotion":          summary.LastEmotion,
	}, http.StatusOK)
}

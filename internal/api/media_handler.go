package api

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/yichenlu/sensereader/internal/emotion"
	"github.com/yichenlu/sensereader/internal/gateway"
	"github.com/yichenlu/sensereader/internal/mapping"
	"github.com/yichenlu/sensereader/internal/provider"
	"github.com/yichenlu/sensereader/pkg/errs"
)

// DetectEmotion handles POST /api/detect-emotion
func (h *Handler) DetectEmotion(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		ImageBase64 string `json:"image_base64,omitempty"`
		AudioBase64 string `json:"audio_base64,omitempty"`
		Text        string `json:"text,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	payload := emotion.Payload{Text: req.Text}
	if req.ImageBase64 != "" {
		image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			gateway.WriteError(w,
				errs.New(errs.InvalidArgument, "image_base64 is not valid base64"),
				gateway.TraceID(r.Context()))
			return
		}
		payload = emotion.Payload{Image: image}
	} else if req.AudioBase64 != "" {
		audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			gateway.WriteError(w,
				errs.New(errs.InvalidArgument, "audio_base64 is not valid base64"),
				gateway.TraceID(r.Context()))
			return
		}
		payload = emotion.Payload{Audio: audio}
	} else if req.Text == "" {
		gateway.WriteError(w,
			errs.New(errs.InvalidArgument, "one of text, image_base64 or audio_base64 is required"),
			gateway.TraceID(r.Context()))
		return
	}

	gateway.WriteJSON(w, h.emotion.Predict(r.Context(), payload), http.StatusOK)
}

// TTS handles POST /api/tts
func (h *Handler) TTS(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Text    string  `json:"text"`
		Voice   string  `json:"voice,omitempty"`
		Emotion string  `json:"emotion,omitempty"`
		Speed   float64 `json:"speed,omitempty"`
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

	tts := h.providers.FirstTTS()
	if tts == nil {
		gateway.WriteError(w,
			errs.New(errs.UpstreamUnavailable, "no TTS provider configured"),
			gateway.TraceID(r.Context()))
		return
	}

	label := emotion.NormalizeLabel(req.Emotion)
	resp, err := tts.Synthesize(r.Context(), provider.TTSRequest{
		Text:    req.Text,
		VoiceID: req.Voice,
		Emotion: label,
		Prosody: mapping.Prosody(label),
		Speed:   req.Speed,
	})
	if err != nil {
		gateway.WriteError(w,
			errs.Wrap(errs.UpstreamUnavailable, "TTS synthesis failed", err),
			gateway.TraceID(r.Context()))
		return
	}

	out := map[string]any{
		"duration": resp.DurationSeconds,
		"format":   resp.Format,
		"provider": resp.Provider,
		"voice":    resp.Voice,
	}
	if resp.AudioURL != "" {
		out["audio_url"] = resp.AudioURL
	} else {
		out["audio_base64"] = resp.AudioBase64
	}
	gateway.WriteJSON(w, out, http.StatusOK)
}

// STT handles POST /api/stt
func (h *Handler) STT(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		AudioBase64 string `json:"audio_base64"`
		Language    string `json:"language,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}
	if req.AudioBase64 == "" {
		gateway.WriteError(w,
			errs.New(errs.InvalidArgument, "audio_base64 is required"),
			gateway.TraceID(r.Context()))
		return
	}

	audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
	if err != nil {
		gateway.WriteError(w,
			errs.New(errs.InvalidArgument, "audio_base64 is not valid base64"),
			gateway.TraceID(r.Context()))
		return
	}

	stt := h.providers.FirstSTT()
	if stt == nil {
		gateway.WriteError(w,
			errs.New(errs.UpstreamUnavailable, "no STT provider configured"),
			gateway.TraceID(r.Context()))
		return
	}

	resp, err := stt.Transcribe(r.Context(), provider.STTRequest{
		Audio:    audio,
		Language: req.Language,
	})
	if err != nil {
		gateway.WriteError(w,
			errs.Wrap(errs.UpstreamUnavailable, "transcription failed", err),
			gateway.TraceID(r.Context()))
		return
	}

	gateway.WriteJSON(w, resp, http.StatusOK)
}

// Voices handles GET /api/v1/voices?provider=...
func (h *Handler) Voices(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	name := r.URL.Query().Get("provider")
	var tts provider.TTSProvider
	if name != "" {
		p, err := h.providers.GetTTS(name)
		if err != nil {
			gateway.WriteError(w,
				errs.Newf(errs.NotFound, "TTS provider not found: %s", name),
				gateway.TraceID(r.Context()))
			return
		}
		tts = p
	} else {
		tts = h.providers.FirstTTS()
	}
	if tts == nil {
		gateway.WriteJSON(w, map[string]any{"voices": []provider.Voice{}}, http.StatusOK)
		return
	}

	voices, err := tts.ListVoices(r.Context())
	if err != nil {
		gateway.WriteError(w,
			errs.Wrap(errs.UpstreamUnavailable, "failed to list voices", err),
			gateway.TraceID(r.Context()))
		return
	}

	gateway.WriteJSON(w, map[string]any{
		"provider": tts.Name(),
		"voices":   voices,
	}, http.StatusOK)
}

// ModelSelect handles GET /ai/model-select
func (h *Handler) ModelSelect(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	memoryMB := 0
	if raw := q.Get("memory_mb"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			gateway.WriteError(w,
				errs.New(errs.InvalidArgument, "memory_mb must be an integer"),
				gateway.TraceID(r.Context()))
			return
		}
		memoryMB = parsed
	}
	preferQuality := q.Get("prefer_quality") == "true" || q.Get("prefer_quality") == "1"

	choice := provider.SelectModel(q.Get("device"), memoryMB, preferQuality)
	gateway.WriteJSON(w, choice, http.StatusOK)
}

// Providers handles GET /api/v1/providers
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	gateway.WriteJSON(w, map[string]any{
		"tts":         h.providers.ListTTS(),
		"stt":         h.providers.ListSTT(),
		"classifiers": h.providers.ListClassifiers(),
	}, http.StatusOK)
}

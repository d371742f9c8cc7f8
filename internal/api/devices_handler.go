package api

import (
	"net/http"
	"time"

	"github.com/yichenlu/sensereader/internal/device"
	"github.com/yichenlu/sensereader/internal/emotion"
	"github.com/yichenlu/sensereader/internal/gateway"
	"github.com/yichenlu/sensereader/internal/runtime"
	"github.com/yichenlu/sensereader/pkg/errs"
	"github.com/yichenlu/sensereader/pkg/types"
)

// portFor picks the adapter for a registering device: HTTP when it
// advertises an address, loopback otherwise.
func (h *Handler) portFor(desc types.DeviceDescriptor) device.Port {
	if desc.Addr != "" {
		conn := runtime.NewHTTPConnector("device:"+desc.ID, runtime.DefaultConnectorSettings())
		return device.NewHTTPPort(desc.ID, desc.Addr, conn)
	}
	return device.NewLoopbackPort(desc.ID, h.log)
}

// BroadcastToDevices handles POST /api/broadcast-to-devices
func (h *Handler) BroadcastToDevices(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Emotion   string            `json:"emotion"`
		Intensity float64           `json:"intensity"`
		Devices   []string          `json:"devices,omitempty"`
		Content   map[string]string `json:"content,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	label := emotion.NormalizeLabel(req.Emotion)
	reading := types.EmotionReading{
		Primary:    label,
		Intensity:  types.Clamp01(req.Intensity),
		Source:     types.SourceText,
		Confidence: 1.0,
		Timestamp:  time.Now().Unix(),
	}

	results := h.orch.Broadcast(r.Context(), reading, req.Devices, req.Content["text"])

	gateway.WriteJSON(w, map[string]any{
		"devices":   results,
		"emotion":   label,
		"intensity": reading.Intensity,
		"timestamp": reading.Timestamp,
	}, http.StatusOK)
}

// RegisterDevice handles POST /api/v1/devices/register. Registered devices
// get a loopback port unless they advertise an addr, in which case payloads
// POST to it.
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var desc types.DeviceDescriptor
	if err := decode(r, &desc); err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}
	if desc.ID == "" {
		gateway.WriteError(w,
			errs.New(errs.InvalidArgument, "device id is required"),
			gateway.TraceID(r.Context()))
		return
	}

	port := h.portFor(desc)
	if err := h.registry.Register(desc, port); err != nil {
		gateway.WriteError(w,
			errs.Wrap(errs.InvalidArgument, "registration rejected", err),
			gateway.TraceID(r.Context()))
		return
	}

	registered, _, _ := h.registry.Get(desc.ID)
	gateway.WriteJSON(w, registered, http.StatusOK)
}

// HeartbeatDevice handles POST /api/v1/devices/heartbeat
func (h *Handler) HeartbeatDevice(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		DeviceID string `json:"device_id"`
	}
	if err := decode(r, &req); err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	if err := h.registry.Heartbeat(req.DeviceID); err != nil {
		gateway.WriteError(w,
			errs.Newf(errs.NotFound, "device not found: %s", req.DeviceID),
			gateway.TraceID(r.Context()))
		return
	}

	gateway.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// ListDevices handles GET /api/v1/devices
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	gateway.WriteJSON(w, map[string]any{"devices": h.registry.Snapshot()}, http.StatusOK)
}

package api

import (
	"net/http"

	"github.com/yichenlu/sensereader/internal/gateway"
	"github.com/yichenlu/sensereader/pkg/errs"
)

// SyncManifest handles GET /sync/manifest with If-None-Match support
func (h *Handler) SyncManifest(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	manifest, notModified, err := h.sync.GetManifest(r.Context(), r.Header.Get("If-None-Match"))
	if err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	w.Header().Set("ETag", manifest.ETag)
	if notModified {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	gateway.WriteJSON(w, manifest, http.StatusOK)
}

// SyncFile handles GET /sync/file?path=...
func (h *Handler) SyncFile(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		gateway.WriteError(w,
			errs.New(errs.InvalidArgument, "path is required"),
			gateway.TraceID(r.Context()))
		return
	}

	payload, err := h.sync.GetFile(r.Context(), path)
	if err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	gateway.WriteJSON(w, payload, http.StatusOK)
}

// SyncWS handles WS /ws/sync
func (h *Handler) SyncWS(w http.ResponseWriter, r *http.Request) {
	manifest, _, err := h.sync.GetManifest(r.Context(), "")
	if err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}
	h.sync.Hub().ServeWS(w, r, manifest.ETag, manifest.FileCount)
}

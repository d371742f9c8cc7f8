package api

import (
	"net/http"
	"strconv"

	"github.com/yichenlu/sensereader/internal/gateway"
	"github.com/yichenlu/sensereader/pkg/errs"
	"github.com/yichenlu/sensereader/pkg/types"
)

// RAGQuery handles GET /rag/query?q=...&top_k=...
func (h *Handler) RAGQuery(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query().Get("q")
	if q == "" {
		gateway.WriteError(w,
			errs.New(errs.InvalidArgument, "q is required"),
			gateway.TraceID(r.Context()))
		return
	}

	topK := 0
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			gateway.WriteError(w,
				errs.New(errs.InvalidArgument, "top_k must be an integer"),
				gateway.TraceID(r.Context()))
			return
		}
		topK = parsed
	}

	results := h.memory.QueryDocs(r.Context(), q, topK)
	gateway.WriteJSON(w, map[string]any{
		"results": results,
		"count":   len(results),
	}, http.StatusOK)
}

// RAGUpsert handles POST /rag/upsert
func (h *Handler) RAGUpsert(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		Text  string            `json:"text"`
		DocID string            `json:"doc_id,omitempty"`
		Meta  map[string]string `json:"meta,omitempty"`
	}
	if err := decode(r, &req); err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	doc, err := h.memory.UpsertDoc(r.Context(), req.Text, req.DocID, req.Meta)
	if err != nil {
		gateway.WriteError(w,
			errs.Wrap(errs.InvalidArgument, "upsert rejected", err),
			gateway.TraceID(r.Context()))
		return
	}

	gateway.WriteJSON(w, doc, http.StatusOK)
}

// RAGList handles GET /rag/list
func (h *Handler) RAGList(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	docs := h.memory.ListDocs(r.Context())
	gateway.WriteJSON(w, map[string]any{
		"docs":  docs,
		"count": len(docs),
	}, http.StatusOK)
}

// RAGDelete handles DELETE /rag/delete?doc_id=...
func (h *Handler) RAGDelete(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}

	docID := r.URL.Query().Get("doc_id")
	if docID == "" {
		gateway.WriteError(w,
			errs.New(errs.InvalidArgument, "doc_id is required"),
			gateway.TraceID(r.Context()))
		return
	}

	if err := h.memory.DeleteDoc(r.Context(), docID); err != nil {
		gateway.WriteError(w,
			errs.Wrap(errs.Internal, "delete failed", err),
			gateway.TraceID(r.Context()))
		return
	}

	gateway.WriteJSON(w, map[string]string{"status": "deleted", "doc_id": docID}, http.StatusOK)
}

// GetPreferences handles GET /api/v1/preferences?user_id=...
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		gateway.WriteError(w,
			errs.New(errs.InvalidArgument, "user_id is required"),
			gateway.TraceID(r.Context()))
		return
	}

	gateway.WriteJSON(w, h.memory.GetPreferences(r.Context(), userID), http.StatusOK)
}

// SetPreferences handles POST /api/v1/preferences
func (h *Handler) SetPreferences(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		UserID string         `json:"user_id"`
		Patch  map[string]any `json:"patch"`
	}
	if err := decode(r, &req); err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	prefs, err := h.memory.SetPreferences(r.Context(), req.UserID, req.Patch)
	if err != nil {
		gateway.WriteError(w,
			errs.Wrap(errs.InvalidArgument, "preferences rejected", err),
			gateway.TraceID(r.Context()))
		return
	}

	gateway.WriteJSON(w, prefs, http.StatusOK)
}

// AddBookmark handles POST /api/v1/bookmarks
func (h *Handler) AddBookmark(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var bm types.Bookmark
	if err := decode(r, &bm); err != nil {
		gateway.WriteError(w, err, gateway.TraceID(r.Context()))
		return
	}

	if err := h.memory.AddBookmark(r.Context(), bm); err != nil {
		gateway.WriteError(w,
			errs.Wrap(errs.InvalidArgument, "bookmark rejected", err),
			gateway.TraceID(r.Context()))
		return
	}

	gateway.WriteJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// ListBookmarks handles GET /api/v1/bookmarks?user_id=...
func (h *Handler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		gateway.WriteError(w,
			errs.New(errs.InvalidArgument, "user_id is required"),
			gateway.TraceID(r.Context()))
		return
	}

	bookmarks := h.memory.ListBookmarks(r.Context(), userID)
	gateway.WriteJSON(w, map[string]any{
		"bookmarks": bookmarks,
		"count":     len(bookmarks),
	}, http.StatusOK)
}

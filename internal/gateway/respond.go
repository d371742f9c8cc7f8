package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/yichenlu/sensereader/pkg/errs"
)

// WriteJSON writes v as a JSON response
func WriteJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorBody is the wire shape of every error response
type errorBody struct {
	Error struct {
		Kind    errs.Kind `json:"kind"`
		Message string    `json:"message"`
		Hint    string    `json:"hint,omitempty"`
		TraceID string    `json:"trace_id"`
	} `json:"error"`
}

// WriteError maps an error onto the taxonomy and writes it. Internal errors
// are surfaced as an opaque 500 without leaking detail.
func WriteError(w http.ResponseWriter, err error, traceID string) {
	kind := errs.KindOf(err)

	var body errorBody
	body.Error.Kind = kind
	body.Error.TraceID = traceID

	var e *errs.Error
	if kind != errs.Internal && errors.As(err, &e) {
		body.Error.Message = e.Message
		body.Error.Hint = e.Hint
	} else {
		body.Error.Message = "internal error"
	}

	WriteJSON(w, body, errs.HTTPStatus(kind))
}

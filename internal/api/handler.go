// Package api translates HTTP requests into the internal contracts. No
// business logic lives here; handlers decode, delegate and encode.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/yichenlu/sensereader/internal/device"
	"github.com/yichenlu/sensereader/internal/emotion"
	"github.com/yichenlu/sensereader/internal/gateway"
	"github.com/yichenlu/sensereader/internal/memory"
	"github.com/yichenlu/sensereader/internal/orchestrator"
	"github.com/yichenlu/sensereader/internal/provider"
	"github.com/yichenlu/sensereader/internal/segmenter"
	"github.com/yichenlu/sensereader/internal/syncsvc"
	"github.com/yichenlu/sensereader/pkg/errs"
	"github.com/yichenlu/sensereader/pkg/types"
)

// Handler carries the shared application context for every route
type Handler struct {
	orch      *orchestrator.Orchestrator
	segmenter *segmenter.Service
	emotion   *emotion.Engine
	memory    *memory.Store
	providers *provider.Registry
	sync      *syncsvc.Service
	registry  *device.Registry
	segCfg    types.OrchestratorConfig
	log       zerolog.Logger
}

// NewHandler creates the API handler
func NewHandler(
	orch *orchestrator.Orchestrator,
	seg *segmenter.Service,
	eng *emotion.Engine,
	mem *memory.Store,
	providers *provider.Registry,
	syncSvc *syncsvc.Service,
	registry *device.Registry,
	segCfg types.OrchestratorConfig,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		orch:      orch,
		segmenter: seg,
		emotion:   eng,
		memory:    mem,
		providers: providers,
		sync:      syncSvc,
		registry:  registry,
		segCfg:    segCfg,
		log:       log.With().Str("component", "api").Logger(),
	}
}

// decode parses a JSON request body into v
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Wrap(errs.InvalidArgument, "malformed JSON body", err)
	}
	return nil
}

// requireMethod rejects requests with the wrong verb
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		gateway.WriteError(w,
			errs.Newf(errs.InvalidArgument, "method %s not allowed", r.Method),
			gateway.TraceID(r.Context()))
		return false
	}
	return true
}

// parseStrategy accepts the documented strategy names plus their common
// plural aliases.
func parseStrategy(raw string) types.SegmentStrategy {
	switch raw {
	case "sentence", "sentences":
		return types.StrategySentence
	case "paragraph", "paragraphs":
		return types.StrategyParagraph
	default:
		return types.StrategyAdaptive
	}
}

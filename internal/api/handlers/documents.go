package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
	"github.com/nightingaleproject/go-vrdr/internal/observability/metrics"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/document"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/record"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/valueset"
)

// DocumentHandler assembles documents without persisting them.
type DocumentHandler struct {
	builder *record.Builder
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewDocumentHandler creates a new handler
func NewDocumentHandler(builder *record.Builder, m *metrics.Metrics, logger *zap.Logger) *DocumentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentHandler{builder: builder, metrics: m, logger: logger}
}

// Routes returns the handler routes
func (h *DocumentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Assemble)
	return r
}

// Assemble handles POST /documents with document options as the body.
func (h *DocumentHandler) Assemble(w http.ResponseWriter, r *http.Request) {
	var opts document.Options
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil {
		var uc *valueset.UnrecognizedCodeError
		if errors.As(err, &uc) {
			h.metrics.ObserveBuild(time.Now(), reasonUnrecognizedValue)
			writeOutcome(w, http.StatusUnprocessableEntity, r4.NewErrorOutcome("code-invalid", err.Error()))
			return
		}
		writeOutcome(w, http.StatusBadRequest, r4.NewErrorOutcome("structure", "invalid request body: "+err.Error()))
		return
	}

	start := time.Now()
	bundle, err := h.builder.Assemble(&opts)
	h.metrics.ObserveBuild(start, failureReason(err))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeFHIR(w, http.StatusOK, bundle)
}

// ValueSets handles GET /valuesets
func ValueSets(w http.ResponseWriter, r *http.Request) {
	writeFHIR(w, http.StatusOK, valueset.CatalogBundle())
}

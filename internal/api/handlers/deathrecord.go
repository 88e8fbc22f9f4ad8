// Package handlers provides HTTP handlers for the death record API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/nightingaleproject/go-vrdr/internal/api/middleware"
	"github.com/nightingaleproject/go-vrdr/internal/domain/deathrecord"
	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
	"github.com/nightingaleproject/go-vrdr/internal/observability/metrics"
	"github.com/nightingaleproject/go-vrdr/internal/observability/tracing"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/record"
)

// Store loads and saves death records.
type Store interface {
	Load(ctx context.Context, id string) (*deathrecord.DeathRecord, error)
	Save(ctx context.Context, agg *deathrecord.DeathRecord) error
}

// DeathRecordHandler handles death record endpoints
type DeathRecordHandler struct {
	store   Store
	builder *record.Builder
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewDeathRecordHandler creates a new handler
func NewDeathRecordHandler(store Store, builder *record.Builder, m *metrics.Metrics, logger *zap.Logger) *DeathRecordHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeathRecordHandler{
		store:   store,
		builder: builder,
		metrics: m,
		logger:  logger,
	}
}

// Routes returns the handler routes
func (h *DeathRecordHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Redraft)
	r.Get("/{id}/bundle", h.GetBundle)
	r.Post("/{id}/submit", h.Submit)
	return r
}

// DraftRequest is the body of a create or redraft request
type DraftRequest struct {
	Record   *record.Record `json:"record"`
	Decedent *r4.Patient    `json:"decedent"`
	// Jurisdiction defaults to the place of death's state.
	Jurisdiction string `json:"jurisdiction,omitempty"`
}

// DraftResponse describes a drafted record
type DraftResponse struct {
	ID         string          `json:"id"`
	DocumentID string          `json:"documentId"`
	Status     string          `json:"status"`
	Bundle     json.RawMessage `json:"bundle"`
}

// RecordResponse describes a record and its history
type RecordResponse struct {
	ID              string         `json:"id"`
	Status          string         `json:"status"`
	Version         int            `json:"version"`
	DocumentID      string         `json:"documentId"`
	Jurisdiction    string         `json:"jurisdiction,omitempty"`
	RejectionReason string         `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	History         []HistoryEntry `json:"history"`
}

// HistoryEntry is one event in a record's history
type HistoryEntry struct {
	Type       string    `json:"type"`
	Version    int       `json:"version"`
	DocumentID string    `json:"documentId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Create handles POST /death-records
func (h *DeathRecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.draft(w, r, deathrecord.New(uuid.New().String()), http.StatusCreated)
}

// Redraft handles PUT /death-records/{id}, rebuilding the document of a
// drafted or rejected record.
func (h *DeathRecordHandler) Redraft(w http.ResponseWriter, r *http.Request) {
	agg, err := h.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.draft(w, r, agg, http.StatusOK)
}

func (h *DeathRecordHandler) draft(w http.ResponseWriter, r *http.Request, agg *deathrecord.DeathRecord, status int) {
	ctx, span := otel.Tracer("deathrecord-handler").Start(r.Context(), "draft_death_record")
	defer span.End()
	span.SetAttributes(tracing.RecordIDKey.String(agg.ID()))

	var req DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeOutcome(w, http.StatusBadRequest, r4.NewErrorOutcome("structure", "invalid request body: "+err.Error()))
		return
	}
	if req.Record == nil {
		writeOutcome(w, http.StatusBadRequest, r4.NewFieldOutcome("required", "record is required", "record"))
		return
	}

	start := time.Now()
	built, err := h.builder.Build(req.Record, req.Decedent)
	h.metrics.ObserveBuild(start, failureReason(err))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		h.logger.Info("document build rejected",
			zap.String("record_id", agg.ID()),
			zap.String("request_id", middleware.GetRequestID(ctx)),
			zap.String("field", failedField(err)),
			zap.Error(err))
		writeError(w, h.logger, err)
		return
	}

	span.SetAttributes(
		tracing.DocumentIDKey.String(built.Bundle.ID),
		tracing.EntriesKey.Int(len(built.Bundle.Entry)),
	)

	bundle, err := built.Bundle.ToJSON()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	jurisdiction := strings.ToUpper(strings.TrimSpace(req.Jurisdiction))
	if jurisdiction == "" {
		jurisdiction = strings.ToUpper(strings.TrimSpace(req.Record.PlaceOfDeathState))
	}

	if err := agg.Draft(&deathrecord.DeathRecordDraftedData{
		DocumentID:   built.Bundle.ID,
		Jurisdiction: jurisdiction,
		Fingerprint:  built.Fingerprint,
		Bundle:       bundle,
	}); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.store.Save(ctx, agg); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("death record drafted",
		zap.String("record_id", agg.ID()),
		zap.String("document_id", built.Bundle.ID),
		zap.Int("entries", len(built.Bundle.Entry)),
		zap.String("request_id", middleware.GetRequestID(ctx)),
		zap.String("client_id", middleware.GetClientID(ctx)),
	)

	writeJSON(w, status, DraftResponse{
		ID:         agg.ID(),
		DocumentID: agg.DocumentID(),
		Status:     string(agg.Status()),
		Bundle:     bundle,
	})
}

// Get handles GET /death-records/{id}
func (h *DeathRecordHandler) Get(w http.ResponseWriter, r *http.Request) {
	agg, err := h.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := RecordResponse{
		ID:              agg.ID(),
		Status:          string(agg.Status()),
		Version:         agg.Version(),
		DocumentID:      agg.DocumentID(),
		Jurisdiction:    agg.Jurisdiction(),
		RejectionReason: agg.RejectionReason(),
		CreatedAt:       agg.CreatedAt(),
		UpdatedAt:       agg.UpdatedAt(),
		History:         make([]HistoryEntry, 0, len(agg.History())),
	}
	for _, e := range agg.History() {
		resp.History = append(resp.History, HistoryEntry{
			Type:       string(e.EventType),
			Version:    e.Version,
			DocumentID: e.DocumentID,
			Timestamp:  e.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetBundle handles GET /death-records/{id}/bundle
func (h *DeathRecordHandler) GetBundle(w http.ResponseWriter, r *http.Request) {
	agg, err := h.store.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", fhirJSON)
	w.WriteHeader(http.StatusOK)
	w.Write(agg.Bundle())
}

// Submit handles POST /death-records/{id}/submit
func (h *DeathRecordHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agg, err := h.store.Load(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := agg.Submit(); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.store.Save(ctx, agg); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("death record submitted",
		zap.String("record_id", agg.ID()),
		zap.String("document_id", agg.DocumentID()),
		zap.String("jurisdiction", agg.Jurisdiction()),
		zap.String("request_id", middleware.GetRequestID(ctx)),
	)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":         agg.ID(),
		"documentId": agg.DocumentID(),
		"status":     agg.Status(),
	})
}

func failedField(err error) string {
	var fe *record.FieldError
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/nightingaleproject/go-vrdr/internal/domain/deathrecord"
	"github.com/nightingaleproject/go-vrdr/internal/fhir/r4"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/document"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/record"
	"github.com/nightingaleproject/go-vrdr/internal/vrdr/valueset"
)

const fhirJSON = "application/fhir+json"

// Build failure reasons reported to metrics
const (
	reasonUnrecognizedValue = "UNRECOGNIZED_VALUE"
	reasonMissingLinkage    = "MISSING_LINKAGE"
	reasonDanglingReference = "DANGLING_REFERENCE"
	reasonBuildError        = "BUILD_ERROR"
	reasonInternal          = "INTERNAL"
)

// failureReason classifies a build error; nil is a success.
func failureReason(err error) string {
	if err == nil {
		return ""
	}
	var (
		fe *record.FieldError
		uc *valueset.UnrecognizedCodeError
		dr *record.DanglingReferencesError
		be *document.BuildError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, document.ErrMissingLinkage):
		return reasonMissingLinkage
	case errors.As(err, &uc):
		return reasonUnrecognizedValue
	case errors.As(err, &dr):
		return reasonDanglingReference
	case errors.As(err, &be):
		return reasonBuildError
	}
	return reasonInternal
}

// writeError maps an error onto an OperationOutcome response.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		fe *record.FieldError
		uc *valueset.UnrecognizedCodeError
		dr *record.DanglingReferencesError
		be *document.BuildError
	)
	switch {
	case errors.As(err, &fe):
		code := "value"
		if fe.Code == record.CodeInvalidDate {
			code = "invalid"
		}
		writeOutcome(w, http.StatusUnprocessableEntity, r4.NewFieldOutcome(code, fe.Error(), fe.Field))
	case errors.As(err, &be):
		if errors.As(err, &uc) {
			writeOutcome(w, http.StatusUnprocessableEntity, r4.NewFieldOutcome("code-invalid", err.Error(), be.Resource))
			return
		}
		writeOutcome(w, http.StatusUnprocessableEntity, r4.NewFieldOutcome("invalid", err.Error(), be.Resource))
	case errors.As(err, &uc):
		writeOutcome(w, http.StatusUnprocessableEntity, r4.NewErrorOutcome("code-invalid", err.Error()))
	case errors.Is(err, document.ErrMissingLinkage):
		writeOutcome(w, http.StatusUnprocessableEntity, r4.NewErrorOutcome("invalid", err.Error()))
	case errors.As(err, &dr):
		writeOutcome(w, http.StatusUnprocessableEntity, r4.NewErrorOutcome("invalid", err.Error()))
	case errors.Is(err, deathrecord.ErrNotFound):
		writeOutcome(w, http.StatusNotFound, r4.NewErrorOutcome("not-found", "death record not found"))
	case errors.Is(err, deathrecord.ErrInvalidTransition):
		writeOutcome(w, http.StatusConflict, r4.NewErrorOutcome("business-rule", err.Error()))
	case errors.Is(err, deathrecord.ErrConcurrencyConflict):
		writeOutcome(w, http.StatusConflict, r4.NewErrorOutcome("conflict", "death record was modified concurrently, retry"))
	default:
		logger.Error("request failed", zap.Error(err))
		writeOutcome(w, http.StatusInternalServerError, r4.NewErrorOutcome("exception", "internal server error"))
	}
}

func writeOutcome(w http.ResponseWriter, status int, oo *r4.OperationOutcome) {
	w.Header().Set("Content-Type", fhirJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(oo)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeFHIR(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", fhirJSON)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

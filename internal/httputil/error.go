package httputil

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/AdamBeresnev/bracket-sim/internal/bracket"
)

func InternalServerError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func BadRequest(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("bad request", "message", msg, "error", err)
	} else {
		slog.Warn("bad request", "message", msg)
	}
	http.Error(w, msg, http.StatusBadRequest)
}

func NotFound(w http.ResponseWriter, msg string, err error) {
	if err != nil {
		slog.Warn("not found", "message", msg, "error", err)
	} else {
		slog.Warn("not found", "message", msg)
	}
	http.Error(w, msg, http.StatusNotFound)
}

func Conflict(w http.ResponseWriter, msg string, err error) {
	slog.Warn("conflict", "message", msg, "error", err)
	http.Error(w, msg, http.StatusConflict)
}

// EngineError picks a status for an engine or store error and writes it.
func EngineError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, bracket.ErrSetNotFound), errors.Is(err, bracket.ErrNoReferenceOutcome):
		NotFound(w, err.Error(), err)
	case errors.Is(err, bracket.ErrAlreadyCompleted), errors.Is(err, bracket.ErrAlreadyStarted),
		errors.Is(err, bracket.ErrMissingEntrants), errors.Is(err, bracket.ErrUnresolvedReferenceOutcomes):
		Conflict(w, err.Error(), err)
	case errors.Is(err, bracket.ErrInvalidSlot), errors.Is(err, bracket.ErrInsufficientEntrants),
		errors.Is(err, bracket.ErrNoPhases), errors.Is(err, bracket.ErrInvalidConfig), errors.Is(err, bracket.ErrMissingPrereqData),
		errors.Is(err, bracket.ErrNoReferenceSets), errors.Is(err, bracket.ErrNoReferenceOutcomes):
		BadRequest(w, err.Error(), err)
	default:
		InternalServerError(w, msg, err)
	}
}

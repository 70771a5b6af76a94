package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/bracket-sim/internal/bracket"
	"github.com/AdamBeresnev/bracket-sim/internal/httputil"
	"github.com/AdamBeresnev/bracket-sim/internal/middleware"
	"github.com/AdamBeresnev/bracket-sim/internal/service"
	"github.com/AdamBeresnev/bracket-sim/internal/sim"
	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type resetRequest struct {
	EventID string `json:"eventId"`
}

type setRequest struct {
	WinnerSlot int    `json:"winnerSlot"`
	Scores     [2]int `json:"scores"`
	DQSlot     int    `json:"dqSlot"`
}

type setCommand func(svc *service.SimService, sessionID string, setID int64, req setRequest) (*sim.Snapshot, error)

var setCommands = map[string]setCommand{
	"advance": func(svc *service.SimService, sid string, id int64, _ setRequest) (*sim.Snapshot, error) {
		return svc.AdvanceSet(sid, id)
	},
	"start": func(svc *service.SimService, sid string, id int64, _ setRequest) (*sim.Snapshot, error) {
		return svc.StartSet(sid, id)
	},
	"finish": func(svc *service.SimService, sid string, id int64, req setRequest) (*sim.Snapshot, error) {
		return svc.FinishSet(sid, id, req.WinnerSlot, req.Scores)
	},
	"force-winner": func(svc *service.SimService, sid string, id int64, req setRequest) (*sim.Snapshot, error) {
		return svc.ForceWinner(sid, id, req.WinnerSlot)
	},
	"dq": func(svc *service.SimService, sid string, id int64, req setRequest) (*sim.Snapshot, error) {
		return svc.MarkDisqualified(sid, id, req.DQSlot)
	},
	"scores": func(svc *service.SimService, sid string, id int64, req setRequest) (*sim.Snapshot, error) {
		return svc.UpdateScores(sid, id, req.Scores)
	},
	"reset": func(svc *service.SimService, sid string, id int64, _ setRequest) (*sim.Snapshot, error) {
		return svc.ResetSet(sid, id)
	},
	"step": func(svc *service.SimService, sid string, id int64, _ setRequest) (*sim.Snapshot, error) {
		return svc.StepSet(sid, id)
	},
	"finalize": func(svc *service.SimService, sid string, id int64, _ setRequest) (*sim.Snapshot, error) {
		return svc.FinalizeSet(sid, id)
	},
}

func sessionID(r *http.Request) string {
	id, _ := middleware.GetSessionIDFromContext(r.Context())
	return id.String()
}

func writeSnapshot(w http.ResponseWriter, snap *sim.Snapshot, err error) {
	if err != nil {
		if errors.Is(err, service.ErrNoSimulation) {
			httputil.Conflict(w, err.Error(), err)
			return
		}
		httputil.EngineError(w, "Simulation command failed", err)
		return
	}
	httputil.JSON(w, http.StatusOK, snap)
}

func newRouter(sessionManager *scs.SessionManager, svc *service.SimService) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.SimSession(sessionManager))

	r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
		events, err := svc.ListEvents(r.Context())
		if err != nil {
			httputil.InternalServerError(w, "Failed to list events", err)
			return
		}
		httputil.JSON(w, http.StatusOK, events)
	})

	r.Post("/events", func(w http.ResponseWriter, r *http.Request) {
		cfg := bracket.NewConfig()
		if err := httputil.DecodeJSON(r, &cfg); err != nil {
			httputil.BadRequest(w, "Invalid fixture", err)
			return
		}
		if err := svc.ImportFixture(r.Context(), cfg); err != nil {
			httputil.EngineError(w, "Failed to import fixture", err)
			return
		}
		httputil.JSON(w, http.StatusCreated, map[string]string{"id": cfg.Event.ID})
	})

	r.Post("/sim/reset", func(w http.ResponseWriter, r *http.Request) {
		var req resetRequest
		if err := httputil.DecodeJSON(r, &req); err != nil || req.EventID == "" {
			httputil.BadRequest(w, "eventId is required", err)
			return
		}
		snap, err := svc.Reset(r.Context(), sessionID(r), req.EventID)
		writeSnapshot(w, snap, err)
	})

	r.Get("/sim/state", func(w http.ResponseWriter, r *http.Request) {
		var since int64
		if s := r.URL.Query().Get("since"); s != "" {
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				httputil.BadRequest(w, "Invalid since", err)
				return
			}
			since = v
		}
		snap, err := svc.State(sessionID(r), since)
		writeSnapshot(w, snap, err)
	})

	r.Post("/sim/complete", func(w http.ResponseWriter, r *http.Request) {
		snap, err := svc.CompleteBracket(sessionID(r))
		writeSnapshot(w, snap, err)
	})

	r.Get("/sets/{id}/reference", func(w http.ResponseWriter, r *http.Request) {
		setID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httputil.BadRequest(w, "Invalid set ID", err)
			return
		}
		outcome, err := svc.ReferenceOutcome(sessionID(r), setID)
		if err != nil {
			if errors.Is(err, service.ErrNoSimulation) {
				httputil.Conflict(w, err.Error(), err)
				return
			}
			httputil.EngineError(w, "Failed to look up reference outcome", err)
			return
		}
		httputil.JSON(w, http.StatusOK, outcome)
	})

	r.Post("/sets/{id}/{action}", func(w http.ResponseWriter, r *http.Request) {
		command, ok := setCommands[chi.URLParam(r, "action")]
		if !ok {
			httputil.NotFound(w, "Unknown set action", nil)
			return
		}
		setID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httputil.BadRequest(w, "Invalid set ID", err)
			return
		}
		var req setRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.BadRequest(w, "Invalid request body", err)
			return
		}
		snap, err := command(svc, sessionID(r), setID, req)
		writeSnapshot(w, snap, err)
	})

	return r
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AdamBeresnev/bracket-sim/internal/bracket"
	"github.com/AdamBeresnev/bracket-sim/internal/sim"
	"github.com/AdamBeresnev/bracket-sim/internal/store"
	"github.com/jmoiron/sqlx"
)

var ErrNoSimulation = errors.New("no simulation loaded for this session")

// SimService owns one engine per session and serializes every call into it.
type SimService struct {
	db    *sqlx.DB
	store *store.FixtureStore
	clock func() int64

	mu       sync.Mutex
	sessions map[string]*sim.Engine
}

func NewSimService(db *sqlx.DB, store *store.FixtureStore) *SimService {
	return &SimService{
		db:       db,
		store:    store,
		clock:    func() int64 { return time.Now().UnixMilli() },
		sessions: make(map[string]*sim.Engine),
	}
}

// WithClock replaces the wall clock, mostly for tests.
func (s *SimService) WithClock(clock func() int64) *SimService {
	s.clock = clock
	return s
}

// ImportFixture validates cfg by building its bracket and stores it, replacing
// any fixture with the same event id.
func (s *SimService) ImportFixture(ctx context.Context, cfg bracket.Config) error {
	if cfg.Event.ID == "" {
		return fmt.Errorf("event id is required: %w", bracket.ErrInvalidConfig)
	}
	if _, _, err := bracket.Build(cfg); err != nil {
		return fmt.Errorf("invalid fixture: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.store.DeleteEvent(ctx, tx, cfg.Event.ID); err != nil {
		return fmt.Errorf("failed to replace event: %w", err)
	}
	if err := s.store.CreateEvent(ctx, tx, cfg); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	if err := s.store.CreatePhases(ctx, tx, cfg.Event.ID, cfg.Phases); err != nil {
		return fmt.Errorf("failed to create phases: %w", err)
	}
	if err := s.store.CreateEntrants(ctx, tx, cfg.Event.ID, cfg.Entrants); err != nil {
		return fmt.Errorf("failed to create entrants: %w", err)
	}
	if err := s.store.CreateReferenceSets(ctx, tx, cfg.Event.ID, cfg.ReferenceSets); err != nil {
		return fmt.Errorf("failed to create reference sets: %w", err)
	}

	return tx.Commit()
}

func (s *SimService) ListEvents(ctx context.Context) ([]store.EventSummary, error) {
	return s.store.ListEvents(ctx)
}

// Reset (re)builds the session's engine from a stored fixture.
func (s *SimService) Reset(ctx context.Context, sessionID, eventID string) (*sim.Snapshot, error) {
	cfg, err := s.store.GetConfig(ctx, eventID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	engine, err := sim.New(cfg, now)
	if err != nil {
		return nil, fmt.Errorf("failed to build simulation for event %s: %w", eventID, err)
	}
	s.sessions[sessionID] = engine

	slog.Info("simulation reset", "session", sessionID, "event", eventID, "reference", engine.HasReferenceSets())
	return engine.State(now)
}

// Drop forgets the session's engine.
func (s *SimService) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

func (s *SimService) withEngine(sessionID string, fn func(e *sim.Engine, now int64) (*sim.Snapshot, error)) (*sim.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	engine, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNoSimulation
	}
	return fn(engine, s.clock())
}

func (s *SimService) State(sessionID string, since int64) (*sim.Snapshot, error) {
	return s.withEngine(sessionID, func(e *sim.Engine, now int64) (*sim.Snapshot, error) {
		return e.StateSince(now, since)
	})
}

func (s *SimService) AdvanceSet(sessionID string, setID int64) (*sim.Snapshot, error) {
	return s.withEngine(sessionID, func(e *sim.Engine, now int64) (*sim.Snapshot, error) {
		return e.AdvanceSet(setID, now)
	})
}

func (s *SimService) StartSet(sessionID string, setID int64) (*sim.Snapshot, error) {
	return s.withEngine(sessionID, func(e *sim.Engine, now int64) (*sim.Snapshot, error) {
		return e.StartSetManual(setID, now)
	})
}

func (s *SimService) FinishSet(sessionID string, setID int64, winnerSlot int, scores [2]int) (*sim.Snapshot, error) {
	return s.withEngine(sessionID, func(e *sim.Engine, now int64) (*sim.Snapshot, error) {
		return e.FinishSetManual(setID, winnerSlot, scores, now)
	})
}

func (s *SimService) ForceWinner(sessionID string, setID int64, winnerSlot int) (*sim.Snapshot, error) {
	return s.withEngine(sessionID, func(e *sim.Engine, now int64) (*sim.Snapshot, error) {
		return e.ForceWinner(setID, winnerSlot, now)
	})
}

func (s *SimService) MarkDisqualified(sessionID string, setID int64, dqSlot int) (*sim.Snapshot, error) {
	return s.withEngine(sessionID, func(e *sim.Engine, now int64) (*sim.Snapshot, error) {
		return e.MarkDisqualified(setID, dqSlot, now)
	})
}

func (s *SimService) UpdateScores(sessionID string, setID int64, scores [2]int) (*sim.Snapshot, error) {
	return s.withEngine(sessionID, func(e *sim.Engine, now int64) (*sim.Snapshot, error) {
		return e.UpdateScoresManual(setID, scores, now)
	})
}

func (s *SimService) ResetSet(sessionID string, setID int64) (*sim.Snapshot, error) {
	return s.withEngine(sessionID, func(e *sim.Engine, now int64) (*sim.Snapshot, error) {
		return e.ResetSetAndDependents(setID, now)
	})
}

func (s *SimService) StepSet(sessionID string, setID int64) (*sim.Snapshot, error) {
	return s.withEngine(sessionID, func(e *sim.Engine, now int64) (*sim.Snapshot, error) {
		return e.StepTowardReference(setID, now)
	})
}

func (s *SimService) FinalizeSet(sessionID string, setID int64) (*sim.Snapshot, error) {
	return s.withEngine(sessionID, func(e *sim.Engine, now int64) (*sim.Snapshot, error) {
		return e.FinalizeFromReference(setID, now)
	})
}

func (s *SimService) CompleteBracket(sessionID string) (*sim.Snapshot, error) {
	return s.withEngine(sessionID, func(e *sim.Engine, now int64) (*sim.Snapshot, error) {
		return e.CompleteBracket(now)
	})
}

// ReferenceOutcome looks up the reference result matching a live set.
func (s *SimService) ReferenceOutcome(sessionID string, setID int64) (*sim.ResolvedOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	engine, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNoSimulation
	}
	outcome, ok := engine.ReferenceOutcomeForSet(setID)
	if !ok {
		return nil, fmt.Errorf("set %d: %w", setID, bracket.ErrNoReferenceOutcome)
	}
	return outcome, nil
}

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AdamBeresnev/bracket-sim/internal/bracket"
	"github.com/AdamBeresnev/bracket-sim/internal/utils"
	"github.com/jmoiron/sqlx"
)

// FixtureStore keeps the event fixtures a simulation is built from. It never stores engine state.
type FixtureStore struct {
	db *sqlx.DB
}

func NewFixtureStore(db *sqlx.DB) *FixtureStore {
	return &FixtureStore{db: db}
}

type EventSummary struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type eventRow struct {
	bracket.EventInfo
	ReferenceLink         *string `db:"reference_link"`
	TimeScale             float64 `db:"time_scale"`
	MinSetDurationSec     int     `db:"min_set_duration_sec"`
	MaxSetDurationSec     int     `db:"max_set_duration_sec"`
	MaxConcurrentSets     int     `db:"max_concurrent_sets"`
	Seed                  int64   `db:"seed"` // bit-cast: the driver rejects uint64 values above MaxInt64
	AllowGrandFinalsReset bool    `db:"allow_grand_finals_reset"`
	ManualMode            bool    `db:"manual_mode"`
}

func newEventRow(cfg bracket.Config) eventRow {
	sim := cfg.Simulation
	return eventRow{
		EventInfo:             cfg.Event,
		ReferenceLink:         utils.NilIfBlank(cfg.ReferenceLink),
		TimeScale:             sim.TimeScale,
		MinSetDurationSec:     sim.MinSetDurationSec,
		MaxSetDurationSec:     sim.MaxSetDurationSec,
		MaxConcurrentSets:     sim.MaxConcurrentSets,
		Seed:                  int64(sim.Seed),
		AllowGrandFinalsReset: sim.AllowGrandFinalsReset,
		ManualMode:            sim.ManualMode,
	}
}

func (r eventRow) simulation() bracket.SimulationConfig {
	return bracket.SimulationConfig{
		TimeScale:             r.TimeScale,
		MinSetDurationSec:     r.MinSetDurationSec,
		MaxSetDurationSec:     r.MaxSetDurationSec,
		MaxConcurrentSets:     r.MaxConcurrentSets,
		Seed:                  uint64(r.Seed),
		AllowGrandFinalsReset: r.AllowGrandFinalsReset,
		ManualMode:            r.ManualMode,
	}
}

type phaseRow struct {
	bracket.Phase
	EventID    string `db:"event_id"`
	PhaseOrder int    `db:"phase_order"`
}

type entrantRow struct {
	bracket.EntrantConfig
	EventID      string `db:"event_id"`
	EntrantOrder int    `db:"entrant_order"`
}

type referenceSetRow struct {
	EventID       string `db:"event_id"`
	SetOrder      int    `db:"set_order"`
	SetID         *int64 `db:"set_id"`
	Round         *int   `db:"round"`
	FullRoundText string `db:"full_round_text"`
	State         *int   `db:"state"`
	WinnerID      *int   `db:"winner_id"`
	Slots         string `db:"slots"`
}

func (s *FixtureStore) CreateEvent(ctx context.Context, tx *sqlx.Tx, cfg bracket.Config) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO events (id, name, slug, reference_link, time_scale, min_set_duration_sec, max_set_duration_sec, max_concurrent_sets, seed, allow_grand_finals_reset, manual_mode)
        VALUES (:id, :name, :slug, :reference_link, :time_scale, :min_set_duration_sec, :max_set_duration_sec, :max_concurrent_sets, :seed, :allow_grand_finals_reset, :manual_mode)`, newEventRow(cfg))
	return err
}

func (s *FixtureStore) DeleteEvent(ctx context.Context, tx *sqlx.Tx, eventID string) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM events WHERE id = ?", eventID)
	return err
}

func (s *FixtureStore) CreatePhases(ctx context.Context, tx *sqlx.Tx, eventID string, phases []bracket.Phase) error {
	if len(phases) == 0 {
		return nil
	}
	rows := make([]phaseRow, len(phases))
	for i, p := range phases {
		rows[i] = phaseRow{Phase: p, EventID: eventID, PhaseOrder: i}
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO phases (id, event_id, name, best_of, phase_order)
        VALUES (:id, :event_id, :name, :best_of, :phase_order)`, rows)
	return err
}

func (s *FixtureStore) CreateEntrants(ctx context.Context, tx *sqlx.Tx, eventID string, entrants []bracket.EntrantConfig) error {
	if len(entrants) == 0 {
		return nil
	}
	rows := make([]entrantRow, len(entrants))
	for i, e := range entrants {
		rows[i] = entrantRow{EntrantConfig: e, EventID: eventID, EntrantOrder: i}
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO entrants (id, event_id, name, identifier, seed, entrant_order)
        VALUES (:id, :event_id, :name, :identifier, :seed, :entrant_order)`, rows)
	return err
}

func (s *FixtureStore) CreateReferenceSets(ctx context.Context, tx *sqlx.Tx, eventID string, refs []bracket.ReferenceSet) error {
	if len(refs) == 0 {
		return nil
	}
	rows := make([]referenceSetRow, len(refs))
	for i, ref := range refs {
		slots, err := json.Marshal(ref.Slots)
		if err != nil {
			return fmt.Errorf("failed to encode slots of reference set %d: %w", i, err)
		}
		rows[i] = referenceSetRow{
			EventID:       eventID,
			SetOrder:      i,
			SetID:         ref.ID,
			Round:         ref.Round,
			FullRoundText: ref.FullRoundText,
			State:         ref.State,
			WinnerID:      ref.WinnerID,
			Slots:         string(slots),
		}
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO reference_sets (event_id, set_order, set_id, round, full_round_text, state, winner_id, slots)
        VALUES (:event_id, :set_order, :set_id, :round, :full_round_text, :state, :winner_id, :slots)`, rows)
	return err
}

func (s *FixtureStore) ListEvents(ctx context.Context) ([]EventSummary, error) {
	var events []EventSummary
	err := s.db.SelectContext(ctx, &events, "SELECT id, name, slug, created_at FROM events ORDER BY created_at DESC, id ASC")
	return events, err
}

// GetConfig loads a fixture as an engine config. A missing event yields sql.ErrNoRows.
func (s *FixtureStore) GetConfig(ctx context.Context, eventID string) (bracket.Config, error) {
	cfg := bracket.NewConfig()

	var event eventRow
	err := s.db.GetContext(ctx, &event, `SELECT id, name, slug, reference_link, time_scale, min_set_duration_sec, max_set_duration_sec, max_concurrent_sets, seed, allow_grand_finals_reset, manual_mode
        FROM events WHERE id = ?`, eventID)
	if err != nil {
		return cfg, err
	}
	cfg.Event = event.EventInfo
	cfg.Simulation = event.simulation()
	cfg.ReferenceLink = utils.OrZero(event.ReferenceLink)

	var phases []phaseRow
	if err := s.db.SelectContext(ctx, &phases, "SELECT * FROM phases WHERE event_id = ? ORDER BY phase_order ASC", eventID); err != nil {
		return cfg, fmt.Errorf("failed to get phases: %w", err)
	}
	for _, p := range phases {
		cfg.Phases = append(cfg.Phases, p.Phase)
	}

	var entrants []entrantRow
	if err := s.db.SelectContext(ctx, &entrants, "SELECT * FROM entrants WHERE event_id = ? ORDER BY entrant_order ASC", eventID); err != nil {
		return cfg, fmt.Errorf("failed to get entrants: %w", err)
	}
	for _, e := range entrants {
		cfg.Entrants = append(cfg.Entrants, e.EntrantConfig)
	}

	var refs []referenceSetRow
	if err := s.db.SelectContext(ctx, &refs, "SELECT * FROM reference_sets WHERE event_id = ? ORDER BY set_order ASC", eventID); err != nil {
		return cfg, fmt.Errorf("failed to get reference sets: %w", err)
	}
	for _, r := range refs {
		ref := bracket.ReferenceSet{
			ID:            r.SetID,
			Round:         r.Round,
			FullRoundText: r.FullRoundText,
			State:         r.State,
			WinnerID:      r.WinnerID,
		}
		if err := json.Unmarshal([]byte(r.Slots), &ref.Slots); err != nil {
			return cfg, fmt.Errorf("failed to decode slots of reference set %d: %w", r.SetOrder, err)
		}
		cfg.ReferenceSets = append(cfg.ReferenceSets, ref)
	}

	return cfg, nil
}

package bracket

import "fmt"

type EventInfo struct {
	ID   string `json:"id" yaml:"id" db:"id"`
	Name string `json:"name" yaml:"name" db:"name"`
	Slug string `json:"slug" yaml:"slug" db:"slug"`
}

type Phase struct {
	ID     string `json:"id" yaml:"id" db:"id"`
	Name   string `json:"name" yaml:"name" db:"name"`
	BestOf int    `json:"bestOf" yaml:"bestOf" db:"best_of"`
}

type EntrantConfig struct {
	ID         int    `json:"id" yaml:"id" db:"id"`
	Name       string `json:"name" yaml:"name" db:"name"`
	Identifier string `json:"identifier" yaml:"identifier" db:"identifier"`
	Seed       *int   `json:"seed,omitempty" yaml:"seed,omitempty" db:"seed"`
}

type SimulationConfig struct {
	TimeScale             float64 `json:"timeScale" yaml:"timeScale" db:"time_scale"`
	MinSetDurationSec     int     `json:"minSetDurationSec" yaml:"minSetDurationSec" db:"min_set_duration_sec"`
	MaxSetDurationSec     int     `json:"maxSetDurationSec" yaml:"maxSetDurationSec" db:"max_set_duration_sec"`
	MaxConcurrentSets     int     `json:"maxConcurrentSets" yaml:"maxConcurrentSets" db:"max_concurrent_sets"`
	Seed                  uint64  `json:"seed" yaml:"seed" db:"seed"`
	AllowGrandFinalsReset bool    `json:"allowGrandFinalsReset" yaml:"allowGrandFinalsReset" db:"allow_grand_finals_reset"`
	ManualMode            bool    `json:"manualMode" yaml:"manualMode" db:"manual_mode"`
}

func DefaultSimulation() SimulationConfig {
	return SimulationConfig{
		TimeScale:             1.0,
		MinSetDurationSec:     300,
		MaxSetDurationSec:     540,
		MaxConcurrentSets:     2,
		Seed:                  1337,
		AllowGrandFinalsReset: true,
		ManualMode:            true,
	}
}

// ReferenceSlot is one side of a historical set. A negative Score marks a disqualification.
type ReferenceSlot struct {
	EntrantID       *int   `json:"entrantId,omitempty" yaml:"entrantId,omitempty"`
	EntrantName     string `json:"entrantName,omitempty" yaml:"entrantName,omitempty"`
	Score           *int   `json:"score,omitempty" yaml:"score,omitempty"`
	PrereqID        *int64 `json:"prereqId,omitempty" yaml:"prereqId,omitempty"`
	PrereqType      string `json:"prereqType,omitempty" yaml:"prereqType,omitempty"`
	PrereqPlacement *int   `json:"prereqPlacement,omitempty" yaml:"prereqPlacement,omitempty"`
}

// HasPrereq reports whether the slot carries any prerequisite link.
func (s ReferenceSlot) HasPrereq() bool {
	return s.PrereqID != nil || s.PrereqType != ""
}

type ReferenceSet struct {
	ID            *int64          `json:"id,omitempty" yaml:"id,omitempty"`
	Round         *int            `json:"round,omitempty" yaml:"round,omitempty"`
	FullRoundText string          `json:"fullRoundText,omitempty" yaml:"fullRoundText,omitempty"`
	State         *int            `json:"state,omitempty" yaml:"state,omitempty"`
	WinnerID      *int            `json:"winnerId,omitempty" yaml:"winnerId,omitempty"`
	Slots         []ReferenceSlot `json:"slots" yaml:"slots"`
}

type Config struct {
	Event         EventInfo        `json:"event" yaml:"event"`
	Phases        []Phase          `json:"phases" yaml:"phases"`
	Entrants      []EntrantConfig  `json:"entrants" yaml:"entrants"`
	Simulation    SimulationConfig `json:"simulation" yaml:"simulation"`
	ReferenceLink string           `json:"referenceLink,omitempty" yaml:"referenceLink,omitempty"`
	ReferenceSets []ReferenceSet   `json:"referenceSets,omitempty" yaml:"referenceSets,omitempty"`
}

// NewConfig returns a config with simulation defaults filled in, ready to be decoded into.
func NewConfig() Config {
	return Config{Simulation: DefaultSimulation()}
}

// Validate checks the parameters the engine relies on: every phase is an odd
// best-of, time runs forward and at least one set may play at a time.
func (c Config) Validate() error {
	for _, p := range c.Phases {
		if p.BestOf < 1 || p.BestOf%2 == 0 {
			return fmt.Errorf("phase %s: bestOf must be odd and at least 1, got %d: %w", p.ID, p.BestOf, ErrInvalidConfig)
		}
	}
	sim := c.Simulation
	if sim.TimeScale <= 0 {
		return fmt.Errorf("timeScale must be positive, got %g: %w", sim.TimeScale, ErrInvalidConfig)
	}
	if sim.MaxConcurrentSets < 1 {
		return fmt.Errorf("maxConcurrentSets must be at least 1, got %d: %w", sim.MaxConcurrentSets, ErrInvalidConfig)
	}
	if sim.MinSetDurationSec < 0 || sim.MaxSetDurationSec < 0 {
		return fmt.Errorf("set durations must not be negative: %w", ErrInvalidConfig)
	}
	return nil
}

func (c Config) HasReferenceSets() bool {
	return len(c.ReferenceSets) > 0
}

// Clone returns a deep copy so a rebuilt engine never shares slices with the caller.
func (c Config) Clone() Config {
	out := c
	out.Phases = append([]Phase(nil), c.Phases...)
	out.Entrants = append([]EntrantConfig(nil), c.Entrants...)
	if c.ReferenceSets != nil {
		out.ReferenceSets = make([]ReferenceSet, len(c.ReferenceSets))
		for i, ref := range c.ReferenceSets {
			ref.Slots = append([]ReferenceSlot(nil), ref.Slots...)
			out.ReferenceSets[i] = ref
		}
	}
	return out
}

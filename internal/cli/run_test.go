package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/AdamBeresnev/bracket-sim/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manualConfig = `
event:
  id: weekly-12
  name: Weekly 12
  slug: weekly-12
phases:
  - id: main
    name: Main Bracket
    bestOf: 3
entrants:
  - {id: 1, name: Alpha, seed: 1}
  - {id: 2, name: Beta, seed: 2}
  - {id: 3, name: Gamma}
  - {id: 4, name: Delta}
  - {id: 5, name: Epsilon}
simulation:
  seed: 7
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func executeRun(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "weekly.yaml", manualConfig))
	require.NoError(t, err)

	assert.Equal(t, "Weekly 12", cfg.Event.Name)
	assert.Len(t, cfg.Entrants, 5)
	assert.Nil(t, cfg.Entrants[2].Seed)
	assert.Equal(t, uint64(7), cfg.Simulation.Seed)
	// Fields absent from the file keep their defaults
	assert.Equal(t, 300, cfg.Simulation.MinSetDurationSec)
	assert.True(t, cfg.Simulation.ManualMode)
	assert.True(t, cfg.Simulation.AllowGrandFinalsReset)
}

func TestLoadConfig_JSON(t *testing.T) {
	raw := `{"event": {"id": "j", "name": "J", "slug": "j"}, "phases": [{"id": "p", "name": "P", "bestOf": 5}], ` +
		`"entrants": [{"id": 1, "name": "A"}, {"id": 2, "name": "B"}], "simulation": {"manualMode": false}}`

	cfg, err := LoadConfig(writeConfig(t, "cfg.json", raw))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Phases[0].BestOf)
	assert.False(t, cfg.Simulation.ManualMode)
	assert.Equal(t, 2, cfg.Simulation.MaxConcurrentSets)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "bad.yaml", "event:\n  id: x\nbogus: true\n"))
	assert.Error(t, err)
}

func TestRun_Manual(t *testing.T) {
	out, err := executeRun(t, "text", writeConfig(t, "weekly.yaml", manualConfig))
	require.NoError(t, err)

	assert.Contains(t, out, "Weekly 12")
	assert.Contains(t, out, "GF1")
	assert.Contains(t, out, "Champion: ")
	assert.NotContains(t, out, "Champion: none")
}

func TestRun_AutomaticJSON(t *testing.T) {
	cfgText := manualConfig + "  manualMode: false\n  maxConcurrentSets: 3\n"
	out, err := executeRun(t, "json", writeConfig(t, "auto.yaml", cfgText), "--tick", "30s")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Champion *string `json:"champion"`
			Snapshot struct {
				Sets []struct {
					State bracket.SetState `json:"state"`
				} `json:"sets"`
			} `json:"snapshot"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Data.Champion)
	for _, s := range resp.Data.Snapshot.Sets {
		assert.True(t, s.State.Terminal())
	}
}

func TestRun_Deterministic(t *testing.T) {
	path := writeConfig(t, "weekly.yaml", manualConfig+"  manualMode: false\n")
	first, err := executeRun(t, "json", path)
	require.NoError(t, err)
	second, err := executeRun(t, "json", path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRun_TickTooSmall(t *testing.T) {
	cfgText := manualConfig + "  manualMode: false\n"
	_, err := executeRun(t, "text", writeConfig(t, "auto.yaml", cfgText), "--tick", "0s")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRun_InvalidConfig(t *testing.T) {
	_, err := executeRun(t, "text", writeConfig(t, "solo.yaml", "phases: [{id: p, name: P, bestOf: 3}]\nentrants: [{id: 1, name: Solo}]\n"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, bracket.ErrInsufficientEntrants)
}

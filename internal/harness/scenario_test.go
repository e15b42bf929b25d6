package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
loaded: true
options:
  tick_rate: 30
  advance_ceiling: 4
setup:
  - action: set_menu
    args: { name: inventory }
ticks:
  - advance: 2
  - action: warp
    args: { location: Town }
  - command: "help"
  - render: 1
assertions:
  - type: raised
    channel: player.warped
    payload: { new: Town }
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.True(t, scenario.Loaded)
	assert.Equal(t, 30, scenario.Options.TickRate)
	assert.Equal(t, 4, scenario.Options.AdvanceCeiling)
	require.Len(t, scenario.Setup, 1)
	assert.Equal(t, "set_menu", scenario.Setup[0].Action)
	require.Len(t, scenario.Ticks, 4)
	assert.Equal(t, 2, scenario.Ticks[0].Advance)
	assert.Equal(t, "warp", scenario.Ticks[1].Action)
	assert.Equal(t, "help", scenario.Ticks[2].Command)
	assert.Equal(t, 1, scenario.Ticks[3].Render)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, map[string]any{"new": "Town"}, scenario.Assertions[0].Payload)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: "d"
ticks:
  - advance: 1
assertion:
  - type: stage
    stage: ready
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nticks: [{advance: 1}]\nassertions: [{type: stage, stage: ready}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			yaml:    "name: n\nticks: [{advance: 1}]\nassertions: [{type: stage, stage: ready}]",
			wantErr: "description is required",
		},
		{
			name:    "missing ticks",
			yaml:    "name: n\ndescription: d\nassertions: [{type: stage, stage: ready}]",
			wantErr: "ticks list is required",
		},
		{
			name:    "missing assertions",
			yaml:    "name: n\ndescription: d\nticks: [{advance: 1}]",
			wantErr: "assertions list is required",
		},
		{
			name:    "empty step",
			yaml:    "name: n\ndescription: d\nticks: [{}]\nassertions: [{type: stage, stage: ready}]",
			wantErr: "ticks[0]: exactly one of",
		},
		{
			name:    "two kinds in one step",
			yaml:    "name: n\ndescription: d\nticks: [{advance: 1, render: 1}]\nassertions: [{type: stage, stage: ready}]",
			wantErr: "ticks[0]: exactly one of",
		},
		{
			name:    "unknown action",
			yaml:    "name: n\ndescription: d\nticks: [{action: explode}]\nassertions: [{type: stage, stage: ready}]",
			wantErr: `unknown action "explode"`,
		},
		{
			name:    "unknown setup action",
			yaml:    "name: n\ndescription: d\nsetup: [{action: explode}]\nticks: [{advance: 1}]\nassertions: [{type: stage, stage: ready}]",
			wantErr: `setup[0]: unknown action "explode"`,
		},
		{
			name:    "unknown assertion",
			yaml:    "name: n\ndescription: d\nticks: [{advance: 1}]\nassertions: [{type: vibes}]",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "raised without channel",
			yaml:    "name: n\ndescription: d\nticks: [{advance: 1}]\nassertions: [{type: raised}]",
			wantErr: "channel is required for raised",
		},
		{
			name:    "order without channels",
			yaml:    "name: n\ndescription: d\nticks: [{advance: 1}]\nassertions: [{type: order}]",
			wantErr: "channels list is required",
		},
		{
			name:    "negative count",
			yaml:    "name: n\ndescription: d\nticks: [{advance: 1}]\nassertions: [{type: count, channel: c, count: -1}]",
			wantErr: "count must be non-negative",
		},
		{
			name:    "bad stage",
			yaml:    "name: n\ndescription: d\nticks: [{advance: 1}]\nassertions: [{type: stage, stage: napping}]",
			wantErr: "unknown lifecycle stage",
		},
		{
			name:    "bad fatal phase",
			yaml:    "name: n\ndescription: d\nticks: [{advance: 1}]\nassertions: [{type: fatal, phase: draw}]",
			wantErr: "phase must be advance, render or none",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_Testdata(t *testing.T) {
	files, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		_, err := LoadScenario(f)
		assert.NoError(t, err, f)
	}
}

func TestActionNames_Sorted(t *testing.T) {
	names := ActionNames()
	assert.Contains(t, names, "start_load")
	assert.Contains(t, names, "fail_render")
	assert.IsNonDecreasing(t, names)
}

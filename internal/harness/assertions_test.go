package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Tick: 1, Seq: 1, Channel: "a", Payload: []byte(`null`)},
		{Tick: 1, Seq: 2, Channel: "b", Payload: []byte(`{"location":"Farm","added":[{"id":"x"}]}`)},
		{Tick: 2, Seq: 3, Channel: "c", Payload: []byte(`{"old":0,"new":120}`)},
		{Tick: 2, Seq: 4, Channel: "b", Payload: []byte(`{"location":"Town"}`)},
	}
}

func TestAssertRaised(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertRaised(trace, Assertion{Type: AssertRaised, Channel: "a"}))
	assert.NoError(t, assertRaised(trace, Assertion{Type: AssertRaised, Channel: "b", Tick: 2}))
	assert.NoError(t, assertRaised(trace, Assertion{Type: AssertRaised, Channel: "c", Payload: map[string]any{"new": 120}}))
	assert.NoError(t, assertRaised(trace, Assertion{
		Type:    AssertRaised,
		Channel: "b",
		Payload: map[string]any{"added": []any{map[string]any{"id": "x"}}},
	}))

	err := assertRaised(trace, Assertion{Type: AssertRaised, Channel: "c", Tick: 1})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertRaised, ae.Type)
	assert.Contains(t, err.Error(), "Full trace")

	assert.Error(t, assertRaised(trace, Assertion{Type: AssertRaised, Channel: "b", Payload: map[string]any{"location": "Mine"}}))
	assert.Error(t, assertRaised(trace, Assertion{Type: AssertRaised, Channel: "b", Payload: map[string]any{"added": []any{}}}))
}

func TestAssertNotRaised(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertNotRaised(trace, Assertion{Type: AssertNotRaised, Channel: "z"}))
	assert.NoError(t, assertNotRaised(trace, Assertion{Type: AssertNotRaised, Channel: "a", Tick: 2}))

	err := assertNotRaised(trace, Assertion{Type: AssertNotRaised, Channel: "b", Payload: map[string]any{"location": "Town"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "raised at seq 4")
}

func TestAssertOrder(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertOrder(trace, Assertion{Channels: []string{"a", "c"}}))
	assert.NoError(t, assertOrder(trace, Assertion{Channels: []string{"b", "c", "b"}}))

	err := assertOrder(trace, Assertion{Channels: []string{"c", "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing a")
}

func TestAssertCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertCount(trace, Assertion{Channel: "b", Count: 2}))
	assert.NoError(t, assertCount(trace, Assertion{Channel: "z", Count: 0}))
	assert.Error(t, assertCount(trace, Assertion{Channel: "a", Count: 3}))
}

func TestAssertStageAndFatal(t *testing.T) {
	r := &Result{Stage: "ready"}

	assert.NoError(t, assertStage(r, Assertion{Stage: "ready"}))
	assert.Error(t, assertStage(r, Assertion{Stage: "loaded"}))
	assert.NoError(t, assertFatal(r, Assertion{Phase: "none"}))

	r.Fatal = "advance"
	assert.NoError(t, assertFatal(r, Assertion{Phase: "advance"}))
	err := assertFatal(r, Assertion{Phase: "none"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fatal phase advance")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: "vibes"}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "vibes"`)
}

func TestSubsetMatch(t *testing.T) {
	actual := map[string]any{"a": float64(1), "b": []any{"x", "y"}, "c": map[string]any{"d": true}}

	assert.True(t, subsetMatch(actual, map[string]any{}))
	assert.True(t, subsetMatch(actual, map[string]any{"c": map[string]any{"d": true}}))
	assert.False(t, subsetMatch(actual, map[string]any{"b": []any{"x"}}))
	assert.False(t, subsetMatch(actual, map[string]any{"e": nil}))
	assert.False(t, subsetMatch("s", map[string]any{}))
}

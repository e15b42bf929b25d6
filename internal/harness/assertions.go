package harness

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] tick %d %s %s\n", ev.Seq, ev.Tick, ev.Channel, ev.Payload)
		}
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRaised:
			err = assertRaised(result.Trace, assertion)
		case AssertNotRaised:
			err = assertNotRaised(result.Trace, assertion)
		case AssertOrder:
			err = assertOrder(result.Trace, assertion)
		case AssertCount:
			err = assertCount(result.Trace, assertion)
		case AssertStage:
			err = assertStage(result, assertion)
		case AssertFatal:
			err = assertFatal(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

// assertRaised checks that at least one event on the channel matches the
// payload subset and tick.
func assertRaised(trace []TraceEvent, a Assertion) error {
	matched, err := findMatches(trace, a)
	if err != nil {
		return err
	}
	if len(matched) > 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertRaised,
		Expected: describe(a),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertNotRaised checks that no event on the channel matches.
func assertNotRaised(trace []TraceEvent, a Assertion) error {
	matched, err := findMatches(trace, a)
	if err != nil {
		return err
	}
	if len(matched) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertNotRaised,
		Expected: "no " + describe(a),
		Actual:   fmt.Sprintf("raised at seq %d", matched[0].Seq),
		Trace:    trace,
	}
}

// assertOrder checks that the channels occur as a subsequence of the
// trace. Intervening events are allowed.
func assertOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Channels) && ev.Channel == a.Channels[next] {
			next++
		}
	}
	if next == len(a.Channels) {
		return nil
	}
	return &AssertionError{
		Type:     AssertOrder,
		Expected: fmt.Sprintf("channels in order: %v", a.Channels),
		Actual:   fmt.Sprintf("matched %d of %d; missing %s", next, len(a.Channels), a.Channels[next]),
		Trace:    trace,
	}
}

// assertCount checks that the channel was raised exactly Count times.
func assertCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Channel == a.Channel {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCount,
		Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Channel),
		Actual:   fmt.Sprintf("%d occurrences", count),
		Trace:    trace,
	}
}

func assertStage(result *Result, a Assertion) error {
	if result.Stage == a.Stage {
		return nil
	}
	return &AssertionError{
		Type:     AssertStage,
		Expected: "stage " + a.Stage,
		Actual:   "stage " + result.Stage,
	}
}

func assertFatal(result *Result, a Assertion) error {
	want := a.Phase
	if want == "none" {
		want = ""
	}
	if result.Fatal == want {
		return nil
	}
	actual := result.Fatal
	if actual == "" {
		actual = "none"
	}
	return &AssertionError{
		Type:     AssertFatal,
		Expected: "fatal phase " + a.Phase,
		Actual:   "fatal phase " + actual,
	}
}

func findMatches(trace []TraceEvent, a Assertion) ([]TraceEvent, error) {
	want, err := normalize(a.Payload)
	if err != nil {
		return nil, fmt.Errorf("%s %s: payload: %w", a.Type, a.Channel, err)
	}

	var matched []TraceEvent
	for _, ev := range trace {
		if ev.Channel != a.Channel {
			continue
		}
		if a.Tick != 0 && ev.Tick != a.Tick {
			continue
		}
		if want != nil {
			var got any
			if err := json.Unmarshal(ev.Payload, &got); err != nil {
				return nil, fmt.Errorf("seq %d: %w", ev.Seq, err)
			}
			if !subsetMatch(got, want) {
				continue
			}
		}
		matched = append(matched, ev)
	}
	return matched, nil
}

// normalize round-trips a YAML-decoded value through JSON so that numbers
// and maps compare like decoded payloads.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// subsetMatch reports whether actual contains expected. Maps match when
// every expected key matches; lists match element-wise with equal length;
// scalars match when equal.
func subsetMatch(actual, expected any) bool {
	switch want := expected.(type) {
	case map[string]any:
		got, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, v := range want {
			av, exists := got[k]
			if !exists || !subsetMatch(av, v) {
				return false
			}
		}
		return true
	case []any:
		got, ok := actual.([]any)
		if !ok || len(got) != len(want) {
			return false
		}
		for i := range want {
			if !subsetMatch(got[i], want[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(actual, expected)
	}
}

func describe(a Assertion) string {
	s := "event on " + a.Channel
	if a.Tick != 0 {
		s += fmt.Sprintf(" at tick %d", a.Tick)
	}
	if a.Payload != nil {
		s += fmt.Sprintf(" with payload %v", a.Payload)
	}
	return s
}

package harness

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TraceEvent is one raised event, with its payload as canonical JSON.
type TraceEvent struct {
	Tick    uint64          `json:"tick"`
	Seq     int64           `json:"seq"`
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every raised event in raise order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Stage is the final lifecycle stage.
	Stage string `json:"stage"`

	// Fatal is the crash-guard phase that shut the supervisor down, or
	// empty.
	Fatal string `json:"fatal,omitempty"`

	// Ticks is the number of ticks the supervisor ran.
	Ticks uint64 `json:"ticks"`

	// Output is everything console commands printed.
	Output string `json:"output,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// TraceText renders the trace one event per line:
//
//	tick=1 seq=2 specialized.load_stage_changed {"new":"ready","old":"unloaded"}
func (r *Result) TraceText() string {
	var b strings.Builder
	for _, ev := range r.Trace {
		fmt.Fprintf(&b, "tick=%d seq=%d %s %s\n", ev.Tick, ev.Seq, ev.Channel, ev.Payload)
	}
	return b.String()
}

// Package harness runs YAML scenarios against the supervisor and a
// simulated host, and checks the raised events.
//
// # Scenario Format
//
//	name: location_list
//	description: "Adding and removing locations raises one list event"
//	loaded: true
//	options:
//	  tick_rate: 60
//	  advance_ceiling: 5
//	setup:
//	  - action: set_menu
//	    args: { name: inventory }
//	ticks:
//	  - advance: 1
//	  - action: add_location
//	    args: { name: Mine }
//	  - command: "help"
//	  - advance: 1
//	  - render: 1
//	assertions:
//	  - type: raised
//	    channel: world.location_list_changed
//	    payload: { added: [Mine] }
//	  - type: order
//	    channels: [world.location_list_changed, game_loop.update_ticking]
//
// # Assertion Types
//
//   - raised: an event on channel (optionally at tick, matching a payload
//     subset) was raised
//   - not_raised: no such event was raised
//   - order: the channels occur as a subsequence of the trace
//   - count: channel was raised exactly count times
//   - stage: the final lifecycle stage
//   - fatal: the crash-guard phase that shut down the run, or none
//
// # Deterministic Testing
//
// Each run uses a fresh simulated host and event manager with sequential
// subscription tokens. Payloads are recorded as canonical JSON, so traces
// are byte-identical across runs and suitable for golden comparison.
package harness

// Package journal records raised events in a SQLite database for offline
// inspection.
//
// The journal is diagnostic only. Nothing written here is ever read back
// into the supervisor; a run can be inspected afterwards with
// `hostloop trace --db <path>`.
//
// Payloads are stored as canonical JSON (sorted keys, NFC strings, no HTML
// escaping) together with a domain-separated SHA-256 digest, so two runs of
// the same scenario produce byte-identical rows apart from the run ID.
package journal

// Package command implements the console command path: a thread-safe queue
// filled by an input goroutine, a tokenizer, and a registry of handlers that
// the supervisor drains once per tick.
//
// Parse and execution failures affect only the offending line; the drain
// continues with the next one.
package command

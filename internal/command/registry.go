package command

import (
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownCommand is returned when executing an unregistered command.
var ErrUnknownCommand = errors.New("unknown command")

// ErrDuplicateCommand is returned when registering a name twice.
var ErrDuplicateCommand = errors.New("command already registered")

// Handler runs a command. Args exclude the command name.
type Handler func(args []string) error

// Info describes a registered command.
type Info struct {
	Name  string
	Owner string
	Help  string
}

type entry struct {
	Info
	fn Handler
}

// Registry maps command names to handlers.
//
// Thread-safety: Register and Execute are safe for concurrent use, but the
// supervisor only executes commands on the tick goroutine.
type Registry struct {
	mu       sync.RWMutex
	commands map[string]entry
	out      io.Writer
}

// NewRegistry creates a registry with the built-in help command. Help text
// is written to out.
func NewRegistry(out io.Writer) *Registry {
	if out == nil {
		out = io.Discard
	}
	r := &Registry{commands: make(map[string]entry), out: out}
	_ = r.Register("help", "core", "Lists commands, or describes one: help [name]", r.help)
	return r
}

// Register adds a command. Names are case-insensitive.
func (r *Registry) Register(name, owner, help string, fn Handler) error {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || strings.ContainsFunc(key, func(c rune) bool { return c == ' ' || c == '"' }) {
		return fmt.Errorf("register command %q: invalid name", name)
	}
	if fn == nil {
		return fmt.Errorf("register command %q: nil handler", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.commands[key]; ok {
		return fmt.Errorf("register command %q (owner %s): %w by %s", name, owner, ErrDuplicateCommand, existing.Owner)
	}
	r.commands[key] = entry{Info: Info{Name: key, Owner: owner, Help: help}, fn: fn}
	return nil
}

// Commands lists registered commands in name order.
func (r *Registry) Commands() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Info, 0, len(r.commands))
	for _, e := range r.commands {
		out = append(out, e.Info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Execute parses raw and runs the matching handler. A panicking handler is
// reported as an error.
func (r *Registry) Execute(raw string) error {
	inv, err := Parse(raw)
	if err != nil {
		return err
	}

	r.mu.RLock()
	e, ok := r.commands[inv.Name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, inv.Name)
	}

	return run(e, inv.Args)
}

func run(e entry, args []string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("command %s (owner %s) panicked: %v\n%s", e.Name, e.Owner, rec, debug.Stack())
		}
	}()
	if err := e.fn(args); err != nil {
		return fmt.Errorf("command %s (owner %s): %w", e.Name, e.Owner, err)
	}
	return nil
}

func (r *Registry) help(args []string) error {
	if len(args) > 0 {
		name := strings.ToLower(args[0])
		r.mu.RLock()
		e, ok := r.commands[name]
		r.mu.RUnlock()
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
		}
		_, err := fmt.Fprintf(r.out, "%s: %s\n", e.Name, e.Help)
		return err
	}

	for _, info := range r.Commands() {
		if _, err := fmt.Fprintf(r.out, "%-16s %s (%s)\n", info.Name, info.Help, info.Owner); err != nil {
			return err
		}
	}
	return nil
}

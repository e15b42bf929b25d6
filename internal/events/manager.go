package events

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
)

// ErrUnknownChannel is returned when subscribing to a channel that was never
// defined.
var ErrUnknownChannel = errors.New("unknown event channel")

// ErrUnknownToken is returned when a token does not identify a live
// subscription.
var ErrUnknownToken = errors.New("unknown subscription token")

// Tier orders subscribers across modules. Lower tiers run first.
type Tier int

const (
	// TierSystem is reserved for the supervision core's own handlers.
	TierSystem Tier = iota
	// TierExtension is the tier of third-party extension modules.
	TierExtension
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierSystem:
		return "system"
	case TierExtension:
		return "extension"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Token identifies one subscription.
type Token string

// Event is what a subscriber receives.
type Event struct {
	Channel Channel
	Tick    uint64
	Seq     int64
	Payload any
}

// Handler is an extension callback. Returned errors are logged, not
// propagated.
type Handler func(Event) error

// Outcome summarizes one Raise.
type Outcome struct {
	Invoked int
	Failed  int
}

// Tap observes every raise after its subscribers ran. Taps run on the
// raising goroutine and must not block.
type Tap func(ev Event, out Outcome)

// ChannelInfo describes a channel for introspection.
type ChannelInfo struct {
	Name        Channel `json:"name"`
	Subscribers int     `json:"subscribers"`
}

type subscriber struct {
	token   Token
	channel Channel
	owner   string
	tier    Tier
	order   uint64
	fn      Handler
	enabled atomic.Bool
	removed atomic.Bool
}

// Manager owns all channels and their subscriber lists.
//
// Thread-safety: every method is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	channels map[Channel][]*subscriber // copy-on-write; never mutated in place
	byToken  map[Token]*subscriber
	taps     []Tap
	order    uint64

	tokens TokenGenerator
	clock  *Clock
	tick   atomic.Uint64
	logger *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithTokenGenerator overrides the token generator (for deterministic tests).
func WithTokenGenerator(g TokenGenerator) Option {
	return func(m *Manager) { m.tokens = g }
}

// WithLogger sets the logger used for subscriber failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager with every channel in Catalog defined.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		channels: make(map[Channel][]*subscriber, len(Catalog)),
		byToken:  make(map[Token]*subscriber),
		tokens:   UUIDv7Generator{},
		clock:    NewClock(),
		logger:   slog.Default(),
	}
	for _, ch := range Catalog {
		m.channels[ch] = nil
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Define creates a custom channel. Defining an existing channel is a no-op.
// Channels are never destroyed.
func (m *Manager) Define(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.channels[ch]; !ok {
		m.channels[ch] = nil
	}
}

// IsDefined reports whether ch exists.
func (m *Manager) IsDefined(ch Channel) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.channels[ch]
	return ok
}

// Subscribe registers fn on ch for owner.
func (m *Manager) Subscribe(ch Channel, owner string, tier Tier, fn Handler) (Token, error) {
	if fn == nil {
		return "", fmt.Errorf("subscribe %s: nil handler", ch)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	subs, ok := m.channels[ch]
	if !ok {
		return "", fmt.Errorf("subscribe %s: %w", ch, ErrUnknownChannel)
	}

	m.order++
	s := &subscriber{
		token:   Token(m.tokens.Generate()),
		channel: ch,
		owner:   owner,
		tier:    tier,
		order:   m.order,
		fn:      fn,
	}
	s.enabled.Store(true)

	next := make([]*subscriber, len(subs), len(subs)+1)
	copy(next, subs)
	next = append(next, s)
	sort.SliceStable(next, func(i, j int) bool {
		if next[i].tier != next[j].tier {
			return next[i].tier < next[j].tier
		}
		return next[i].order < next[j].order
	})

	m.channels[ch] = next
	m.byToken[s.token] = s
	return s.token, nil
}

// Unsubscribe removes a subscription. Safe to call from inside a callback,
// including the subscription's own.
func (m *Manager) Unsubscribe(tok Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.byToken[tok]
	if !ok {
		return fmt.Errorf("unsubscribe %s: %w", tok, ErrUnknownToken)
	}
	s.removed.Store(true)
	delete(m.byToken, tok)

	subs := m.channels[s.channel]
	next := make([]*subscriber, 0, len(subs))
	for _, other := range subs {
		if other != s {
			next = append(next, other)
		}
	}
	m.channels[s.channel] = next
	return nil
}

// UnsubscribeOwner removes every subscription of owner and returns how many
// were removed.
func (m *Manager) UnsubscribeOwner(owner string) int {
	m.mu.RLock()
	var toks []Token
	for tok, s := range m.byToken {
		if s.owner == owner {
			toks = append(toks, tok)
		}
	}
	m.mu.RUnlock()

	n := 0
	for _, tok := range toks {
		if m.Unsubscribe(tok) == nil {
			n++
		}
	}
	return n
}

// SetEnabled enables or disables a subscription without removing it.
func (m *Manager) SetEnabled(tok Token, enabled bool) error {
	m.mu.RLock()
	s, ok := m.byToken[tok]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("set enabled %s: %w", tok, ErrUnknownToken)
	}
	s.enabled.Store(enabled)
	return nil
}

// AddTap registers an observer of every raise.
func (m *Manager) AddTap(t Tap) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taps = append(append([]Tap(nil), m.taps...), t)
}

// SetTick sets the tick number stamped on raised events.
func (m *Manager) SetTick(tick uint64) {
	m.tick.Store(tick)
}

// HasSubscribers reports whether ch has at least one enabled subscriber.
func (m *Manager) HasSubscribers(ch Channel) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.channels[ch] {
		if s.enabled.Load() {
			return true
		}
	}
	return false
}

// Channels lists every defined channel with its subscriber count, in name
// order.
func (m *Manager) Channels() []ChannelInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ChannelInfo, 0, len(m.channels))
	for ch, subs := range m.channels {
		out = append(out, ChannelInfo{Name: ch, Subscribers: len(subs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Raise invokes every enabled subscriber on ch with payload.
//
// Raise never returns an error and never panics because of a subscriber;
// failures are logged and counted in the returned Outcome. Raising an
// undefined channel logs a warning and does nothing.
func (m *Manager) Raise(ch Channel, payload any) Outcome {
	m.mu.RLock()
	subs, ok := m.channels[ch]
	taps := m.taps
	m.mu.RUnlock()

	if !ok {
		m.logger.Warn("raise on undefined channel", "channel", ch)
		return Outcome{}
	}

	ev := Event{
		Channel: ch,
		Tick:    m.tick.Load(),
		Seq:     m.clock.Next(),
		Payload: payload,
	}

	var out Outcome
	for _, s := range subs {
		if s.removed.Load() || !s.enabled.Load() {
			continue
		}
		out.Invoked++
		if err := m.invoke(s, ev); err != nil {
			out.Failed++
			m.logger.Error("event subscriber failed",
				"channel", ch,
				"owner", s.owner,
				"token", s.token,
				"tick", ev.Tick,
				"error", err,
			)
		}
	}

	for _, tap := range taps {
		tap(ev, out)
	}

	return out
}

// RaiseEmpty raises ch with no payload.
func (m *Manager) RaiseEmpty(ch Channel) Outcome {
	return m.Raise(ch, nil)
}

// invoke runs one subscriber, converting a panic into a *SubscriberPanic.
func (m *Manager) invoke(s *subscriber, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &SubscriberPanic{Owner: s.owner, Value: r, Stack: debug.Stack()}
		}
	}()
	return s.fn(ev)
}

// SubscriberPanic wraps a panic recovered from a subscriber.
type SubscriberPanic struct {
	Owner string
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *SubscriberPanic) Error() string {
	return fmt.Sprintf("subscriber %s panicked: %v", e.Owner, e.Value)
}

// Subscribe is a typed convenience wrapper that asserts the payload type.
// Events whose payload is not a T are reported as subscriber errors.
func Subscribe[T any](m *Manager, ch Channel, owner string, tier Tier, fn func(tick uint64, payload T) error) (Token, error) {
	return m.Subscribe(ch, owner, tier, func(ev Event) error {
		p, ok := ev.Payload.(T)
		if !ok {
			return fmt.Errorf("channel %s: payload is %T, not %T", ev.Channel, ev.Payload, p)
		}
		return fn(ev.Tick, p)
	})
}

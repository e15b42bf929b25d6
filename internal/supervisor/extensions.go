package supervisor

import (
	"errors"
	"fmt"

	"github.com/roach88/hostloop/internal/events"
	"github.com/roach88/hostloop/internal/watcher"
)

// WatcherID identifies an extension watcher.
type WatcherID uint64

type extensionWatcher struct {
	id      WatcherID
	owner   string
	channel events.Channel
	w       watcher.Watcher
}

type extensionChange struct {
	add    *extensionWatcher
	remove WatcherID
}

// AddWatcher registers an extension-owned watcher that raises ch whenever
// it reports a change. The watcher is primed and starts observing at the
// next tick; it never reports the state it was added in as a change.
//
// If w implements watcher.Payloader its Payload is the event payload.
// Thread-safe: may be called from any goroutine, including from inside an
// event callback.
func (s *Supervisor) AddWatcher(owner string, ch events.Channel, w watcher.Watcher) (WatcherID, error) {
	if w == nil {
		return 0, fmt.Errorf("add watcher for %s: nil watcher", owner)
	}
	if !s.events.IsDefined(ch) {
		return 0, fmt.Errorf("add watcher for %s on %s: %w", owner, ch, events.ErrUnknownChannel)
	}

	s.extMu.Lock()
	defer s.extMu.Unlock()
	s.extNextID++
	ew := &extensionWatcher{id: s.extNextID, owner: owner, channel: ch, w: w}
	s.extPending = append(s.extPending, extensionChange{add: ew})
	return ew.id, nil
}

// RemoveWatcher unregisters an extension watcher at the next tick.
// Thread-safe: may be called from any goroutine.
func (s *Supervisor) RemoveWatcher(id WatcherID) error {
	s.extMu.Lock()
	defer s.extMu.Unlock()

	for i, p := range s.extPending {
		if p.add != nil && p.add.id == id {
			s.extPending = append(s.extPending[:i], s.extPending[i+1:]...)
			return nil
		}
	}
	if _, ok := s.extActive[id]; ok {
		delete(s.extActive, id)
		s.extPending = append(s.extPending, extensionChange{remove: id})
		return nil
	}
	return fmt.Errorf("remove watcher %d: %w", id, ErrUnknownWatcher)
}

// applyExtensionChanges reloads the extension watcher set. Called on the
// tick goroutine before watchers update.
func (s *Supervisor) applyExtensionChanges() {
	s.extMu.Lock()
	pending := s.extPending
	s.extPending = nil
	for _, p := range pending {
		if p.add != nil {
			if s.extActive == nil {
				s.extActive = make(map[WatcherID]struct{})
			}
			s.extActive[p.add.id] = struct{}{}
		}
	}
	s.extMu.Unlock()

	for _, p := range pending {
		if p.add != nil {
			ew := p.add
			if err := watcher.Safe(ew.owner, func() {
				ew.w.Update()
				ew.w.Reset()
			}); err != nil {
				s.logger.Error("extension watcher failed to prime; not added",
					"owner", ew.owner,
					"channel", ew.channel,
					"error", err,
				)
				s.extMu.Lock()
				delete(s.extActive, ew.id)
				s.extMu.Unlock()
				continue
			}
			s.extensions = append(s.extensions, ew)
			s.logger.Debug("extension watcher added", "owner", ew.owner, "channel", ew.channel, "id", ew.id)
			continue
		}

		for i, ew := range s.extensions {
			if ew.id == p.remove {
				s.extensions = append(s.extensions[:i:i], s.extensions[i+1:]...)
				s.logger.Debug("extension watcher removed", "owner", ew.owner, "id", ew.id)
				break
			}
		}
	}
}

// extensionCount is the number of active extension watchers.
func (s *Supervisor) extensionCount() int {
	return len(s.extensions)
}

func (s *Supervisor) logWatcherFailure(domain string, err error) {
	attrs := []any{"domain", domain, "tick", s.tick, "error", err}
	var ue *watcher.UpdateError
	if errors.As(err, &ue) {
		attrs = append(attrs, "stack", string(ue.Stack))
	}
	s.logger.Error("watcher failed; skipping its events this tick", attrs...)
}

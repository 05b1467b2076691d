package session

import (
	"sync"
	"time"

	"github.com/rite2rise/web-bff/internal/domain"
)

// Session is the registration context of one signed-in user: the derived
// snapshot of the last event fetch, the optimistic overlay on top of it and
// the events with an action in flight.
//
// The snapshot is only ever swapped whole. Overlay writes go through the
// Coordinator.
type Session struct {
	mu sync.RWMutex

	identity domain.Identity
	token    string

	index   *domain.Index
	loaded  bool
	overlay *Overlay
	pending map[string]struct{}
	// entry each in-flight action replaced, restored on rollback
	prior map[string]Entry

	// fetch ordering: a slow fetch must not overwrite a newer snapshot
	fetchSeq   uint64
	appliedSeq uint64

	lastSeen time.Time
}

// EventView pairs an event from the snapshot with the acting user's view of it.
type EventView struct {
	Event domain.Event
	View  domain.RegistrationView
}

func New(id domain.Identity, token string) *Session {
	return &Session{
		identity: id,
		token:    token,
		overlay:  NewOverlay(),
		pending:  make(map[string]struct{}),
		prior:    make(map[string]Entry),
		lastSeen: time.Now(),
	}
}

func (s *Session) Identity() domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Loaded reports whether a snapshot has been applied since the session began.
func (s *Session) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Snapshot returns the current derived index. It is immutable and stays
// valid after later replacements.
func (s *Session) Snapshot() *domain.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// IsRegistered answers from the overlay when it has an entry for eventID and
// from the snapshot otherwise.
func (s *Session) IsRegistered(eventID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRegisteredLocked(eventID)
}

func (s *Session) RegistrationCount(eventID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countLocked(eventID)
}

func (s *Session) Pending(eventID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pending[eventID]
	return ok
}

// Overlay returns a copy of the overlay entry for eventID.
func (s *Session) Overlay(eventID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.overlay.Get(eventID)
}

func (s *Session) View(eventID string, now time.Time) domain.RegistrationView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked(eventID, now)
}

// EventViews lists every event of the current snapshot with its view, all
// read under one lock so the list is consistent.
func (s *Session) EventViews(now time.Time) []EventView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.index.Events()
	out := make([]EventView, 0, len(events))
	for _, ev := range events {
		out = append(out, EventView{Event: ev, View: s.viewLocked(ev.ID, now)})
	}
	return out
}

// Replace derives a new snapshot from events and swaps it in. Overlay
// entries for settled events are dropped since the fresh data supersedes
// them; entries of actions still in flight are kept.
func (s *Session) Replace(events []domain.Event) {
	idx := domain.Derive(events)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchSeq++
	s.applyLocked(s.fetchSeq, idx)
}

// beginFetch reserves a sequence number for a fetch about to start.
func (s *Session) beginFetch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetchSeq++
	return s.fetchSeq
}

// apply installs the snapshot of fetch seq unless a later fetch has already
// been applied. It reports whether the snapshot was used.
func (s *Session) apply(seq uint64, events []domain.Event) bool {
	idx := domain.Derive(events)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(seq, idx)
}

func (s *Session) applyLocked(seq uint64, idx *domain.Index) bool {
	if seq <= s.appliedSeq {
		return false
	}
	s.appliedSeq = seq
	s.index = idx
	s.loaded = true
	s.overlay.retain(func(eventID string) bool {
		_, inFlight := s.pending[eventID]
		return inFlight
	})
	// the new snapshot supersedes whatever an in-flight action replaced
	for eventID := range s.prior {
		delete(s.prior, eventID)
	}
	return true
}

// begin runs the pre-condition checks for action on eventID and, when they
// pass, marks the event pending and installs the optimistic entry. It
// returns the view before the overlay was written.
func (s *Session) begin(eventID string, action Action, now time.Time) (domain.RegistrationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.index.Event(eventID)
	if !ok {
		return domain.RegistrationView{}, domain.ErrEventNotFound
	}

	before := s.viewLocked(eventID, now)
	id := s.identity

	var err error
	switch action {
	case ActionRegister:
		err = domain.CheckRegister(&ev, before, &id, now)
	case ActionUnregister:
		err = domain.CheckUnregister(&ev, before, &id, now)
	}
	if err != nil {
		return before, err
	}

	s.pending[eventID] = struct{}{}
	if prev, ok := s.overlay.Get(eventID); ok {
		s.prior[eventID] = prev
	}
	if action == ActionRegister {
		s.overlay.Set(eventID, true, before.Count+1)
	} else {
		s.overlay.Set(eventID, false, before.Count-1)
	}
	return before, nil
}

// rollback puts back the entry the action replaced, or clears the optimistic
// entry so reads return to the snapshot when there was none.
func (s *Session) rollback(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.prior[eventID]; ok {
		s.overlay.Set(eventID, prev.IsRegistered, prev.Count)
		return
	}
	s.overlay.Clear(eventID)
}

// settle clears the optimistic entry for eventID and applies the snapshot of
// fetch seq in one step.
func (s *Session) settle(eventID string, seq uint64, events []domain.Event) {
	idx := domain.Derive(events)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay.Clear(eventID)
	s.applyLocked(seq, idx)
}

func (s *Session) finish(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, eventID)
	delete(s.prior, eventID)
}

func (s *Session) isRegisteredLocked(eventID string) bool {
	if e, ok := s.overlay.Get(eventID); ok {
		return e.IsRegistered
	}
	return s.index.IsRegistered(eventID, s.identity.ID)
}

func (s *Session) countLocked(eventID string) int {
	if e, ok := s.overlay.Get(eventID); ok {
		return e.Count
	}
	return s.index.Count(eventID)
}

func (s *Session) viewLocked(eventID string, now time.Time) domain.RegistrationView {
	_, optimistic := s.overlay.Get(eventID)
	_, pending := s.pending[eventID]

	v := domain.RegistrationView{
		Registered: s.isRegisteredLocked(eventID),
		Count:      s.countLocked(eventID),
		Pending:    pending,
		Optimistic: optimistic,
	}
	if ev, ok := s.index.Event(eventID); ok {
		v.Full = domain.IsFull(&ev, v.Count)
		v.Past = ev.IsPast(now)
	}
	return v
}

// touch swaps in a newer token for the same user and marks the
// session as used.
func (s *Session) touch(id domain.Identity, token string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != "" && token != s.token {
		s.identity = id
		s.token = token
	}
	s.lastSeen = now
}

func (s *Session) idleSince(now time.Time) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return now.Sub(s.lastSeen), len(s.pending) > 0
}

func (s *Session) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay.detach()
}

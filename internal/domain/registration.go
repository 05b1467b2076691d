package domain

// Registration is one (event, user) pair derived from an event's confirmed users.
type Registration struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
}

// Index is an immutable registration lookup built from one event snapshot.
// It is never patched; a new snapshot produces a new Index.
type Index struct {
	events  []Event
	byID    map[string]int
	members map[string]map[string]struct{}
	regs    []Registration
}

// Derive flattens the confirmed-user lists of events into an Index. Each
// indexed event has CurrentParticipants synced to len(ConfirmedUsers). The
// input slice is left untouched.
func Derive(events []Event) *Index {
	idx := &Index{
		events:  make([]Event, 0, len(events)),
		byID:    make(map[string]int, len(events)),
		members: make(map[string]map[string]struct{}, len(events)),
	}

	for _, ev := range events {
		ev.ConfirmedUsers = append([]User(nil), ev.ConfirmedUsers...)
		ev.CurrentParticipants = len(ev.ConfirmedUsers)

		if pos, dup := idx.byID[ev.ID]; dup {
			// a later copy of the same id wins, keeping the first position
			idx.events[pos] = ev
		} else {
			idx.byID[ev.ID] = len(idx.events)
			idx.events = append(idx.events, ev)
		}

		set := make(map[string]struct{}, len(ev.ConfirmedUsers))
		for _, u := range ev.ConfirmedUsers {
			set[u.ID] = struct{}{}
		}
		idx.members[ev.ID] = set
	}

	for _, ev := range idx.events {
		seen := make(map[string]struct{}, len(ev.ConfirmedUsers))
		for _, u := range ev.ConfirmedUsers {
			if _, ok := seen[u.ID]; ok {
				continue
			}
			seen[u.ID] = struct{}{}
			idx.regs = append(idx.regs, Registration{EventID: ev.ID, UserID: u.ID})
		}
	}

	return idx
}

// Count is the number of confirmed users for eventID, 0 when unknown.
func (x *Index) Count(eventID string) int {
	if x == nil {
		return 0
	}
	pos, ok := x.byID[eventID]
	if !ok {
		return 0
	}
	return len(x.events[pos].ConfirmedUsers)
}

func (x *Index) IsRegistered(eventID, userID string) bool {
	if x == nil || userID == "" {
		return false
	}
	_, ok := x.members[eventID][userID]
	return ok
}

func (x *Index) Event(eventID string) (Event, bool) {
	if x == nil {
		return Event{}, false
	}
	pos, ok := x.byID[eventID]
	if !ok {
		return Event{}, false
	}
	return x.events[pos], true
}

// Events returns the indexed events in snapshot order.
func (x *Index) Events() []Event {
	if x == nil {
		return nil
	}
	out := make([]Event, len(x.events))
	copy(out, x.events)
	return out
}

func (x *Index) Registrations() []Registration {
	if x == nil {
		return nil
	}
	out := make([]Registration, len(x.regs))
	copy(out, x.regs)
	return out
}

func (x *Index) Len() int {
	if x == nil {
		return 0
	}
	return len(x.events)
}

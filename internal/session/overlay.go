package session

// Entry is the optimistic registration state of one event for the acting
// user. It says nothing about other users.
type Entry struct {
	IsRegistered bool `json:"is_registered"`
	Count        int  `json:"count"`
}

// Overlay holds at most one Entry per event id. It is not safe for concurrent
// use; Session serializes access to it.
type Overlay struct {
	entries map[string]Entry
	// counted in the overlay entries gauge until detached
	tracked bool
}

func NewOverlay() *Overlay {
	return &Overlay{entries: make(map[string]Entry), tracked: true}
}

// Set installs or replaces the entry for eventID. The last writer wins.
func (o *Overlay) Set(eventID string, registered bool, count int) {
	if count < 0 {
		count = 0
	}
	if _, ok := o.entries[eventID]; !ok && o.tracked {
		overlayEntries.Inc()
	}
	o.entries[eventID] = Entry{IsRegistered: registered, Count: count}
}

// Clear removes the entry for eventID so reads fall back to the snapshot.
// Clearing an absent entry is a no-op.
func (o *Overlay) Clear(eventID string) {
	if _, ok := o.entries[eventID]; ok {
		delete(o.entries, eventID)
		if o.tracked {
			overlayEntries.Dec()
		}
	}
}

func (o *Overlay) Get(eventID string) (Entry, bool) {
	e, ok := o.entries[eventID]
	return e, ok
}

func (o *Overlay) Len() int {
	return len(o.entries)
}

// retain drops every entry whose event id keep rejects.
func (o *Overlay) retain(keep func(eventID string) bool) {
	for id := range o.entries {
		if !keep(id) {
			o.Clear(id)
		}
	}
}

// detach takes the overlay's entries out of the gauge once. Later writes,
// e.g. a rollback of an action still in flight, no longer move it.
func (o *Overlay) detach() {
	if !o.tracked {
		return
	}
	overlayEntries.Sub(float64(len(o.entries)))
	o.tracked = false
}

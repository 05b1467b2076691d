package domain

import (
	"errors"
	"time"
)

var (
	ErrAuthRequired      = errors.New("auth_required")
	ErrRoleNotAllowed    = errors.New("role_not_allowed")
	ErrActionPending     = errors.New("action_pending")
	ErrEventPast         = errors.New("event_past")
	ErrEventFull         = errors.New("event_full")
	ErrAlreadyRegistered = errors.New("already_registered")
	ErrNotRegistered     = errors.New("not_registered")
	ErrEventNotFound     = errors.New("event_not_found")
)

// RegistrationView is the registration state of one event as seen by the
// acting user, after the optimistic overlay has been applied.
type RegistrationView struct {
	Registered bool `json:"is_registered"`
	Count      int  `json:"count"`
	Full       bool `json:"is_full"`
	Past       bool `json:"is_past"`
	Pending    bool `json:"pending"`
	Optimistic bool `json:"optimistic"`
}

type ActionPolicy struct {
	CanRegister   bool   `json:"can_register"`
	CanUnregister bool   `json:"can_unregister"`
	Reason        string `json:"reason,omitempty"`
}

// IsFull reports whether count has reached the event capacity.
func IsFull(ev *Event, count int) bool {
	max, ok := ev.Capacity()
	return ok && count >= max
}

// CalculateActionPolicy determines which registration controls are offered for
// an event. The checks are advisory; the external API is authoritative.
func CalculateActionPolicy(event *Event, view RegistrationView, id *Identity, now time.Time) ActionPolicy {
	// 1. Auth Gate
	if id == nil || id.ID == "" {
		return ActionPolicy{Reason: ErrAuthRequired.Error()}
	}

	// 2. Only regular users register for events
	if id.Role != RoleUser {
		return ActionPolicy{Reason: ErrRoleNotAllowed.Error()}
	}

	// 3. One action per event at a time
	if view.Pending {
		return ActionPolicy{Reason: ErrActionPending.Error()}
	}

	// 4. Past events: neither register nor unregister
	if event.IsPast(now) {
		return ActionPolicy{Reason: ErrEventPast.Error()}
	}

	if view.Registered {
		return ActionPolicy{
			CanUnregister: true,
			Reason:        ErrAlreadyRegistered.Error(),
		}
	}

	if IsFull(event, view.Count) {
		return ActionPolicy{Reason: ErrEventFull.Error()}
	}

	return ActionPolicy{CanRegister: true}
}

// CheckRegister returns the reason a register intent must be rejected before
// dispatch, or nil.
func CheckRegister(event *Event, view RegistrationView, id *Identity, now time.Time) error {
	p := CalculateActionPolicy(event, view, id, now)
	if p.CanRegister {
		return nil
	}
	return reasonErr(p.Reason)
}

// CheckUnregister is the unregister counterpart of CheckRegister.
func CheckUnregister(event *Event, view RegistrationView, id *Identity, now time.Time) error {
	p := CalculateActionPolicy(event, view, id, now)
	if p.CanUnregister {
		return nil
	}
	if p.Reason == "" || p.Reason == ErrEventFull.Error() {
		return ErrNotRegistered
	}
	return reasonErr(p.Reason)
}

func reasonErr(reason string) error {
	for _, err := range []error{
		ErrAuthRequired,
		ErrRoleNotAllowed,
		ErrActionPending,
		ErrEventPast,
		ErrEventFull,
		ErrAlreadyRegistered,
		ErrNotRegistered,
	} {
		if err.Error() == reason {
			return err
		}
	}
	return errors.New(reason)
}

package domain

import (
	"time"
)

type Role string

const (
	RoleUser            Role = "user"
	RoleServiceProvider Role = "serviceProvider"
	RoleAdmin           Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleServiceProvider, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Role         Role   `json:"role,omitempty"`
	BusinessName string `json:"BusinessName,omitempty"`
	Phone        string `json:"Phone,omitempty"`
	Address      string `json:"Address,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Organizer is the service provider owning an event, read-only when browsing.
type Organizer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Event mirrors the external API's event shape. ConfirmedUsers is the
// authoritative record of who is registered.
type Event struct {
	ID                  string    `json:"id"`
	Name                string    `json:"Name"`
	Description         *string   `json:"description"`
	Date                time.Time `json:"date"`
	Location            string    `json:"location"`
	ServiceProviderID   string    `json:"serviceProviderId,omitempty"`
	ServiceProvider     Organizer `json:"serviceProvider"`
	ConfirmedUsers      []User    `json:"ConfirmedUsers"`
	MaxParticipants     *int      `json:"maxParticipants,omitempty"`
	CurrentParticipants int       `json:"currentParticipants"`
	CreatedAt           time.Time `json:"createdAt,omitzero"`
	UpdatedAt           time.Time `json:"updatedAt,omitzero"`
}

// DescriptionText returns the description, or "" when absent.
func (e *Event) DescriptionText() string {
	if e.Description == nil {
		return ""
	}
	return *e.Description
}

// Capacity reports the participant limit. A missing or non-positive value
// means unlimited.
func (e *Event) Capacity() (int, bool) {
	if e.MaxParticipants == nil || *e.MaxParticipants <= 0 {
		return 0, false
	}
	return *e.MaxParticipants, true
}

// IsPast is true once the event date is not strictly after now.
func (e *Event) IsPast(now time.Time) bool {
	return !e.Date.After(now)
}

// Identity is the display identity decoded from the bearer token.
type Identity struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

type CreateEventInput struct {
	Name              string  `json:"Name" validate:"required,max=200"`
	Description       *string `json:"description,omitempty" validate:"omitempty,max=5000"`
	Date              string  `json:"date" validate:"required,future_datetime"`
	Location          string  `json:"location" validate:"required,max=300"`
	ServiceProviderID string  `json:"serviceProviderId" validate:"required"`
	MaxParticipants   *int    `json:"maxParticipants,omitempty" validate:"omitempty,min=1"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignupInput struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Name            string `json:"name" validate:"required"`
	BusinessName    string `json:"businessName,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Address         string `json:"address,omitempty"`
	Description     string `json:"description,omitempty"`
}

type APIError struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withClock(t *testing.T, now time.Time) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = prev })
}

func TestValidateCreateEvent(t *testing.T) {
	withClock(t, time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC))

	valid := func() CreateEventInput {
		return CreateEventInput{
			Name:              "  Tree Planting ",
			Date:              "2026-11-01T10:00:00+02:00",
			Location:          "Soweto",
			ServiceProviderID: "sp-1",
		}
	}

	t.Run("valid input is normalized", func(t *testing.T) {
		in := valid()
		require.NoError(t, ValidateCreateEvent(&in))
		assert.Equal(t, "Tree Planting", in.Name)
		assert.Equal(t, "2026-11-01T08:00:00Z", in.Date)
	})

	t.Run("datetime-local format accepted", func(t *testing.T) {
		in := valid()
		in.Date = "2026-11-01T10:00"
		require.NoError(t, ValidateCreateEvent(&in))
		assert.Equal(t, "2026-11-01T10:00:00Z", in.Date)
	})

	t.Run("missing fields", func(t *testing.T) {
		in := CreateEventInput{}
		err := ValidateCreateEvent(&in)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Len(t, ve.Fields, 4)
		assert.Equal(t, "Please fill in all required fields", ve.Fields[0].Message)
	})

	t.Run("past date", func(t *testing.T) {
		in := valid()
		in.Date = "2026-10-01T10:00:00Z"
		err := ValidateCreateEvent(&in)
		assert.EqualError(t, err, "Event date must be in the future")
	})

	t.Run("non positive capacity", func(t *testing.T) {
		in := valid()
		zero := 0
		in.MaxParticipants = &zero
		var ve *ValidationError
		require.ErrorAs(t, ValidateCreateEvent(&in), &ve)
		assert.Equal(t, "maxParticipants", ve.Fields[0].Field)
	})
}

func TestValidateSignup(t *testing.T) {
	base := SignupInput{
		Email:           "thandi@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Name:            "Thandi",
	}

	t.Run("user ok", func(t *testing.T) {
		in := base
		assert.NoError(t, ValidateSignup(RoleUser, &in))
	})

	t.Run("password mismatch", func(t *testing.T) {
		in := base
		in.ConfirmPassword = "secret2"
		assert.EqualError(t, ValidateSignup(RoleUser, &in), "Passwords do not match")
	})

	t.Run("password too short", func(t *testing.T) {
		in := base
		in.Password, in.ConfirmPassword = "abc", "abc"
		assert.EqualError(t, ValidateSignup(RoleUser, &in), "Password must be at least 6 characters long")
	})

	t.Run("provider needs business name", func(t *testing.T) {
		in := base
		assert.EqualError(t, ValidateSignup(RoleServiceProvider, &in), "Business name is required")

		in.BusinessName = "Youth Hub"
		assert.NoError(t, ValidateSignup(RoleServiceProvider, &in))
	})
}

func TestValidateLogin(t *testing.T) {
	assert.NoError(t, ValidateLogin(&LoginInput{Email: "a@b.co", Password: "x"}))
	assert.Error(t, ValidateLogin(&LoginInput{Email: "nope", Password: "x"}))
}

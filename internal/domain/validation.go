package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

// nowFunc is swapped in tests that need a fixed clock.
var nowFunc = time.Now

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	validate.RegisterValidation("future_datetime", validateFutureDatetime)
}

// validateFutureDatetime checks an RFC 3339 string that lies in the future.
func validateFutureDatetime(fl validator.FieldLevel) bool {
	t, err := parseEventDate(fl.Field().String())
	if err != nil {
		return false
	}
	return t.After(nowFunc())
}

// parseEventDate accepts RFC 3339 and the minute-precision value produced by
// an HTML datetime-local input.
func parseEventDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", s, time.UTC)
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is raised before any network call and never forwarded.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

// ValidateCreateEvent checks the provider's event form and normalizes the
// date to RFC 3339 UTC.
func ValidateCreateEvent(in *CreateEventInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Location = strings.TrimSpace(in.Location)
	if err := validate.Struct(in); err != nil {
		return formatValidationErrors(err)
	}
	t, _ := parseEventDate(in.Date)
	in.Date = t.UTC().Format(time.RFC3339)
	return nil
}

// ValidateSignup checks the signup form for a role. Service providers must
// supply a business name.
func ValidateSignup(role Role, in *SignupInput) error {
	var fields []FieldError
	if err := validate.Struct(in); err != nil {
		var ve *ValidationError
		if errors.As(formatValidationErrors(err), &ve) {
			fields = ve.Fields
		}
	}
	if role == RoleServiceProvider && strings.TrimSpace(in.BusinessName) == "" {
		fields = append(fields, FieldError{Field: "businessName", Message: "Business name is required"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func ValidateLogin(in *LoginInput) error {
	if err := validate.Struct(in); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: []FieldError{{Message: err.Error()}}}
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Message: messageFor(fe),
		})
	}
	return out
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Please fill in all required fields"
	case "email":
		return "Invalid email address"
	case "future_datetime":
		return "Event date must be in the future"
	case "eqfield":
		return "Passwords do not match"
	case "min":
		if fe.Field() == "password" {
			return "Password must be at least 6 characters long"
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

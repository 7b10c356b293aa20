package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/form"
)

// Layouts accepted for booking date and time fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// newValidator returns a validator that reports fields by their form name
// and knows the custom tags used by the form structs in this package:
//
//	email_shaped  contains "@" and "."
//	date          parses as YYYY-MM-DD
//	clock         parses as HH:MM
func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "email_shaped", func(fl validator.FieldLevel) bool {
		return form.LooksLikeEmail(fl.Field().String())
	})
	mustRegister(v, "date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	mustRegister(v, "clock", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(TimeLayout, fl.Field().String())
		return err == nil
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("service: registering %q validation: %v", tag, err))
	}
}

// validationError turns the first failed rule into an apperror.ErrValidation
// carrying the form field name. Anything else is returned unchanged.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return apperror.ValidationFailed(fe.Field(), fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email_shaped":
		return "enter a valid email address"
	case "date":
		return "use the format YYYY-MM-DD"
	case "clock":
		return "use the format HH:MM"
	}
	return "is invalid"
}

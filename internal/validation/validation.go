package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"agendamento-backend/internal/apperr"
	"agendamento-backend/internal/schedule"
)

type Validator struct {
	v *validator.Validate
}

var nonDigits = regexp.MustCompile(`[^0-9]`)

// phoneShape accepts digits with the usual Brazilian punctuation: "(22)97402-9231", "+55 22 97402 9231".
var phoneShape = regexp.MustCompile(`^\+?[0-9()\-\s.]+$`)

func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		_, err := schedule.ParseDate(value, time.UTC)
		return err == nil
	})

	v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		return schedule.IsValidClock(value)
	})

	v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}
		if !phoneShape.MatchString(value) {
			return false
		}
		digits := nonDigits.ReplaceAllString(value, "")
		return len(digits) >= 8 && len(digits) <= 13
	})

	return &Validator{v: v}
}

func (v *Validator) Struct(s interface{}) error {
	return v.v.Struct(s)
}

func (v *Validator) ValidationErrors(err error) validator.ValidationErrors {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

// Details maps each failing field, by its JSON path, to a short reason.
func Details(errs validator.ValidationErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	details := make(map[string]string, len(errs))
	for _, err := range errs {
		details[fieldPath(err)] = reason(err)
	}
	return details
}

// Check validates s and returns an *apperr.ValidationError listing every failing field.
func (v *Validator) Check(s interface{}) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	if errs := v.ValidationErrors(err); errs != nil {
		return apperr.NewValidation(Details(errs))
	}
	return err
}

func fieldPath(err validator.FieldError) string {
	ns := err.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return err.Field()
}

func reason(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "required"
	case "date":
		return "must be a valid YYYY-MM-DD date"
	case "clock":
		return "must be HH:MM"
	case "phone":
		return "invalid phone"
	case "email":
		return "invalid email"
	case "gt", "gte", "min":
		return "must be at least " + err.Param()
	case "oneof":
		return "must be one of: " + err.Param()
	default:
		return err.Tag()
	}
}

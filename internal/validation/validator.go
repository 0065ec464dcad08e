package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/tixit/internal/domain"
)

var (
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("ticket_category", func(fl validator.FieldLevel) bool {
		return domain.Category(strings.TrimSpace(fl.Field().String())).Valid()
	})
	_ = v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		if !datePattern.MatchString(s) {
			return false
		}
		_, err := time.Parse(domain.DateLayout, s)
		return err == nil
	})
	_ = v.RegisterValidation("clock_time", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		if !timePattern.MatchString(s) {
			return false
		}
		_, err := time.Parse(domain.TimeLayout, s)
		return err == nil
	})
	return v
}

// fieldErrors flattens validator errors into field -> reason.
func fieldErrors(err error) map[string]any {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]any{"_": err.Error()}
	}
	out := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "email":
		return "must be a valid email address"
	case "ticket_category":
		return "must be a known category"
	case "calendar_date":
		return "must be a valid date in YYYY-MM-DD format"
	case "clock_time":
		return "must be a 24-hour time in HH:MM format"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

package meeting

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/teamtalk/talktome/internal/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report json field names ("meetingId", not "MeetingID").
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validate checks s against its `validate` tags. The first failing field's
// `msg` tag (or "<field> required"/"<field> is invalid") becomes the error
// message; all failures are listed in Details["fields"].
// Callers trim strings before validating.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return errors.NewInvalidRequest("invalid request")
	}

	t := reflect.TypeOf(s)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, FieldError{
			Field:   e.Field(),
			Message: fieldMessage(t, e),
		})
	}

	appErr := errors.NewInvalidRequest(fields[0].Message)
	appErr.Details = map[string]any{"fields": fields}
	return appErr
}

func fieldMessage(t reflect.Type, e validator.FieldError) string {
	if t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(e.StructField()); ok {
			if msg := f.Tag.Get("msg"); msg != "" {
				return msg
			}
		}
	}
	switch e.Tag() {
	case "required":
		return e.Field() + " required"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	default:
		return e.Field() + " is invalid"
	}
}

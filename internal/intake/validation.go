package intake

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pawwatch/api/internal/model"
)

// ValidationError lists the form fields that failed validation, keyed by the
// form's JSON field name.
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	names := e.FieldNames()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+e.Fields[name])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FieldNames returns the failing fields in sorted order.
func (e *ValidationError) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("dog_status", validateDogStatus)
	return v
}

func validateDogStatus(fl validator.FieldLevel) bool {
	return model.Status(fl.Field().String()).Valid()
}

var messages = map[string]string{
	"required":   "is required",
	"dog_status": "must be one of healthy, sick, rabid",
}

// validateForm trims the text fields and checks them. The returned form is
// the normalised one.
func validateForm(v *validator.Validate, f Form) (Form, error) {
	f.Location = strings.TrimSpace(f.Location)
	f.Status = strings.ToLower(strings.TrimSpace(f.Status))
	f.Description = strings.TrimSpace(f.Description)

	fields := make(map[string]string)

	if err := v.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return f, err
		}
		for _, fe := range verrs {
			if _, seen := fields[fe.Field()]; seen {
				continue
			}
			msg, ok := messages[fe.Tag()]
			if !ok {
				msg = "is invalid"
			}
			fields[fe.Field()] = msg
		}
	}

	if f.Coordinates != nil {
		if err := f.Coordinates.Validate(); err != nil {
			fields["coordinates"] = "is out of range"
		}
	}

	if len(fields) > 0 {
		return f, &ValidationError{Fields: fields}
	}
	return f, nil
}

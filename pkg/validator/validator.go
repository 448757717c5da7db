package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
	ValidateField(field string, value interface{}, rules ...string) error
}

type validator struct {
	validate *playground.Validate
}

// New returns a validator that reports fields by their json name.
func New() Validator {
	v := playground.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return &validator{validate: v}
}

func (v *validator) Validate(obj interface{}) error {
	return describe(v.validate.Struct(obj))
}

func (v *validator) ValidateField(field string, value interface{}, rules ...string) error {
	err := v.validate.Var(value, strings.Join(rules, ","))
	if err == nil {
		return nil
	}
	var verrs playground.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%s %s", field, rule(verrs[0]))
	}
	return err
}

// describe turns validator output into one readable error.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s %s", fe.Field(), rule(fe)))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func rule(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "uuid", "uuid_rfc4122":
		return "must be a valid UUID"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "datetime":
		return "must match layout " + fe.Param()
	case "email":
		return "must be a valid email"
	default:
		return "failed on " + fe.Tag()
	}
}

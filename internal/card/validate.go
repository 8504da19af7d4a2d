package card

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator with the "subject" and "cardtype"
// rules registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("subject", func(fl validator.FieldLevel) bool {
			_, ok := ParseSubject(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("cardtype", func(fl validator.FieldLevel) bool {
			_, ok := ParseType(fl.Field().String())
			return ok
		})
		validate = v
	})
	return validate
}

// Validate checks that every required field of the input is present and that
// subject and type belong to the fixed sets. The returned message names the
// offending fields in JSON form.
func (in Input) Validate() error {
	err := Validator().Struct(in)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldName(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "subject":
			msgs = append(msgs, fmt.Sprintf("subject must be one of: %s", strings.Join(Subjects, ", ")))
		case "cardtype":
			msgs = append(msgs, fmt.Sprintf("type must be one of: %s", typeList()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}

// fieldName maps struct field names to their JSON keys.
func fieldName(f string) string {
	switch f {
	case "DueDate":
		return "dueDate"
	default:
		return strings.ToLower(f)
	}
}

func typeList() string {
	names := make([]string, len(Types))
	for i, t := range Types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

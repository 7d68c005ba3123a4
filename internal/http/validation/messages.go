package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is shared; *validator.Validate caches struct/tag metadata and is
// safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

const notObjectMessage = "body must be a JSON object"

// checkRules applies a field's `validate` tag to its decoded value. It returns
// one message per failed rule; a misconfigured tag is an error.
func checkRules(f field, v reflect.Value) ([]string, error) {
	if f.rules == "" {
		return nil, nil
	}
	err := validate.Var(v.Interface(), f.rules)
	if err == nil {
		return nil, nil
	}
	var fes validator.ValidationErrors
	if !errors.As(err, &fes) {
		return nil, err
	}
	msgs := make([]string, 0, len(fes))
	for _, fe := range fes {
		msgs = append(msgs, ruleMessage(f.name, fe))
	}
	return msgs, nil
}

func requiredMessage(name string) string {
	return name + " is required"
}

func typeMessage(name string, t reflect.Type) string {
	return fmt.Sprintf("%s must be %s", name, kindName(t))
}

func unrecognizedMessage(keys []string) string {
	quoted := make([]string, len(keys))
	for i, k := range keys {
		quoted[i] = "'" + k + "'"
	}
	return "Unrecognized key(s) in object: " + strings.Join(quoted, ", ")
}

// ruleMessage renders a failed validator rule.
func ruleMessage(name string, fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return requiredMessage(name)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, strings.Join(strings.Fields(fe.Param()), ", "))
	case "numeric":
		return name + " must be numeric"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", name, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", name, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", name, fe.Param())
	case "min":
		if isString {
			return fmt.Sprintf("%s must contain at least %s character(s)", name, fe.Param())
		}
		return fmt.Sprintf("%s must be greater than or equal to %s", name, fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s must contain at most %s character(s)", name, fe.Param())
		}
		return fmt.Sprintf("%s must be less than or equal to %s", name, fe.Param())
	}
	return fmt.Sprintf("%s failed '%s' validation", name, fe.Tag())
}

// kindName names the accepted JSON type of t, or "" if t is unsupported.
func kindName(t reflect.Type) string {
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "an integer"
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "a non-negative integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	}
	return ""
}

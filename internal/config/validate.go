package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// hclNames maps struct fields to the names users write in the file.
var hclNames = map[string]string{
	"Store":     "store",
	"RulesFile": "rules_file",
	"LogLevel":  "log_level",
}

// Validate checks cfg and returns ValidationErrors naming every bad field.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var errs ValidationErrors
	for _, fe := range fieldErrs {
		name := hclNames[fe.Field()]
		if name == "" {
			name = fe.Field()
		}
		msg := fmt.Sprintf("failed %q check", fe.Tag())
		switch fe.Tag() {
		case "oneof":
			msg = fmt.Sprintf("%q is not one of: %s", fe.Value(), fe.Param())
		case "required":
			msg = "is required"
		}
		errs = append(errs, ValidationError{Field: name, Message: msg})
	}
	return errs
}

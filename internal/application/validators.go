package application

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// ruleIDPattern constrains rule identifiers to lowercase alphanumerics
// with interior hyphens or underscores, keeping them safe for report
// sections, metric labels, and CSV columns.
var ruleIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// RegisterSuiteValidators registers the custom validators referenced by
// suite configuration struct tags on the given validator instance.
func RegisterSuiteValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("ruleid", validateRuleIDTag); err != nil {
		return fmt.Errorf("failed to register ruleid validator: %w", err)
	}

	return nil
}

// validateRuleIDTag enforces ruleIDPattern on rule identifier fields.
func validateRuleIDTag(fl validator.FieldLevel) bool {
	return ruleIDPattern.MatchString(fl.Field().String())
}

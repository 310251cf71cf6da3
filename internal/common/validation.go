package common

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError is one failed rule on one field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("field '%s' %s", e.Field, e.Message)
}

// Validator collects rule failures across fields so a caller can report all
// of them at once.
type Validator struct {
	failed []ValidationError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field applies rules to value in order; every failing rule is recorded.
func (v *Validator) Field(name string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if fe := rule(name, value); fe != nil {
			v.failed = append(v.failed, *fe)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.failed) > 0 }

func (v *Validator) Errors() []ValidationError { return v.failed }

// ErrorMessage joins every failure with "; ".
func (v *Validator) ErrorMessage() string {
	parts := make([]string, 0, len(v.failed))
	for _, fe := range v.failed {
		parts = append(parts, fe.Error())
	}
	return strings.Join(parts, "; ")
}

// AsAppError returns nil when valid, otherwise an AppError of kind wrapping ErrValidation.
func (v *Validator) AsAppError(kind ErrorKind) error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError(kind, v.ErrorMessage(), ErrValidation)
}

// ValidationRule returns nil when value passes.
type ValidationRule func(name string, value any) *ValidationError

// Required rejects nil and blank strings.
func Required(name string, value any) *ValidationError {
	missing := value == nil
	switch t := value.(type) {
	case string:
		missing = strings.TrimSpace(t) == ""
	case *string:
		missing = t == nil || strings.TrimSpace(*t) == ""
	}
	if missing {
		return &ValidationError{Field: name, Message: "is required"}
	}
	return nil
}

// MaxLength returns a rule rejecting strings longer than max runes.
func MaxLength(max int) ValidationRule {
	return func(name string, value any) *ValidationError {
		if str, ok := value.(string); ok && utf8.RuneCountInString(str) > max {
			return &ValidationError{Field: name, Message: fmt.Sprintf("must be at most %d characters", max)}
		}
		return nil
	}
}

// NoPathTraversal rejects object keys that climb out of their prefix.
func NoPathTraversal(name string, value any) *ValidationError {
	str, ok := value.(string)
	if !ok {
		return nil
	}
	for _, seg := range strings.Split(strings.ReplaceAll(str, "\\", "/"), "/") {
		if seg == ".." {
			return &ValidationError{Field: name, Message: "must not contain '..' segments"}
		}
	}
	return nil
}

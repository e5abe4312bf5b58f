package participant

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
)

// Field is an editable participant field.
type Field string

// Editable participant fields.
const (
	FieldName     Field = model.FieldName
	FieldSurname1 Field = model.FieldSurname1
	FieldSurname2 Field = model.FieldSurname2
	FieldRole     Field = model.FieldRole
)

// Fields lists the editable fields in form order.
var Fields = []Field{FieldName, FieldSurname1, FieldSurname2, FieldRole}

// Validator checks a normalized value.
type Validator func(value string) error

var validators = map[Field]Validator{
	FieldName:     lengthBetween("name", 2, 50),
	FieldSurname1: lengthBetween("first surname", 2, 50),
	FieldSurname2: lengthBetween("second surname", 0, 50),
	FieldRole:     validRole,
}

// Normalize uppercases and trims a value the way it is stored.
func Normalize(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// Validate normalizes value and checks it against the field's rules.
func Validate(field Field, value string) (string, error) {
	check, ok := validators[field]
	if !ok {
		return "", fmt.Errorf("%w: unknown field %q", common.ErrInvalidInput, field)
	}
	value = Normalize(value)
	if err := check(value); err != nil {
		return "", err
	}
	return value, nil
}

func lengthBetween(label string, lo, hi int) Validator {
	return func(value string) error {
		n := utf8.RuneCountInString(value)
		if n < lo || n > hi {
			return fmt.Errorf("%w: %s must have between %d and %d characters, got %d",
				common.ErrInvalidInput, label, lo, hi, n)
		}
		for _, r := range value {
			if !unicode.IsLetter(r) && r != ' ' && r != '-' && r != '\'' {
				return fmt.Errorf("%w: %s contains %q", common.ErrInvalidInput, label, r)
			}
		}
		return nil
	}
}

func validRole(value string) error {
	switch model.Role(value) {
	case model.RoleStudent, model.RoleMerchant:
		return nil
	}
	return fmt.Errorf("%w: role must be %s or %s", common.ErrInvalidInput, model.RoleStudent, model.RoleMerchant)
}

// ParseRole accepts a role or its initial.
func ParseRole(s string) (model.Role, error) {
	switch Normalize(s) {
	case "E", string(model.RoleStudent):
		return model.RoleStudent, nil
	case "C", string(model.RoleMerchant):
		return model.RoleMerchant, nil
	}
	return "", validRole(Normalize(s))
}

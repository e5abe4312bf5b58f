// Package storage provides the SQLite record store for the ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrUnknownTable   = errors.New("unknown table")
	ErrInvalidField   = errors.New("invalid field")
	ErrInvalidLinkRef = errors.New("link points to a missing record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTable ensures the table is one the store knows about.
func validateTable(name service.TableName) error {
	for _, known := range service.AllTables {
		if known == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownTable, name)
}

// validateFields checks field names and that link fields hold id lists.
func validateFields(table service.TableName, fields service.Fields) error {
	if fields == nil {
		return fmt.Errorf("%w: fields", ErrNilParameter)
	}
	for name, value := range fields {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidField)
		}
		if _, isLink := linkFor(table, name); !isLink || value == nil {
			continue
		}
		switch v := value.(type) {
		case []string, []any:
		case string:
			if v != "" {
				return fmt.Errorf("%w: %s must be a list of record ids", ErrInvalidField, name)
			}
		default:
			return fmt.Errorf("%w: %s must be a list of record ids, got %T", ErrInvalidField, name, value)
		}
	}
	return nil
}

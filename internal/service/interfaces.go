// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"
)

// TableName identifies one of the named record tables.
type TableName string

// Record tables used by the simulation.
const (
	TableParticipants TableName = "PERSONAS"
	TableCharacters   TableName = "PERSONAJES"
	TableAccounts     TableName = "CUENTAS"
	TableMovements    TableName = "MOVIMIENTOS"
	TableProducts     TableName = "PRODUCTOS-SERVICIOS"
	TableMerchants    TableName = "COMERCIOS"
	TableProfessions  TableName = "PROFESIONES"
)

// AllTables lists every table the store must provide.
var AllTables = []TableName{
	TableParticipants,
	TableCharacters,
	TableAccounts,
	TableMovements,
	TableProducts,
	TableMerchants,
	TableProfessions,
}

// QueryOptions narrows a table query.
type QueryOptions struct {
	// Filter keeps records whose field equals the value. For link fields the
	// record matches when the link list contains the value.
	Filter Fields
	// Sort orders records by the given fields, ascending.
	Sort []string
	// Fields restricts the returned fields. Empty returns all of them.
	Fields []string
	// MaxRecords caps the result size when positive.
	MaxRecords int
}

// Table is the contract for a single named record table.
type Table interface {
	Get(ctx context.Context, id string) (*Record, error)
	Create(ctx context.Context, fields Fields) (*Record, error)
	Update(ctx context.Context, id string, fields Fields) (*Record, error)
	Delete(ctx context.Context, id string) (bool, error)
	Query(ctx context.Context, opts QueryOptions) ([]Record, error)
}

// RecordStore defines the contract for our persistence layer.
type RecordStore interface {
	Table(name TableName) Table
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

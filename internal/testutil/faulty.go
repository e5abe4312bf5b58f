package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// ErrInjected is the failure FaultyStore returns.
var ErrInjected = errors.New("injected store failure")

// FaultyStore wraps a RecordStore and fails chosen writes.
type FaultyStore struct {
	service.RecordStore
	failCreate map[service.TableName]int
	creates    map[service.TableName]int
	mu         sync.Mutex
}

// NewFaultyStore wraps inner without any failures armed.
func NewFaultyStore(inner service.RecordStore) *FaultyStore {
	return &FaultyStore{
		RecordStore: inner,
		failCreate:  make(map[service.TableName]int),
		creates:     make(map[service.TableName]int),
	}
}

// FailCreateAfter lets n more creates on table succeed and fails the next one.
func (s *FaultyStore) FailCreateAfter(table service.TableName, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failCreate[table] = s.creates[table] + n + 1
}

// Creates returns how many creates on table reached the inner store.
func (s *FaultyStore) Creates(table service.TableName) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates[table]
}

// Table returns a table handle that consults the armed failures.
func (s *FaultyStore) Table(name service.TableName) service.Table {
	return &faultyTable{Table: s.RecordStore.Table(name), store: s, name: name}
}

func (s *FaultyStore) shouldFail(name service.TableName) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, armed := s.failCreate[name]
	if armed && s.creates[name]+1 == target {
		delete(s.failCreate, name)
		return true
	}
	s.creates[name]++
	return false
}

type faultyTable struct {
	service.Table
	store *FaultyStore
	name  service.TableName
}

func (t *faultyTable) Create(ctx context.Context, fields service.Fields) (*service.Record, error) {
	if t.store.shouldFail(t.name) {
		return nil, ErrInjected
	}
	return t.Table.Create(ctx, fields)
}

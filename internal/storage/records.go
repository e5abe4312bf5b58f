package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// linkRef names the field on the other side of a two-way link.
type linkRef struct {
	table service.TableName
	field string
}

// linkPairs lists the two-way links the store keeps consistent.
var linkPairs = [][2]linkRef{
	{{service.TableMovements, model.FieldAccount}, {service.TableAccounts, model.FieldMovements}},
	{{service.TableAccounts, model.FieldCharacter}, {service.TableCharacters, model.FieldAccount}},
	{{service.TableParticipants, model.FieldCharacter}, {service.TableCharacters, model.FieldParticipant}},
	{{service.TableProducts, model.FieldMerchant}, {service.TableMerchants, model.FieldMerchantOffers}},
}

// oneWayLinks are link fields without a maintained inverse.
var oneWayLinks = map[linkRef]bool{
	{service.TableMovements, model.FieldConcept}:     true,
	{service.TableCharacters, model.FieldProfession}: true,
}

// linkFor returns the inverse side of a link field. The bool reports whether
// the field is a link at all; a zero linkRef means the link is one-way.
func linkFor(table service.TableName, field string) (linkRef, bool) {
	ref := linkRef{table, field}
	for _, pair := range linkPairs {
		if pair[0] == ref {
			return pair[1], true
		}
		if pair[1] == ref {
			return pair[0], true
		}
	}
	if oneWayLinks[ref] {
		return linkRef{}, true
	}
	return linkRef{}, false
}

// newRecordID returns an id in the familiar "rec" + 14 characters shape.
func newRecordID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "rec" + raw[:14]
}

// recordTable is one named table inside the shared records table.
type recordTable struct {
	store *SQLiteStorage
	name  service.TableName
}

func (t *recordTable) check(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	return validateTable(t.name)
}

// Get returns the record with the given id.
func (t *recordTable) Get(ctx context.Context, id string) (*service.Record, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var fields service.Fields
	err := common.WithRetry(ctx, func() error {
		var err error
		fields, err = loadFields(ctx, t.store.db, t.name, id)
		return classifySQLiteError(err)
	}, t.store.retry)
	if err != nil {
		return nil, err
	}
	return &service.Record{ID: id, Fields: fields}, nil
}

// Create inserts a record and links it back from every record it points to.
func (t *recordTable) Create(ctx context.Context, fields service.Fields) (*service.Record, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	if err := validateFields(t.name, fields); err != nil {
		return nil, err
	}

	id := newRecordID()
	stored := normalizeFields(t.name, fields)

	err := t.store.withTx(ctx, func(tx *sql.Tx) error {
		data, err := encodeFields(stored)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO records (id, table_name, fields) VALUES (?, ?, ?)`,
			id, string(t.name), data); err != nil {
			return fmt.Errorf("%w: insert into %s: %w", common.ErrWriteError, t.name, err)
		}
		return syncLinks(ctx, tx, t.name, id, service.Fields{}, stored)
	})
	if err != nil {
		return nil, err
	}
	return &service.Record{ID: id, Fields: stored}, nil
}

// Update merges fields into the record. A nil value clears the field.
func (t *recordTable) Update(ctx context.Context, id string, fields service.Fields) (*service.Record, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	if err := validateFields(t.name, fields); err != nil {
		return nil, err
	}

	var merged service.Fields
	err := t.store.withTx(ctx, func(tx *sql.Tx) error {
		current, err := loadFields(ctx, tx, t.name, id)
		if err != nil {
			return err
		}
		merged = current.Clone()
		for name, value := range normalizeFields(t.name, fields) {
			if value == nil {
				delete(merged, name)
				continue
			}
			merged[name] = value
		}
		if err := writeFields(ctx, tx, id, merged); err != nil {
			return err
		}
		return syncLinks(ctx, tx, t.name, id, current, merged)
	})
	if err != nil {
		return nil, err
	}
	return &service.Record{ID: id, Fields: merged}, nil
}

// Delete removes the record and unlinks it from every record pointing at it.
// Deleting a missing record reports false without error.
func (t *recordTable) Delete(ctx context.Context, id string) (bool, error) {
	if err := t.check(ctx); err != nil {
		return false, err
	}
	if err := validateString(id, "id"); err != nil {
		return false, err
	}

	deleted := false
	err := t.store.withTx(ctx, func(tx *sql.Tx) error {
		current, err := loadFields(ctx, tx, t.name, id)
		if errors.Is(err, common.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := syncLinks(ctx, tx, t.name, id, current, service.Fields{}); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id); err != nil {
			return fmt.Errorf("%w: delete %s: %w", common.ErrWriteError, id, err)
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// Query returns the table's records in insertion order, filtered and sorted
// as requested.
func (t *recordTable) Query(ctx context.Context, opts service.QueryOptions) ([]service.Record, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}

	var records []service.Record
	err := common.WithRetry(ctx, func() error {
		var err error
		records, err = t.scan(ctx)
		return classifySQLiteError(err)
	}, t.store.retry)
	if err != nil {
		return nil, err
	}

	out := records[:0]
	for _, rec := range records {
		if matches(rec.Fields, opts.Filter) {
			out = append(out, rec)
		}
	}

	if len(opts.Sort) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			return lessBy(out[i].Fields, out[j].Fields, opts.Sort)
		})
	}

	if opts.MaxRecords > 0 && len(out) > opts.MaxRecords {
		out = out[:opts.MaxRecords]
	}

	if len(opts.Fields) > 0 {
		for i := range out {
			projected := make(service.Fields, len(opts.Fields))
			for _, name := range opts.Fields {
				if v, ok := out[i].Fields[name]; ok {
					projected[name] = v
				}
			}
			out[i].Fields = projected
		}
	}

	return out, nil
}

func (t *recordTable) scan(ctx context.Context) ([]service.Record, error) {
	rows, err := t.store.db.QueryContext(ctx,
		`SELECT id, fields FROM records WHERE table_name = ? ORDER BY seq`, string(t.name))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.name, err)
	}
	defer func() { _ = rows.Close() }()

	var records []service.Record
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan %s record: %w", t.name, err)
		}
		fields, err := decodeFields(data)
		if err != nil {
			return nil, fmt.Errorf("record %s: %w", id, err)
		}
		records = append(records, service.Record{ID: id, Fields: fields})
	}
	return records, rows.Err()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadFields(ctx context.Context, q queryer, table service.TableName, id string) (service.Fields, error) {
	var data string
	err := q.QueryRowContext(ctx,
		`SELECT fields FROM records WHERE id = ? AND table_name = ?`, id, string(table)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s record %s", common.ErrNotFound, table, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s record %s: %w", table, id, err)
	}
	return decodeFields(data)
}

func writeFields(ctx context.Context, tx *sql.Tx, id string, fields service.Fields) error {
	data, err := encodeFields(fields)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET fields = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, data, id); err != nil {
		return fmt.Errorf("%w: update %s: %w", common.ErrWriteError, id, err)
	}
	return nil
}

// syncLinks adds or removes id from the inverse side of every link field that
// changed between before and after.
func syncLinks(ctx context.Context, tx *sql.Tx, table service.TableName, id string, before, after service.Fields) error {
	names := make(map[string]struct{})
	for name := range before {
		names[name] = struct{}{}
	}
	for name := range after {
		names[name] = struct{}{}
	}

	for name := range names {
		inverse, isLink := linkFor(table, name)
		if !isLink {
			continue
		}
		added, removed := diffLinks(before.Links(name), after.Links(name))
		for _, target := range added {
			if inverse.table == "" {
				if _, err := loadFields(ctx, tx, targetTable(table, name), target); err != nil {
					return fmt.Errorf("%w: %s %s: %w", ErrInvalidLinkRef, name, target, err)
				}
				continue
			}
			if err := editLink(ctx, tx, inverse, target, id, true); err != nil {
				return err
			}
		}
		if inverse.table == "" {
			continue
		}
		for _, target := range removed {
			if err := editLink(ctx, tx, inverse, target, id, false); err != nil && !errors.Is(err, common.ErrNotFound) {
				return err
			}
		}
	}
	return nil
}

// targetTable resolves the table a one-way link points into.
func targetTable(table service.TableName, field string) service.TableName {
	switch (linkRef{table, field}) {
	case linkRef{service.TableMovements, model.FieldConcept}:
		return service.TableProducts
	case linkRef{service.TableCharacters, model.FieldProfession}:
		return service.TableProfessions
	}
	return table
}

func editLink(ctx context.Context, tx *sql.Tx, ref linkRef, targetID, id string, add bool) error {
	fields, err := loadFields(ctx, tx, ref.table, targetID)
	if err != nil {
		if add && errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: %s %s", ErrInvalidLinkRef, ref.table, targetID)
		}
		return err
	}

	links := fields.Links(ref.field)
	if add {
		for _, existing := range links {
			if existing == id {
				return nil
			}
		}
		links = append(links, id)
	} else {
		kept := links[:0]
		for _, existing := range links {
			if existing != id {
				kept = append(kept, existing)
			}
		}
		links = kept
	}

	if len(links) == 0 {
		delete(fields, ref.field)
	} else {
		fields[ref.field] = links
	}
	return writeFields(ctx, tx, targetID, fields)
}

func diffLinks(before, after []string) (added, removed []string) {
	seen := make(map[string]bool, len(before))
	for _, id := range before {
		seen[id] = true
	}
	keep := make(map[string]bool, len(after))
	for _, id := range after {
		keep[id] = true
		if !seen[id] {
			added = append(added, id)
		}
	}
	for _, id := range before {
		if !keep[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}

// normalizeFields stores link fields as []string and decimals as strings.
func normalizeFields(table service.TableName, fields service.Fields) service.Fields {
	out := make(service.Fields, len(fields))
	for name, value := range fields {
		if _, isLink := linkFor(table, name); isLink && value != nil {
			links := fields.Links(name)
			if len(links) == 0 {
				out[name] = nil
				continue
			}
			out[name] = links
			continue
		}
		switch v := value.(type) {
		case decimal.Decimal:
			out[name] = v.String()
		case *decimal.Decimal:
			if v == nil {
				out[name] = nil
			} else {
				out[name] = v.String()
			}
		default:
			out[name] = value
		}
	}
	return out
}

func encodeFields(fields service.Fields) (string, error) {
	clean := make(service.Fields, len(fields))
	for k, v := range fields {
		if v != nil {
			clean[k] = v
		}
	}
	data, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("%w: encode fields: %w", ErrInvalidField, err)
	}
	return string(data), nil
}

func decodeFields(data string) (service.Fields, error) {
	fields := service.Fields{}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	return fields, nil
}

// matches reports whether every filter entry equals the record's field. Link
// fields match when they contain the filter value.
func matches(fields, filter service.Fields) bool {
	for name, want := range filter {
		wantStr := fmt.Sprint(want)
		switch got := fields[name].(type) {
		case []any:
			found := false
			for _, item := range got {
				if fmt.Sprint(item) == wantStr {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case []string:
			found := false
			for _, item := range got {
				if item == wantStr {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case nil:
			if want != nil && wantStr != "" && want != false {
				return false
			}
		default:
			if !sameValue(got, want) {
				return false
			}
		}
	}
	return true
}

func sameValue(got, want any) bool {
	gs, ws := fmt.Sprint(got), fmt.Sprint(want)
	if gs == ws {
		return true
	}
	gd, gErr := decimal.NewFromString(gs)
	wd, wErr := decimal.NewFromString(ws)
	return gErr == nil && wErr == nil && gd.Equal(wd)
}

// lessBy compares two records field by field. A leading "-" sorts descending.
func lessBy(a, b service.Fields, keys []string) bool {
	for _, key := range keys {
		desc := strings.HasPrefix(key, "-")
		name := strings.TrimPrefix(key, "-")
		c := compareValues(a.String(name), b.String(name))
		if c == 0 {
			continue
		}
		if desc {
			return c > 0
		}
		return c < 0
	}
	return false
}

func compareValues(a, b string) int {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA == nil && errB == nil {
		return da.Cmp(db)
	}
	return strings.Compare(a, b)
}

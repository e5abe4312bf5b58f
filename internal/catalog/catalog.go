// Package catalog loads professions, characters, merchants and products from
// a YAML file into the record store.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// ErrInvalidCatalog is returned for catalog files that fail validation.
var ErrInvalidCatalog = errors.New("invalid catalog")

// File is the YAML layout of a catalog.
type File struct {
	Professions []Profession `yaml:"professions"`
	Characters  []Character  `yaml:"characters"`
	Merchants   []Merchant   `yaml:"merchants"`
}

// Profession is an occupation's economic data. Amounts are decimal strings.
type Profession struct {
	Name           string `yaml:"name"`
	Salary         string `yaml:"salary"`
	SpouseSalary   string `yaml:"spouse_salary"`
	CardDebt       string `yaml:"card_debt"`
	MinCardPayment string `yaml:"min_card_payment"`
	Dependents     int    `yaml:"dependents"`
}

// Character is a household participants can be assigned to.
type Character struct {
	Occupation string `yaml:"occupation"`
	Title      string `yaml:"title"`
	Profession string `yaml:"profession"`
	Reference  int    `yaml:"reference"`
}

// Merchant groups the products it sells.
type Merchant struct {
	Name     string    `yaml:"name"`
	Rules    string    `yaml:"rules"`
	Products []Product `yaml:"products"`
}

// Product is a catalog entry. Price is signed: expenses are negative.
type Product struct {
	Name         string `yaml:"name"`
	Key          string `yaml:"key"`
	Price        string `yaml:"price"`
	ExtraMonthly string `yaml:"extra_monthly"`
	Size         string `yaml:"size"`
	Frequency    string `yaml:"frequency"`
	Periodic     bool   `yaml:"periodic"`
}

// Summary counts what an import wrote.
type Summary struct {
	Professions int
	Characters  int
	Merchants   int
	Products    int
	Updated     int
}

// Load reads and validates a catalog file.
func Load(path string) (*File, error) {
	// #nosec G304 - path comes from the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks references, enums and amounts.
func (f *File) Validate() error {
	var problems []string
	professions := make(map[string]bool)

	for i, p := range f.Professions {
		if strings.TrimSpace(p.Name) == "" {
			problems = append(problems, fmt.Sprintf("profession %d: missing name", i+1))
		}
		professions[p.Name] = true
		for field, value := range map[string]string{
			"salary": p.Salary, "spouse_salary": p.SpouseSalary,
			"card_debt": p.CardDebt, "min_card_payment": p.MinCardPayment,
		} {
			if _, err := parseAmount(value); err != nil {
				problems = append(problems, fmt.Sprintf("profession %s: %s: %v", p.Name, field, err))
			}
		}
	}

	refs := make(map[int]bool)
	for _, c := range f.Characters {
		if c.Reference <= 0 {
			problems = append(problems, fmt.Sprintf("character %q: reference must be positive", c.Title))
		}
		if refs[c.Reference] {
			problems = append(problems, fmt.Sprintf("character %d: duplicate reference", c.Reference))
		}
		refs[c.Reference] = true
		if c.Profession != "" && !professions[c.Profession] {
			problems = append(problems, fmt.Sprintf("character %d: unknown profession %q", c.Reference, c.Profession))
		}
	}

	for _, m := range f.Merchants {
		if strings.TrimSpace(m.Name) == "" {
			problems = append(problems, "merchant: missing name")
		}
		for _, p := range m.Products {
			problems = append(problems, validateProduct(m.Name, p)...)
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
	}
	return nil
}

func validateProduct(merchant string, p Product) []string {
	var problems []string
	where := fmt.Sprintf("product %s/%s", merchant, p.Name)
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, where+": missing name")
	}
	if _, err := parseAmount(p.Price); err != nil {
		problems = append(problems, fmt.Sprintf("%s: price: %v", where, err))
	}
	if _, err := parseAmount(p.ExtraMonthly); err != nil {
		problems = append(problems, fmt.Sprintf("%s: extra_monthly: %v", where, err))
	}
	switch model.SizeClass(p.Size) {
	case "", model.SizeLarge, model.SizeMedium, model.SizeSmall:
	default:
		problems = append(problems, fmt.Sprintf("%s: unknown size %q", where, p.Size))
	}
	switch model.Frequency(p.Frequency) {
	case model.FrequencyWeekly, model.FrequencyMonthly:
	case "":
		if p.Periodic {
			problems = append(problems, where+": periodic products need a frequency")
		}
	default:
		problems = append(problems, fmt.Sprintf("%s: unknown frequency %q", where, p.Frequency))
	}
	return problems
}

func parseAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

// Import writes the catalog into the store. Records are matched by natural
// key (profession and merchant name, character reference, product name
// within its merchant) and updated in place, so importing twice is harmless.
func Import(ctx context.Context, store service.RecordStore, f *File) (Summary, error) {
	var sum Summary
	if err := f.Validate(); err != nil {
		return sum, err
	}
	w := writer{store: store, summary: &sum}

	professionIDs := make(map[string]string, len(f.Professions))
	for _, p := range f.Professions {
		id, err := w.upsert(ctx, service.TableProfessions, service.Fields{model.FieldName: p.Name}, professionFields(p))
		if err != nil {
			return sum, fmt.Errorf("profession %s: %w", p.Name, err)
		}
		professionIDs[p.Name] = id
		sum.Professions++
	}

	for _, c := range f.Characters {
		fields := service.Fields{
			model.FieldReference: c.Reference,
			model.FieldCharacter: c.Occupation,
			model.FieldTitle:     c.Title,
		}
		if c.Profession != "" {
			fields[model.FieldProfession] = []string{professionIDs[c.Profession]}
		}
		if _, err := w.upsert(ctx, service.TableCharacters, service.Fields{model.FieldReference: c.Reference}, fields); err != nil {
			return sum, fmt.Errorf("character %d: %w", c.Reference, err)
		}
		sum.Characters++
	}

	for _, m := range f.Merchants {
		merchantID, err := w.upsert(ctx, service.TableMerchants, service.Fields{model.FieldName: m.Name}, service.Fields{
			model.FieldName:  m.Name,
			model.FieldRules: m.Rules,
		})
		if err != nil {
			return sum, fmt.Errorf("merchant %s: %w", m.Name, err)
		}
		sum.Merchants++

		for _, p := range m.Products {
			key := service.Fields{model.FieldName: p.Name, model.FieldMerchant: merchantID}
			if _, err := w.upsert(ctx, service.TableProducts, key, productFields(merchantID, p)); err != nil {
				return sum, fmt.Errorf("product %s/%s: %w", m.Name, p.Name, err)
			}
			sum.Products++
		}
	}

	common.LogInfo(ctx, "Imported catalog", common.Fields{
		"professions": sum.Professions,
		"characters":  sum.Characters,
		"merchants":   sum.Merchants,
		"products":    sum.Products,
		"updated":     sum.Updated,
	})
	return sum, nil
}

func professionFields(p Profession) service.Fields {
	amount := func(s string) string {
		d, _ := parseAmount(s)
		return d.String()
	}
	return service.Fields{
		model.FieldName:           p.Name,
		model.FieldSalary:         amount(p.Salary),
		model.FieldSpouseSalary:   amount(p.SpouseSalary),
		model.FieldCardDebt:       amount(p.CardDebt),
		model.FieldMinCardPayment: amount(p.MinCardPayment),
		model.FieldDependents:     p.Dependents,
	}
}

func productFields(merchantID string, p Product) service.Fields {
	price, _ := parseAmount(p.Price)
	extra, _ := parseAmount(p.ExtraMonthly)
	fields := service.Fields{
		model.FieldName:         p.Name,
		model.FieldMerchant:     []string{merchantID},
		model.FieldPrice:        price.String(),
		model.FieldExtraMonthly: extra.String(),
		model.FieldPeriodic:     p.Periodic,
	}
	if p.Key != "" {
		fields[model.FieldProductKey] = p.Key
	}
	if p.Size != "" {
		fields[model.FieldSizeClass] = p.Size
	}
	if p.Frequency != "" {
		fields[model.FieldFrequency] = p.Frequency
	}
	return fields
}

type writer struct {
	store   service.RecordStore
	summary *Summary
}

// upsert updates the first record matching key or creates a new one.
func (w writer) upsert(ctx context.Context, table service.TableName, key, fields service.Fields) (string, error) {
	existing, err := w.store.Table(table).Query(ctx, service.QueryOptions{Filter: key, MaxRecords: 1})
	if err != nil {
		return "", err
	}
	if len(existing) > 0 {
		rec, err := w.store.Table(table).Update(ctx, existing[0].ID, fields)
		if err != nil {
			return "", err
		}
		w.summary.Updated++
		return rec.ID, nil
	}
	rec, err := w.store.Table(table).Create(ctx, fields)
	if err != nil {
		return "", err
	}
	return rec.ID, nil
}

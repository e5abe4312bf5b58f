package testutil

import (
	"context"
	"testing"

	"github.com/maestroSwift/villarbolsillo/internal/catalog"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// Standard catalog names.
const (
	StandardProfession = "MAESTRO"
	StandardOccupation = "MAESTRO-1"
	StandardReference  = 1
	ChanceMerchant     = "DEDO DEL DESTINO"
	Supermarket        = "SUPERMERCADO"
	Bank               = "BANCO"
	Cinema             = "CINES LUX"
	Electronics        = "ELECTRO HOGAR"
	Utilities          = "COMPAÑÍA ELÉCTRICA"
)

// Catalog holds the ids of the seeded records.
type Catalog struct {
	Professions map[string]string
	Characters  map[int]string
	Merchants   map[string]string
	Products    map[string]string
}

// Character returns the id of the character with the given reference.
func (c *Catalog) Character(ref int) string {
	return c.Characters[ref]
}

// Product returns the id of a product by name.
func (c *Catalog) Product(name string) string {
	return c.Products[name]
}

// CatalogBuilder accumulates a catalog file and imports it into a store.
type CatalogBuilder struct {
	t     *testing.T
	store service.RecordStore
	file  catalog.File
}

// NewCatalogBuilder starts an empty catalog for store.
func NewCatalogBuilder(t *testing.T, store service.RecordStore) *CatalogBuilder {
	t.Helper()
	return &CatalogBuilder{t: t, store: store}
}

// WithProfession adds a profession. Amounts are decimal strings.
func (b *CatalogBuilder) WithProfession(name, salary, spouseSalary, cardDebt, minCardPayment string) *CatalogBuilder {
	b.file.Professions = append(b.file.Professions, catalog.Profession{
		Name:           name,
		Salary:         salary,
		SpouseSalary:   spouseSalary,
		CardDebt:       cardDebt,
		MinCardPayment: minCardPayment,
	})
	return b
}

// WithCharacter adds a character practicing the named profession.
func (b *CatalogBuilder) WithCharacter(ref int, occupation, title, profession string) *CatalogBuilder {
	b.file.Characters = append(b.file.Characters, catalog.Character{
		Reference:  ref,
		Occupation: occupation,
		Title:      title,
		Profession: profession,
	})
	return b
}

// WithProduct adds a one-off product, creating its merchant if needed.
func (b *CatalogBuilder) WithProduct(merchant, name, price string, size model.SizeClass) *CatalogBuilder {
	b.merchant(merchant).Products = append(b.merchant(merchant).Products, catalog.Product{
		Name:  name,
		Price: price,
		Size:  string(size),
	})
	return b
}

// WithPeriodicProduct adds a recurring product.
func (b *CatalogBuilder) WithPeriodicProduct(merchant, name, price string, freq model.Frequency) *CatalogBuilder {
	m := b.merchant(merchant)
	m.Products = append(m.Products, catalog.Product{
		Name:      name,
		Price:     price,
		Periodic:  true,
		Frequency: string(freq),
	})
	return b
}

func (b *CatalogBuilder) merchant(name string) *catalog.Merchant {
	for i := range b.file.Merchants {
		if b.file.Merchants[i].Name == name {
			return &b.file.Merchants[i]
		}
	}
	b.file.Merchants = append(b.file.Merchants, catalog.Merchant{Name: name})
	return &b.file.Merchants[len(b.file.Merchants)-1]
}

// WithStandardCatalog adds one profession, one character and a shop of each
// kind: everyday goods, transfers, a recurring bill and the chance merchant.
func (b *CatalogBuilder) WithStandardCatalog() *CatalogBuilder {
	return b.
		WithProfession(StandardProfession, "1800", "600", "1200", "60").
		WithCharacter(StandardReference, StandardOccupation, "FAMILIA GARCÍA", StandardProfession).
		WithProduct(Supermarket, "PAN", "-1.50", model.SizeSmall).
		WithProduct(Cinema, "CINE", "-9", model.SizeMedium).
		WithProduct(Electronics, "TELEVISOR", "-450", model.SizeLarge).
		WithProduct(Bank, "PAGO DEUDA TARJETA", "0", model.SizeMedium).
		WithProduct(Bank, "APORTACIÓN CUENTA JUBILACIÓN", "0", model.SizeLarge).
		WithProduct(Bank, "PLAN AHORRO", "0", model.SizeLarge).
		WithProduct(ChanceMerchant, "RULETA", "-25", model.SizeSmall).
		WithPeriodicProduct(Utilities, "LUZ", "-60", model.FrequencyMonthly)
}

// Build imports the catalog and returns the ids of everything it created.
func (b *CatalogBuilder) Build() *Catalog {
	b.t.Helper()
	ctx := context.Background()

	if _, err := catalog.Import(ctx, b.store, &b.file); err != nil {
		b.t.Fatalf("failed to import catalog: %v", err)
	}

	cat := &Catalog{
		Professions: make(map[string]string),
		Characters:  make(map[int]string),
		Merchants:   make(map[string]string),
		Products:    make(map[string]string),
	}
	for _, rec := range b.query(service.TableProfessions) {
		cat.Professions[rec.Fields.String(model.FieldName)] = rec.ID
	}
	for _, rec := range b.query(service.TableCharacters) {
		ref, err := rec.Fields.Int(model.FieldReference)
		if err != nil {
			b.t.Fatalf("character %s: %v", rec.ID, err)
		}
		cat.Characters[ref] = rec.ID
	}
	for _, rec := range b.query(service.TableMerchants) {
		cat.Merchants[rec.Fields.String(model.FieldName)] = rec.ID
	}
	for _, rec := range b.query(service.TableProducts) {
		cat.Products[rec.Fields.String(model.FieldName)] = rec.ID
	}
	return cat
}

func (b *CatalogBuilder) query(table service.TableName) []service.Record {
	b.t.Helper()
	recs, err := b.store.Table(table).Query(context.Background(), service.QueryOptions{})
	if err != nil {
		b.t.Fatalf("failed to query %s: %v", table, err)
	}
	return recs
}

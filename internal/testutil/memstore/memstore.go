// Package memstore — хранилище в памяти для тестов сервисов.
// Повторяет контракты pgx-репозиториев, включая откат транзакции при ошибке.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/domain/catalog"
	"github.com/Spok95/itasset/internal/domain/consumables"
	"github.com/Spok95/itasset/internal/domain/directory"
	"github.com/Spok95/itasset/internal/domain/forms"
	"github.com/Spok95/itasset/internal/domain/history"
	"github.com/Spok95/itasset/internal/domain/maintenance"
	"github.com/Spok95/itasset/internal/domain/printers"
	"github.com/Spok95/itasset/internal/domain/products"
	"github.com/Spok95/itasset/internal/domain/sequences"
	"github.com/Spok95/itasset/internal/domain/stock"
)

type state struct {
	nextID int64

	settings    map[string]string
	sequences   map[string]sequences.Sequence
	categories  map[int64]catalog.Category
	units       map[int64]catalog.Unit
	employees   map[int64]directory.Employee
	products    map[int64]products.Product
	lots        map[int64]products.Lot
	locations   map[int64]stock.Location
	quants      map[int64]stock.Quant
	types       map[string]stock.TransferType
	transfers   map[int64]stock.Transfer
	movements   []stock.Movement
	assets      map[int64]assets.Asset
	history     map[int64]history.Record
	maintenance map[int64]maintenance.Record
	readings    map[int64]printers.Reading
	requests    map[int64]forms.Request
	handovers   map[int64]forms.Handover
	damage      map[int64]forms.DamageReport
	consumables map[int64]consumables.Item
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	c := *s
	c.settings = cloneMap(s.settings)
	c.sequences = cloneMap(s.sequences)
	c.categories = cloneMap(s.categories)
	c.units = cloneMap(s.units)
	c.employees = cloneMap(s.employees)
	c.products = cloneMap(s.products)
	c.lots = cloneMap(s.lots)
	c.locations = cloneMap(s.locations)
	c.quants = cloneMap(s.quants)
	c.types = cloneMap(s.types)
	c.transfers = cloneMap(s.transfers)
	c.movements = append([]stock.Movement(nil), s.movements...)
	c.assets = cloneMap(s.assets)
	c.history = cloneMap(s.history)
	c.maintenance = cloneMap(s.maintenance)
	c.readings = cloneMap(s.readings)
	c.requests = cloneMap(s.requests)
	c.handovers = cloneMap(s.handovers)
	c.damage = cloneMap(s.damage)
	c.consumables = cloneMap(s.consumables)
	return &c
}

// Store раздаёт репозитории, работающие над общими данными.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time

	Settings    *SettingsRepo
	Sequences   *SequenceRepo
	Catalog     *CatalogRepo
	Directory   *DirectoryRepo
	Products    *ProductRepo
	Stock       *StockRepo
	Assets      *AssetRepo
	History     *HistoryRepo
	Maintenance *MaintenanceRepo
	Printers    *PrinterRepo
	Forms       *FormsRepo
	Consumables *ConsumableRepo
}

// New возвращает хранилище с теми же начальными данными, что и миграции:
// корень склада WH, локация Stock, тип перемещения internal и последовательности документов.
func New() *Store {
	s := &Store{
		now: func() time.Time { return time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC) },
		st: &state{
			settings:    map[string]string{},
			sequences:   map[string]sequences.Sequence{},
			categories:  map[int64]catalog.Category{},
			units:       map[int64]catalog.Unit{},
			employees:   map[int64]directory.Employee{},
			products:    map[int64]products.Product{},
			lots:        map[int64]products.Lot{},
			locations:   map[int64]stock.Location{},
			quants:      map[int64]stock.Quant{},
			types:       map[string]stock.TransferType{},
			transfers:   map[int64]stock.Transfer{},
			assets:      map[int64]assets.Asset{},
			history:     map[int64]history.Record{},
			maintenance: map[int64]maintenance.Record{},
			readings:    map[int64]printers.Reading{},
			requests:    map[int64]forms.Request{},
			handovers:   map[int64]forms.Handover{},
			damage:      map[int64]forms.DamageReport{},
			consumables: map[int64]consumables.Item{},
		},
	}
	s.Settings = &SettingsRepo{s}
	s.Sequences = &SequenceRepo{s}
	s.Catalog = &CatalogRepo{s}
	s.Directory = &DirectoryRepo{s}
	s.Products = &ProductRepo{s}
	s.Stock = &StockRepo{s: s}
	s.Assets = &AssetRepo{s}
	s.History = &HistoryRepo{s}
	s.Maintenance = &MaintenanceRepo{s}
	s.Printers = &PrinterRepo{s}
	s.Forms = &FormsRepo{s}
	s.Consumables = &ConsumableRepo{s}

	for _, sq := range []sequences.Sequence{
		{Code: sequences.CodeStockInternal, Prefix: "WH/INT/", Padding: 5},
		{Code: sequences.CodeRequest, Prefix: "REQ/", Padding: 4},
		{Code: sequences.CodeHandover, Prefix: "HO/", Padding: 4},
		{Code: sequences.CodeDamageReport, Padding: 4},
	} {
		sq.NextNumber, sq.Step = 1, 1
		s.st.sequences[sq.Code] = sq
	}

	ctx := context.Background()
	root, _ := s.Stock.CreateLocation(ctx, "WH", nil, stock.UsageView)
	_, _ = s.Stock.CreateLocation(ctx, "Stock", &root.ID, stock.UsageInternal)
	s.st.types[stock.TypeInternal] = stock.TransferType{
		ID: s.id(), Name: "Internal Transfers", Code: stock.TypeInternal, SequenceCode: sequences.CodeStockInternal,
	}
	return s
}

type txKey struct{}

// WithinTx: при ошибке fn данные возвращаются к снимку на момент начала.
// Вложенный вызов присоединяется к внешней транзакции.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	snap := s.st.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.st = snap
		s.mu.Unlock()
		return err
	}
	return nil
}

// SetNow подменяет часы хранилища.
func (s *Store) SetNow(now func() time.Time) { s.now = now }

func (s *Store) id() int64 {
	s.st.nextID++
	return s.st.nextID
}

func (s *Store) lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

func ptrCopy[T any](v T) *T { return &v }

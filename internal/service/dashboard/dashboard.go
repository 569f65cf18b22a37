// Package dashboard собирает сводку по активам для главной страницы.
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/domain/catalog"
	"github.com/Spok95/itasset/internal/domain/printers"
	"github.com/Spok95/itasset/internal/infra/metrics"
)

const topCategories = 10

type Counter interface {
	CountByState(ctx context.Context, f assets.Filter) (map[assets.State]int, error)
	CountByCondition(ctx context.Context, f assets.Filter) (map[assets.Condition]int, error)
	CountByCategory(ctx context.Context, f assets.Filter) ([]assets.CategoryCount, error)
}

type CategoryFinder interface {
	FindCategoryFold(ctx context.Context, name string) (*catalog.Category, error)
}

type Readings interface {
	ListUpTo(ctx context.Context, categoryIDs []int64, to time.Time) ([]printers.Reading, error)
}

type Config struct {
	LaptopCategory  string
	PrinterCategory string
}

// Slice — доля в круговой диаграмме.
type Slice struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
	Color   string  `json:"color,omitempty"`
}

type Breakdown struct {
	CategoryID int64   `json:"category_id"`
	Name       string  `json:"name"`
	Total      int     `json:"total"`
	ByState    []Slice `json:"by_state"`
}

type Stats struct {
	Total        int                    `json:"total"`
	ByState      []Slice                `json:"by_state"`
	ByCondition  []Slice                `json:"by_condition"`
	ByCategory   []assets.CategoryCount `json:"by_category"`
	Laptops      *Breakdown             `json:"laptops,omitempty"`
	PrinterPages int                    `json:"printer_pages"`
}

// Query — фильтр сводки. Даты по дню создания актива, включительно.
type Query struct {
	CategoryIDs []int64
	From, To    *time.Time
}

func (q Query) filter() assets.Filter {
	return assets.Filter{CategoryIDs: q.CategoryIDs, From: q.From, To: q.To}
}

var stateSlices = []struct {
	state assets.State
	label string
	color string
}{
	{assets.StateAvailable, "Available", "#22c55e"},
	{assets.StateInUse, "In use", "#3b82f6"},
	{assets.StateMaintenance, "Maintenance", "#f59e0b"},
	{assets.StateRetired, "Retired", "#ef4444"},
}

var conditionSlices = []struct {
	cond  assets.Condition
	label string
}{
	{assets.ConditionGood, "Good"},
	{assets.ConditionDegraded, "Degraded"},
	{assets.ConditionBroken, "Broken"},
}

type Service struct {
	counts   Counter
	cats     CategoryFinder
	readings Readings
	cfg      Config
	metrics  *metrics.Metrics
	log      *slog.Logger
}

func New(counts Counter, cats CategoryFinder, readings Readings, cfg Config, m *metrics.Metrics, log *slog.Logger) *Service {
	return &Service{counts: counts, cats: cats, readings: readings, cfg: cfg, metrics: m, log: log}
}

// Stats только читает. Пустая выборка даёт нули.
func (s *Service) Stats(ctx context.Context, q Query) (*Stats, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveDashboard(time.Since(started)) }()

	f := q.filter()
	byState, err := s.counts.CountByState(ctx, f)
	if err != nil {
		return nil, err
	}
	byCond, err := s.counts.CountByCondition(ctx, f)
	if err != nil {
		return nil, err
	}

	st := &Stats{}
	for _, n := range byState {
		st.Total += n
	}
	st.ByState = stateBreakdown(byState, st.Total)
	for _, c := range conditionSlices {
		st.ByCondition = append(st.ByCondition, slice(string(c.cond), c.label, "", byCond[c.cond], st.Total))
	}

	if st.ByCategory, err = s.categories(ctx, q); err != nil {
		return nil, err
	}
	if st.Laptops, err = s.laptops(ctx, q); err != nil {
		return nil, err
	}
	if st.PrinterPages, err = s.printerPages(ctx, q); err != nil {
		return nil, err
	}
	return st, nil
}

// categories: при фильтре по категориям пустые отбрасываются.
func (s *Service) categories(ctx context.Context, q Query) ([]assets.CategoryCount, error) {
	all, err := s.counts.CountByCategory(ctx, q.filter())
	if err != nil {
		return nil, err
	}
	out := make([]assets.CategoryCount, 0, topCategories)
	for _, c := range all {
		if len(q.CategoryIDs) > 0 && c.Count == 0 {
			continue
		}
		out = append(out, c)
		if len(out) == topCategories {
			break
		}
	}
	return out, nil
}

func (s *Service) laptops(ctx context.Context, q Query) (*Breakdown, error) {
	if s.cfg.LaptopCategory == "" {
		return nil, nil
	}
	cat, err := s.cats.FindCategoryFold(ctx, s.cfg.LaptopCategory)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		s.log.Debug("laptop category not found", "name", s.cfg.LaptopCategory)
		return nil, nil
	}
	f := q.filter()
	f.CategoryIDs = []int64{cat.ID}
	byState, err := s.counts.CountByState(ctx, f)
	if err != nil {
		return nil, err
	}
	b := &Breakdown{CategoryID: cat.ID, Name: cat.Name}
	for _, n := range byState {
		b.Total += n
	}
	b.ByState = stateBreakdown(byState, b.Total)
	return b, nil
}

func (s *Service) printerPages(ctx context.Context, q Query) (int, error) {
	if s.cfg.PrinterCategory == "" {
		return 0, nil
	}
	cat, err := s.cats.FindCategoryFold(ctx, s.cfg.PrinterCategory)
	if err != nil || cat == nil {
		return 0, err
	}
	var from, to time.Time
	if q.From != nil {
		from = *q.From
	}
	if q.To != nil {
		to = *q.To
	}
	rs, err := s.readings.ListUpTo(ctx, []int64{cat.ID}, to)
	if err != nil {
		return 0, err
	}
	return printers.Delta(rs, from, to), nil
}

func stateBreakdown(counts map[assets.State]int, total int) []Slice {
	out := make([]Slice, 0, len(stateSlices))
	for _, st := range stateSlices {
		out = append(out, slice(string(st.state), st.label, st.color, counts[st.state], total))
	}
	return out
}

func slice(key, label, color string, n, total int) Slice {
	return Slice{Key: key, Label: label, Color: color, Count: n, Percent: percent(n, total)}
}

// percent с одним знаком после запятой; пустой итог делим на 1.
func percent(n, total int) float64 {
	if total < 1 {
		total = 1
	}
	return float64(n*1000/total) / 10
}

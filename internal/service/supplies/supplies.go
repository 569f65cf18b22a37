// Package supplies — расходники ИТ и напоминание о закупке.
package supplies

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Spok95/itasset/internal/apperr"
	"github.com/Spok95/itasset/internal/domain/consumables"
	"github.com/Spok95/itasset/internal/infra/notify"
	"github.com/robfig/cron/v3"
)

type Store interface {
	Create(ctx context.Context, it *consumables.Item) error
	Get(ctx context.Context, id int64) (*consumables.Item, error)
	Adjust(ctx context.Context, id int64, delta int) error
	List(ctx context.Context) ([]consumables.Item, error)
	ListLow(ctx context.Context) ([]consumables.Item, error)
}

type Service struct {
	store    Store
	notifier notify.Notifier
	log      *slog.Logger
}

func New(store Store, n notify.Notifier, log *slog.Logger) *Service {
	return &Service{store: store, notifier: n, log: log}
}

func (s *Service) Create(ctx context.Context, it consumables.Item) (*consumables.Item, error) {
	it.Name = strings.TrimSpace(it.Name)
	if it.Name == "" {
		return nil, apperr.Validation("name_required", "consumable name is required")
	}
	if it.Quantity < 0 {
		return nil, apperr.Validation("negative_quantity", "quantity cannot be negative")
	}
	if err := s.store.Create(ctx, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

// Adjust: приход (delta > 0) или расход (delta < 0).
func (s *Service) Adjust(ctx context.Context, id int64, delta int) (*consumables.Item, error) {
	if err := s.store.Adjust(ctx, id, delta); err != nil {
		if errors.Is(err, consumables.ErrNotEnough) {
			it, gerr := s.store.Get(ctx, id)
			if gerr == nil && it == nil {
				return nil, apperr.NotFound("consumable_not_found", "consumable %d not found", id)
			}
			return nil, apperr.Validation("not_enough", "not enough quantity to take %d", -delta).Wrap(err)
		}
		return nil, err
	}
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]consumables.Item, error) {
	return s.store.List(ctx)
}

// LowStock — позиции ниже минимального остатка.
func (s *Service) LowStock(ctx context.Context) ([]consumables.Item, error) {
	return s.store.ListLow(ctx)
}

// NotifyLow шлёт одно сообщение со всеми позициями ниже минимума. Пустой список — тишина.
func (s *Service) NotifyLow(ctx context.Context) error {
	items, err := s.LowStock(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("⚠️ Расходники ниже минимума:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "— %s — %d (мин. %d)\n", it.Name, it.Quantity, it.MinQuantity)
	}
	return s.notifier.Notify(ctx, strings.TrimSpace(b.String()))
}

// Watch ставит NotifyLow по расписанию. Остановка — через возвращённый cron.
func (s *Service) Watch(schedule string, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.NotifyLow(ctx); err != nil {
			s.log.Error("low stock notification failed", "err", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}

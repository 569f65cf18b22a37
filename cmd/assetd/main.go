package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Spok95/itasset/internal/config"
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
	"github.com/Spok95/itasset/internal/domain/settings"
	"github.com/Spok95/itasset/internal/domain/stock"
	"github.com/Spok95/itasset/internal/infra/db"
	"github.com/Spok95/itasset/internal/infra/export"
	httpx "github.com/Spok95/itasset/internal/infra/http"
	"github.com/Spok95/itasset/internal/infra/logger"
	"github.com/Spok95/itasset/internal/infra/metrics"
	"github.com/Spok95/itasset/internal/infra/notify"
	"github.com/Spok95/itasset/internal/service/assignments"
	"github.com/Spok95/itasset/internal/service/dashboard"
	"github.com/Spok95/itasset/internal/service/lifecycle"
	"github.com/Spok95/itasset/internal/service/paperwork"
	"github.com/Spok95/itasset/internal/service/printing"
	"github.com/Spok95/itasset/internal/service/stockmove"
	"github.com/Spok95/itasset/internal/service/supplies"
	"github.com/Spok95/itasset/internal/service/upkeep"
	"github.com/Spok95/itasset/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus"
)

func runMigrations(dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(sqlDB, ".")
}

func newNotifier(cfg config.Config, log *slog.Logger) notify.Notifier {
	if cfg.Telegram.Token == "" {
		log.Warn("telegram token is empty, notifications go to the log")
		return notify.Log{L: log}
	}
	tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.AdminChatID, log)
	if err != nil {
		log.Error("telegram init failed, notifications go to the log", "err", err)
		return notify.Log{L: log}
	}
	return tg
}

func main() {
	cfg, err := config.Load("config/example.yaml")
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.App.Env)

	if err := runMigrations(cfg.Postgres.DSN); err != nil {
		log.Error("migrations failed", "err", err)
		return
	}
	log.Info("migrations applied")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return
	}
	defer pool.Close()
	log.Info("db connected")

	conn := db.New(pool)
	var (
		assetRepo   = assets.NewRepo(conn)
		catalogRepo = catalog.NewRepo(conn)
		stockRepo   = stock.NewRepo(conn)
		seqRepo     = sequences.NewRepo(conn)
		printerRepo = printers.NewRepo(conn)
		peopleRepo  = directory.NewRepo(conn)
	)

	locs, err := stockmove.NewResolver(conn, stockRepo, settings.NewRepo(conn), stockmove.ResolverConfig{
		WarehouseRoot: cfg.Stock.WarehouseRoot,
		PoolName:      cfg.Stock.PoolName,
		InUseName:     cfg.Stock.InUseName,
	}, log).Bootstrap(ctx)
	if err != nil {
		log.Error("stock locations bootstrap failed", "err", err)
		return
	}
	log.Info("stock locations ready", "pool", locs.Pool.Name, "in_use", locs.InUse.Name)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}
	notifier := newNotifier(cfg, log)

	life := lifecycle.New(lifecycle.Deps{
		Tx:        conn,
		Assets:    assetRepo,
		Catalog:   catalogRepo,
		Products:  products.NewRepo(conn),
		Directory: peopleRepo,
		Checker:   stockmove.NewPreflight(stockRepo, locs.Pool, m),
		Mover:     stockmove.NewOrchestrator(conn, stockRepo, seqRepo, cfg.Stock.TransferType, log),
		Locations: locs,
		Metrics:   m,
		Log:       log,
	})
	supply := supplies.New(consumables.NewRepo(conn), notifier, log)

	api := &httpx.API{
		Lifecycle: life,
		Assets:    assetRepo,
		Dashboard: dashboard.New(assetRepo, catalogRepo, printerRepo, dashboard.Config{
			LaptopCategory:  cfg.Dashboard.LaptopCategory,
			PrinterCategory: cfg.Dashboard.PrinterCategory,
		}, m, log),
		Maintenance: upkeep.New(maintenance.NewRepo(conn), life, log),
		Printing:    printing.New(conn, printerRepo, assetRepo, catalogRepo, cfg.Dashboard.PrinterCategory, log),
		Holders:     assignments.New(conn, history.NewRepo(conn), life, log),
		Paperwork: paperwork.New(paperwork.Deps{
			Tx:         conn,
			Store:      forms.NewRepo(conn),
			Sequences:  seqRepo,
			Assets:     life,
			People:     peopleRepo,
			Categories: catalogRepo,
			Notifier:   notifier,
			Suffix:     cfg.Forms.DamageReportSuffix,
			Log:        log,
		}),
		Categories: catalogRepo,
		Supplies:   supply,
		Exporter:   export.New(assetRepo, catalogRepo, printerRepo, cfg.Dashboard.PrinterCategory),
		Log:        log,
	}

	watcher, err := supply.Watch(cfg.Consumables.LowStockSchedule, time.Minute)
	if err != nil {
		log.Error("low stock schedule is invalid", "schedule", cfg.Consumables.LowStockSchedule, "err", err)
		return
	}
	defer watcher.Stop()

	srv := httpx.New(httpx.Options{
		Addr:           cfg.HTTP.Addr,
		ExposeMetrics:  cfg.Metrics.Enabled,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Log:            log,
	}, api)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server error", "err", err)
			stop()
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTP.Addr)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("graceful shutdown complete")
}

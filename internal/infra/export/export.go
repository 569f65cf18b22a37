// Package export выгружает реестр активов и показания принтеров в xlsx.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Spok95/itasset/internal/domain/assets"
	"github.com/Spok95/itasset/internal/domain/catalog"
	"github.com/Spok95/itasset/internal/domain/printers"
	"github.com/xuri/excelize/v2"
)

const (
	SheetAssets   = "Assets"
	SheetPrinters = "Printer usage"
)

type AssetLister interface {
	List(ctx context.Context, f assets.Filter) ([]assets.Asset, error)
}

type Categories interface {
	ListCategories(ctx context.Context) ([]catalog.Category, error)
	FindCategoryFold(ctx context.Context, name string) (*catalog.Category, error)
}

type Readings interface {
	ListUpTo(ctx context.Context, categoryIDs []int64, to time.Time) ([]printers.Reading, error)
}

type Exporter struct {
	assets          AssetLister
	cats            Categories
	readings        Readings
	printerCategory string
}

func New(a AssetLister, c Categories, r Readings, printerCategory string) *Exporter {
	return &Exporter{assets: a, cats: c, readings: r, printerCategory: printerCategory}
}

// Write пишет книгу с листами Assets и Printer usage.
func (e *Exporter) Write(ctx context.Context, w io.Writer, f assets.Filter) error {
	list, err := e.assets.List(ctx, f)
	if err != nil {
		return err
	}
	cats, err := e.cats.ListCategories(ctx)
	if err != nil {
		return err
	}
	catNames := make(map[int64]string, len(cats))
	for _, c := range cats {
		catNames[c.ID] = c.Name
	}

	var usage []printers.Usage
	if pc, err := e.cats.FindCategoryFold(ctx, e.printerCategory); err != nil {
		return err
	} else if pc != nil {
		rs, err := e.readings.ListUpTo(ctx, []int64{pc.ID}, time.Time{})
		if err != nil {
			return err
		}
		usage = perAsset(rs)
	}

	names := make(map[int64]string, len(list))
	for _, a := range list {
		names[a.ID] = a.Name
	}

	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName(file.GetSheetName(0), SheetAssets); err != nil {
		return err
	}
	if err := writeAssets(file, list, catNames); err != nil {
		return fmt.Errorf("assets sheet: %w", err)
	}
	if _, err := file.NewSheet(SheetPrinters); err != nil {
		return err
	}
	if err := writeUsage(file, usage, names); err != nil {
		return fmt.Errorf("printer sheet: %w", err)
	}
	return file.Write(w)
}

// perAsset считает приросты отдельно по каждому принтеру. rs — date desc, id desc.
func perAsset(rs []printers.Reading) []printers.Usage {
	byAsset := map[int64][]printers.Reading{}
	var order []int64
	for _, r := range rs {
		if _, ok := byAsset[r.AssetID]; !ok {
			order = append(order, r.AssetID)
		}
		byAsset[r.AssetID] = append(byAsset[r.AssetID], r)
	}
	var out []printers.Usage
	for _, id := range order {
		out = append(out, printers.WithDiffs(byAsset[id])...)
	}
	return out
}

func writeAssets(f *excelize.File, list []assets.Asset, catNames map[int64]string) error {
	header := []interface{}{"id", "name", "tag", "category", "model", "state", "condition", "employee_id", "unit_id", "created_at"}
	if err := f.SetSheetRow(SheetAssets, "A1", &header); err != nil {
		return err
	}
	for i, a := range list {
		row := []interface{}{
			a.ID, a.Name, deref(a.Tag), catName(catNames, a.CategoryID), a.Model,
			string(a.State), string(a.Condition), derefID(a.EmployeeID), derefID(a.UnitID),
			a.CreatedAt.Format("2006-01-02"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetAssets, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeUsage(f *excelize.File, usage []printers.Usage, names map[int64]string) error {
	header := []interface{}{"asset_id", "printer", "date", "bw_pages", "color_pages", "total", "pages_diff", "remarks"}
	if err := f.SetSheetRow(SheetPrinters, "A1", &header); err != nil {
		return err
	}
	for i, u := range usage {
		row := []interface{}{
			u.AssetID, names[u.AssetID], u.Date.Format("2006-01-02"),
			u.BWPages, u.ColorPages, u.Total(), u.PagesDiff, u.Remarks,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetPrinters, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func catName(m map[int64]string, id *int64) string {
	if id == nil {
		return ""
	}
	return m[*id]
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefID(id *int64) interface{} {
	if id == nil {
		return ""
	}
	return *id
}

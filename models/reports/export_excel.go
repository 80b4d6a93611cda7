package reports

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/retailtools/huecos_backend/models"
	"github.com/xuri/excelize/v2"
)

// BuildPickupSheet renders an ingest report as an xlsx pickup sheet, rows
// grouped by aisle so staff can walk the floor in order.
func BuildPickupSheet(report *models.IngestReport) (*excelize.File, error) {
	f := excelize.NewFile()
	_, err := f.NewSheet("Sheet1")
	if err != nil {
		return nil, err
	}

	f.SetCellValue("Sheet1", "A1", "Pasillo")
	f.SetCellValue("Sheet1", "B1", "SKU")
	f.SetCellValue("Sheet1", "C1", "UPC")
	f.SetCellValue("Sheet1", "D1", "Descripcion")
	f.SetCellValue("Sheet1", "E1", "Departamento")
	f.SetCellValue("Sheet1", "F1", "Stock")

	items := make([]models.ScannedProduct, len(report.Resolved))
	copy(items, report.Resolved)
	sort.SliceStable(items, func(i, j int) bool {
		return aisleLess(items[i].Aisle, items[j].Aisle)
	})

	for i, item := range items {
		row := fmt.Sprint(i + 2)
		f.SetCellValue("Sheet1", "A"+row, item.Aisle)
		f.SetCellValue("Sheet1", "B"+row, item.Code)
		f.SetCellValue("Sheet1", "C"+row, item.SecondaryCode)
		f.SetCellValue("Sheet1", "D"+row, item.Description)
		f.SetCellValue("Sheet1", "E"+row, models.ResolveDepartmentName(item.DepartmentId))
		f.SetCellValue("Sheet1", "F"+row, item.Stock)
	}

	return f, nil
}

// aisleLess orders numeric aisle labels numerically and pushes the unknown
// sentinel to the end.
func aisleLess(a, b string) bool {
	if a == models.AisleUnknown {
		return false
	}
	if b == models.AisleUnknown {
		return true
	}
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}

// WritePickupSheet streams the pickup sheet as an xlsx download.
func WritePickupSheet(w http.ResponseWriter, report *models.IngestReport) error {
	f, err := BuildPickupSheet(report)
	if err != nil {
		return err
	}
	// Dates arrive as dd/mm/yyyy; slashes have no place in a filename.
	filename := fmt.Sprintf("huecos_%s_%s.xlsx", report.StoreId, strings.ReplaceAll(report.Date, "/", "-"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	return f.Write(w)
}

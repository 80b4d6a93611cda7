package models

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// ErrCatalogNotLoaded is returned when ingestion is attempted before the
// reference catalog holds any record. It is the only exceptional exit in
// the ingestion flow; everything else degrades to sentinel values.
var ErrCatalogNotLoaded = errors.New("tabla de referencia no cargada")

// DepartmentTotal is one bucket of the per-department tally.
type DepartmentTotal struct {
	Name  string `json:"nombre"`
	Count int    `json:"cantidad"`
}

// ScannedProduct is a resolved catalog record plus the stock seen on the
// scan line.
type ScannedProduct struct {
	ProductRecord
	Stock int `json:"stock"`
}

// IngestReport is the per-(store,date) aggregate of one gap-scan session.
type IngestReport struct {
	StoreId        string                      `json:"id_tienda"`
	Date           string                      `json:"fecha"`
	StoreMeta      map[string]string           `json:"metadata_tienda,omitempty"`
	TotalItems     int                         `json:"total_items"`
	ProcessedLines int                         `json:"lineas_procesadas"`
	TotalLines     int                         `json:"lineas_totales"`
	Departments    map[string]*DepartmentTotal `json:"departamentos"`
	Resolved       []ScannedProduct            `json:"productos_con_info"`
	Unresolved     []ScannedProduct            `json:"productos_sin_departamento"`
	Timestamp      time.Time                   `json:"timestamp"`
}

// ScanEngine consumes pasted scan dumps and keeps the session's reports in
// memory keyed by (storeId, date). It holds the catalog by reference; there
// is no ambient singleton.
type ScanEngine struct {
	catalog *Catalog
	reports map[string]*IngestReport
	rawText map[string]string
}

func NewScanEngine(catalog *Catalog) *ScanEngine {
	return &ScanEngine{
		catalog: catalog,
		reports: make(map[string]*IngestReport),
		rawText: make(map[string]string),
	}
}

func reportKeyOf(storeId, date string) string {
	return storeId + "_" + date
}

// Process ingests one scan session. The delimiter is chosen per line (';'
// when present, ',' otherwise): the input is a manual paste and lines may
// not agree on formatting. Lines with fewer than 8 fields are skipped
// silently but still counted in TotalLines.
func (e *ScanEngine) Process(text, date, storeId string, storeMeta map[string]string) (*IngestReport, error) {
	if e.catalog.Size() == 0 {
		return nil, ErrCatalogNotLoaded
	}

	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var lines []string
	for _, line := range strings.Split(normalized, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		lines = lines[1:] // header
	}

	report := &IngestReport{
		StoreId:     storeId,
		Date:        date,
		StoreMeta:   storeMeta,
		TotalLines:  len(lines),
		Departments: make(map[string]*DepartmentTotal),
		Timestamp:   time.Now(),
	}

	for _, line := range lines {
		delimiter := ","
		if strings.Contains(line, ";") {
			delimiter = ";"
		}
		parts := strings.Split(line, delimiter)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 8 {
			continue
		}
		if parts[0] == "" {
			continue
		}

		code := NormalizeCode(parts[0])
		stock, err := strconv.Atoi(parts[7])
		if err != nil {
			stock = 0
		}

		// Defensive re-skip in case the real header was not on line 0.
		if code == "SKU" || code == "ITEM" {
			continue
		}

		rec, found := e.catalog.Get(code)
		if found && rec.DepartmentId != DeptUnknown {
			bucket := report.Departments[rec.DepartmentId]
			if bucket == nil {
				bucket = &DepartmentTotal{Name: ResolveDepartmentName(rec.DepartmentId)}
				report.Departments[rec.DepartmentId] = bucket
			}
			bucket.Count++
			report.TotalItems++
			report.ProcessedLines++

			item := ScannedProduct{ProductRecord: rec, Stock: stock}
			report.Resolved = append(report.Resolved, item)

			// Departmentally known but without an aisle: it still needs
			// assignment before it prints on a pickup sheet.
			if rec.Aisle == "" || rec.Aisle == AisleUnknown || rec.Aisle == "SIN PASILLO" {
				report.Unresolved = append(report.Unresolved, item)
			}
		} else {
			stub := ProductRecord{
				Code:         code,
				Description:  DescUnknown,
				DepartmentId: DeptUnknown,
				Aisle:        AisleUnknown,
			}
			if found {
				// Carry whatever partial info the record holds, including an
				// empty description.
				stub.Description = rec.Description
				if rec.Aisle != "" && rec.Aisle != AisleUnknown {
					stub.Aisle = rec.Aisle
				}
				stub.SecondaryCode = rec.SecondaryCode
				stub.Category = rec.Category
			}

			item := ScannedProduct{ProductRecord: stub, Stock: stock}
			report.Unresolved = append(report.Unresolved, item)
			report.Resolved = append(report.Resolved, item)

			bucket := report.Departments[DeptUnknown]
			if bucket == nil {
				bucket = &DepartmentTotal{Name: ResolveDepartmentName(DeptUnknown)}
				report.Departments[DeptUnknown] = bucket
			}
			bucket.Count++
			report.TotalItems++
		}
	}

	key := reportKeyOf(storeId, date)
	e.reports[key] = report
	e.rawText[key] = text
	return report, nil
}

// Reprocess re-runs the stored raw text for a session, picking up catalog
// corrections made since the original ingestion.
func (e *ScanEngine) Reprocess(storeId, date string) (*IngestReport, error) {
	key := reportKeyOf(storeId, date)
	raw, ok := e.rawText[key]
	if !ok {
		return nil, errors.New("no raw scan text held for " + key)
	}
	var meta map[string]string
	if prev := e.reports[key]; prev != nil {
		meta = prev.StoreMeta
	}
	return e.Process(raw, date, storeId, meta)
}

// Report returns the in-session report for (storeId, date), if any.
func (e *ScanEngine) Report(storeId, date string) (*IngestReport, bool) {
	r, ok := e.reports[reportKeyOf(storeId, date)]
	return r, ok
}

// SetReport replaces the in-session report, e.g. after a load from the
// durable store.
func (e *ScanEngine) SetReport(r *IngestReport) {
	e.reports[reportKeyOf(r.StoreId, r.Date)] = r
}

// ClearLocal wipes the in-session report map. The reference catalog is
// never touched by history clearing.
func (e *ScanEngine) ClearLocal() {
	e.reports = make(map[string]*IngestReport)
	e.rawText = make(map[string]string)
}

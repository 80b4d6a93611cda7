package models

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/bsm/redislock"
	"github.com/retailtools/huecos_backend/config"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// SuggestionCluster groups newly imported aisle-less products under one
// suggested aisle for bulk operator confirmation.
type SuggestionCluster struct {
	Aisle    string          `json:"aisle"`
	Products []ProductRecord `json:"products"`
}

// StockImportResult is the outcome of one supplier report import.
type StockImportResult struct {
	Products    []ProductRecord     `json:"productos"`
	Suggestions []SuggestionCluster `json:"suggestions"`
}

// StockImporter backfills the reference catalog from bulk supplier stock
// reports. Unlike scan ingestion, the delimiter and column layout are
// detected once per document: these files are machine-generated and
// internally consistent.
type StockImporter struct {
	catalog *Catalog
}

func NewStockImporter(catalog *Catalog) *StockImporter {
	return &StockImporter{catalog: catalog}
}

const stockImportLockKey = "huecos:lock:stock-import"

// Import runs the full text pipeline: BOM/line-ending cleanup, delimiter
// and header detection, placeholder-only enrichment, aisle inference and
// keyword suggestion clustering. Catalog mutations are applied before any
// durable save is attempted; persistence is the caller's concern.
func (s *StockImporter) Import(ctx context.Context, text string) (*StockImportResult, error) {
	clean := strings.TrimPrefix(text, "\uFEFF")
	clean = strings.ReplaceAll(clean, "\r\n", "\n")
	clean = strings.ReplaceAll(clean, "\r", "\n")

	var lines []string
	for _, line := range strings.Split(clean, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return &StockImportResult{}, nil
	}

	delimiter := DetectDelimiter(lines)

	rows := make([][]string, len(lines))
	for i, line := range lines {
		rows[i] = strings.Split(line, delimiter)
	}

	return s.importRows(ctx, rows)
}

// ImportXlsx feeds the same pipeline from a spreadsheet workbook; supplier
// reports arrive as .xlsx as often as raw text. Only the first sheet is read.
func (s *StockImporter) ImportXlsx(ctx context.Context, r io.Reader) (*StockImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	return s.importRows(ctx, rows)
}

func (s *StockImporter) importRows(ctx context.Context, rows [][]string) (*StockImportResult, error) {
	logger := config.GetLogger()

	// Catalog upserts must not interleave with a concurrent import when the
	// host serves parallel requests. Best effort: without Redis the process
	// is single-flow anyway.
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, stockImportLockKey, 30*time.Second, &redislock.Options{
			RetryStrategy: redislock.LinearBackoff(250 * time.Millisecond),
		})
		if err != nil {
			config.LogWarn(logger, "stock_import.go", "importRows", "redislock obtain", err.Error())
		} else {
			defer lock.Release(ctx)
		}
	}

	startIndex, cols := detectColumnsFromRows(rows)

	deptAisle := s.catalog.DeptAisleMajority()
	categoryAisle := s.catalog.DeptCategoryAisleMajority()

	result := &StockImportResult{}

	for i := startIndex; i < len(rows); i++ {
		parts := rows[i]
		for j := range parts {
			parts[j] = strings.TrimSpace(parts[j])
		}
		if len(parts) < 4 {
			continue
		}

		rawCode := fieldAt(parts, cols.Code)
		if strings.TrimSpace(rawCode) == "" {
			continue
		}
		code := NormalizeCode(rawCode)
		// Short tokens are truncated or garbage scans.
		if len(code) < 3 {
			continue
		}

		existing, exists := s.catalog.Get(code)
		if exists && !existing.IsPlaceholder() {
			// Never clobber a fully-known record from a bulk file.
			continue
		}

		deptRaw := strings.ReplaceAll(fieldAt(parts, cols.Department), `"`, "")
		deptParts := strings.Split(deptRaw, "-")
		deptId := strings.TrimSpace(deptParts[0])
		category := strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(fieldAt(parts, cols.Category), `"`, "")))

		// Aisle priority: dept+category majority, dept majority, the
		// existing record's aisle, unknown.
		aisle := categoryAisle[deptId+"|"+category]
		if aisle == "" {
			aisle = deptAisle[deptId]
		}
		if aisle == "" && exists {
			aisle = existing.Aisle
		}
		if aisle == "" {
			aisle = AisleUnknown
		}

		description := strings.TrimSpace(strings.ReplaceAll(fieldAt(parts, cols.Description), `"`, ""))
		if description == "" {
			description = strings.TrimSpace(strings.Join(deptParts[1:], "-"))
		}
		if description == "" {
			description = DescImported
		}

		if deptId == "" {
			deptId = "SIN_DEPT"
		}

		rec := ProductRecord{
			Code:          code,
			Description:   description,
			DepartmentId:  deptId,
			Aisle:         NormalizeAisle(aisle),
			SecondaryCode: normalizeOptionalCode(fieldAt(parts, cols.SecondaryCode)),
			Category:      category,
			IsCustom:      true,
		}

		s.catalog.Upsert(rec)
		result.Products = append(result.Products, rec)
	}

	result.Suggestions = s.buildSuggestions(result.Products)
	return result, nil
}

func fieldAt(parts []string, idx int) string {
	if idx < 0 || idx >= len(parts) {
		return ""
	}
	return parts[idx]
}

// buildSuggestions clusters the still-aisle-less new records by the aisle
// their first matching description keyword predicts. Clusters are proposals
// only; nothing is committed until the operator confirms.
func (s *StockImporter) buildSuggestions(newRecords []ProductRecord) []SuggestionCluster {
	keywordAisle := s.catalog.KeywordAisleIndex()

	clusterIndex := make(map[string]int)
	var clusters []SuggestionCluster

	for _, rec := range newRecords {
		if rec.Aisle != AisleUnknown {
			continue
		}

		suggested := ""
		for _, token := range tokenizeDescription(rec.Description) {
			if aisle, ok := keywordAisle[token]; ok {
				suggested = aisle
				break
			}
		}
		if suggested == "" {
			continue
		}

		idx, ok := clusterIndex[suggested]
		if !ok {
			idx = len(clusters)
			clusterIndex[suggested] = idx
			clusters = append(clusters, SuggestionCluster{Aisle: suggested})
		}
		clusters[idx].Products = append(clusters[idx].Products, rec)
	}
	return clusters
}

// CommitCluster applies an operator-approved suggestion: every member is
// re-upserted with the cluster's aisle forced and marked custom. Returns
// the updated records for persistence.
func (s *StockImporter) CommitCluster(cluster SuggestionCluster) []ProductRecord {
	updated := make([]ProductRecord, 0, len(cluster.Products))
	for _, p := range cluster.Products {
		p.Code = NormalizeCode(p.Code)
		if current, ok := s.catalog.Get(p.Code); ok {
			p = current
		}
		p.Aisle = NormalizeAisle(cluster.Aisle)
		p.IsCustom = true
		s.catalog.Upsert(p)
		updated = append(updated, p)
	}
	return updated
}

// StockReportArchive keeps the raw text of the last imported supplier
// report so a session can replay it after a catalog reload.
type StockReportArchive struct {
	ID        int       `gorm:"primaryKey" json:"id"`
	RawText   string    `gorm:"type:longtext" json:"raw_text"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// SaveStockReportRaw archives the raw report text. Failures are non-fatal:
// the in-memory import already happened.
func SaveStockReportRaw(ctx context.Context, text string) error {
	db := config.GetDB()
	if db == nil {
		return nil
	}
	row := StockReportArchive{RawText: text}
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		config.LogError(config.GetLogger(), "stock_import.go", "SaveStockReportRaw", "db create", nil, err)
		return err
	}
	return nil
}

// LoadStockReportRaw returns the most recently archived report text, or ""
// when none exists.
func LoadStockReportRaw(ctx context.Context) (string, error) {
	db := config.GetDB()
	if db == nil {
		return "", nil
	}
	var row StockReportArchive
	err := db.WithContext(ctx).Order("id DESC").First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return row.RawText, nil
}

// ReplayArchivedReport re-imports the last archived supplier report so a
// fresh process recovers the enrichment made in a previous session. Returns
// (nil, nil) when no archive exists.
func (s *StockImporter) ReplayArchivedReport(ctx context.Context) (*StockImportResult, error) {
	raw, err := LoadStockReportRaw(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	return s.Import(ctx, raw)
}

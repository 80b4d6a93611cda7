package models

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/retailtools/huecos_backend/config"
	"github.com/retailtools/huecos_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScanHistory is the durable per-(store,date) report row. The full report
// travels as a JSON document in ReportJson; the scalar columns exist for
// cheap history listings.
type ScanHistory struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	StoreId         string    `gorm:"size:32;uniqueIndex:idx_store_date" json:"id_tienda"`
	Date            string    `gorm:"size:16;uniqueIndex:idx_store_date" json:"fecha"`
	TotalItems      int       `json:"total_items"`
	DepartmentCount int       `json:"department_count"`
	Detail          string    `gorm:"size:255" json:"detalle"`
	ReportJson      []byte    `gorm:"type:json" json:"-"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// ScanHistorySummary is the report row without its JSON payload.
type ScanHistorySummary struct {
	StoreId         string    `json:"id_tienda"`
	Date            string    `json:"fecha"`
	TotalItems      int       `json:"total_items"`
	DepartmentCount int       `json:"department_count"`
	Detail          string    `json:"detalle"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const reportKeyPrefix = "huecos:report:"

// SaveReport persists an ingest report, overwriting any prior row for the
// same (store,date). The in-memory report stays the source of truth when
// the store is unreachable; callers must treat the error as a warning.
func SaveReport(ctx context.Context, report *IngestReport) error {
	logger := config.GetLogger()

	payload, err := utils.MarshalToJSON(report)
	if err != nil {
		return err
	}

	if db := config.GetDB(); db != nil {
		row := ScanHistory{
			ID:              uuid.New().String(),
			StoreId:         report.StoreId,
			Date:            report.Date,
			TotalItems:      report.TotalItems,
			DepartmentCount: len(report.Departments),
			Detail: fmt.Sprintf("Procesados: %d items, Departamentos: %d",
				report.TotalItems, len(report.Departments)),
			ReportJson: []byte(payload),
		}
		err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "store_id"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_items", "department_count", "detail", "report_json", "updated_at",
			}),
		}).Create(&row).Error
		if err != nil {
			config.LogError(logger, "scan_history.go", "SaveReport", "db upsert", report.StoreId, err)
			return err
		}
	}

	// Cache failures only cost the hot path; MySQL already has the row.
	if err := config.SetRedisObject(reportKeyPrefix+reportKeyOf(report.StoreId, report.Date), report, 24*time.Hour); err != nil {
		config.LogWarn(logger, "scan_history.go", "SaveReport", "redis set", err.Error())
	}
	return nil
}

// LoadReport fetches a stored report, redis first, then MySQL. Returns
// utils.ErrorRecordNotFound when no row exists.
func LoadReport(ctx context.Context, storeId, date string) (*IngestReport, error) {
	var cached IngestReport
	if ok, err := config.GetRedisObject(reportKeyPrefix+reportKeyOf(storeId, date), &cached); err == nil && ok {
		return &cached, nil
	}

	db := config.GetDB()
	if db == nil {
		return nil, utils.ErrorRecordNotFound
	}

	var row ScanHistory
	err := db.WithContext(ctx).Where("store_id = ? AND date = ?", storeId, date).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	report, err := utils.UnmarshalFromJSON[IngestReport](row.ReportJson)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ListSummaries returns the stored history for a store, newest first,
// without the JSON payloads.
func ListSummaries(ctx context.Context, storeId string) ([]*ScanHistorySummary, error) {
	db := config.GetDB()
	if db == nil {
		return nil, nil
	}

	var rows []ScanHistory
	query := db.WithContext(ctx).
		Select("store_id", "date", "total_items", "department_count", "detail", "updated_at").
		Order("updated_at DESC")
	if storeId != "" {
		query = query.Where("store_id = ?", storeId)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	summaries := make([]*ScanHistorySummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, &ScanHistorySummary{
			StoreId:         row.StoreId,
			Date:            row.Date,
			TotalItems:      row.TotalItems,
			DepartmentCount: row.DepartmentCount,
			Detail:          row.Detail,
			UpdatedAt:       row.UpdatedAt,
		})
	}
	return summaries, nil
}

// ClearHistory wipes the durable report store and its redis cache. The
// reference catalog and its custom-product side cache are never touched.
func ClearHistory(ctx context.Context) error {
	logger := config.GetLogger()

	if db := config.GetDB(); db != nil {
		if err := db.WithContext(ctx).Where("1 = 1").Delete(&ScanHistory{}).Error; err != nil {
			config.LogError(logger, "scan_history.go", "ClearHistory", "db delete", nil, err)
			return err
		}
	}

	if err := config.RemoveRedisKeysByPrefix(reportKeyPrefix); err != nil {
		config.LogWarn(logger, "scan_history.go", "ClearHistory", "redis del", err.Error())
	}
	return nil
}

// saveBatchWorkers bounds how many catalog-record saves run in flight.
const saveBatchWorkers = 8

// SaveCatalogRecords persists a batch of new/updated catalog records to the
// custom-product side cache with bounded concurrency. Order within the
// batch is not guaranteed; completion is awaited before returning. Failed
// saves come back as warnings, never as a hard error: the catalog mutations
// already happened and local state remains usable.
func SaveCatalogRecords(ctx context.Context, records []ProductRecord) []string {
	if len(records) == 0 {
		return nil
	}

	var (
		mu       sync.Mutex
		warnings []string
		wg       sync.WaitGroup
	)
	sem := make(chan struct{}, saveBatchWorkers)

	for _, rec := range records {
		wg.Add(1)
		sem <- struct{}{}
		go func(rec ProductRecord) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := persistCustomRecord(ctx, rec); err != nil {
				mu.Lock()
				warnings = append(warnings, fmt.Sprintf("save %s: %v", rec.Code, err))
				mu.Unlock()
			}
		}(rec)
	}
	wg.Wait()
	return warnings
}

package models

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/retailtools/huecos_backend/config"
	"gorm.io/gorm/clause"
)

// Tunable thresholds for keyword-based aisle suggestion. A token predicts an
// aisle only when one aisle holds more than KeywordDominanceRatio of its
// occurrences across at least KeywordMinSamples records.
var (
	KeywordDominanceRatio = 0.8
	KeywordMinSamples     = 2
)

// ProductRecord is the canonical catalog entry keyed by normalized code.
// Missing information is carried as sentinel values (DeptUnknown,
// AisleUnknown, empty secondary code), never as absent fields.
type ProductRecord struct {
	Code          string `json:"sku"`
	Description   string `json:"descripcion"`
	DepartmentId  string `json:"dept_id"`
	Aisle         string `json:"pasillo"`
	SecondaryCode string `json:"upc"`
	Category      string `json:"clase"`
	IsCustom      bool   `json:"is_custom"`
}

// IsPlaceholder reports whether the record is still missing department,
// description or aisle information and is therefore eligible for enrichment.
func (p ProductRecord) IsPlaceholder() bool {
	return p.DepartmentId == DeptUnknown ||
		p.Description == DescUnknown ||
		p.Aisle == AisleUnknown
}

// Catalog is the in-memory reference table. Iteration order is insertion
// order; secondary-code lookups and majority votes depend on it being stable.
type Catalog struct {
	records map[string]ProductRecord
	order   []string
}

func NewCatalog() *Catalog {
	return &Catalog{records: make(map[string]ProductRecord)}
}

func (c *Catalog) Size() int {
	return len(c.records)
}

// Load replaces/merges baseline rows shaped as
// (code, class, deptId, aisle, description, secondaryCode). The first row is
// a header and is skipped; rows with fewer than 6 fields, an empty code or an
// empty department are dropped. Returns the number of distinct codes held.
func (c *Catalog) Load(rows [][]string) int {
	for i := 1; i < len(rows); i++ {
		parts := rows[i]
		if len(parts) < 6 {
			continue
		}
		rawCode := strings.TrimSpace(parts[0])
		deptId := strings.TrimSpace(parts[2])
		if rawCode == "" || deptId == "" {
			continue
		}
		c.Upsert(ProductRecord{
			Code:          NormalizeCode(rawCode),
			Category:      strings.TrimSpace(parts[1]),
			DepartmentId:  deptId,
			Aisle:         NormalizeAisle(parts[3]),
			Description:   strings.ReplaceAll(strings.TrimSpace(parts[4]), `"`, ""),
			SecondaryCode: normalizeOptionalCode(parts[5]),
		})
	}
	return len(c.records)
}

func normalizeOptionalCode(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	return NormalizeCode(raw)
}

func (c *Catalog) Get(code string) (ProductRecord, bool) {
	rec, ok := c.records[code]
	return rec, ok
}

// Upsert overwrites by code. No partial merge: callers read-before-write
// when they want to preserve fields.
func (c *Catalog) Upsert(rec ProductRecord) {
	if _, exists := c.records[rec.Code]; !exists {
		c.order = append(c.order, rec.Code)
	}
	c.records[rec.Code] = rec
}

// Records returns every record in insertion order.
func (c *Catalog) Records() []ProductRecord {
	out := make([]ProductRecord, 0, len(c.order))
	for _, code := range c.order {
		out = append(out, c.records[code])
	}
	return out
}

// FindBySecondaryCode resolves a scanned query: first as a primary code,
// then by scanning secondary codes, accepting a suffix match to tolerate
// barcodes whose leading digits were truncated. The scan runs in insertion
// order so ties resolve the same way on every call.
func (c *Catalog) FindBySecondaryCode(query string) (ProductRecord, bool) {
	if strings.TrimSpace(query) == "" {
		return ProductRecord{}, false
	}
	normalized := NormalizeCode(query)

	if rec, ok := c.records[normalized]; ok {
		return rec, true
	}

	for _, code := range c.order {
		rec := c.records[code]
		if rec.SecondaryCode == "" {
			continue
		}
		if rec.SecondaryCode == normalized || strings.HasSuffix(rec.SecondaryCode, normalized) {
			return rec, true
		}
	}
	return ProductRecord{}, false
}

// ListKnownAisles returns the distinct non-sentinel aisle labels. Labels
// that parse as integers sort numerically among themselves; otherwise the
// comparison falls back to string order.
func (c *Catalog) ListKnownAisles() []string {
	seen := make(map[string]bool)
	var aisles []string
	for _, code := range c.order {
		a := c.records[code].Aisle
		if a == "" || a == AisleUnknown || a == "SIN PASILLO" {
			continue
		}
		if !seen[a] {
			seen[a] = true
			aisles = append(aisles, a)
		}
	}
	sort.Slice(aisles, func(i, j int) bool {
		ni, erri := strconv.Atoi(aisles[i])
		nj, errj := strconv.Atoi(aisles[j])
		if erri == nil && errj == nil {
			return ni < nj
		}
		return aisles[i] < aisles[j]
	})
	return aisles
}

// DeptAisleMajority maps each department to its most frequent known aisle.
// Ties resolve to the aisle seen first during the catalog scan.
func (c *Catalog) DeptAisleMajority() map[string]string {
	counts := make(map[string]map[string]int)
	aisleOrder := make(map[string][]string)

	for _, code := range c.order {
		rec := c.records[code]
		if rec.DepartmentId == "" || rec.Aisle == "" || rec.Aisle == AisleUnknown || rec.Aisle == "SIN PASILLO" {
			continue
		}
		if counts[rec.DepartmentId] == nil {
			counts[rec.DepartmentId] = make(map[string]int)
		}
		if counts[rec.DepartmentId][rec.Aisle] == 0 {
			aisleOrder[rec.DepartmentId] = append(aisleOrder[rec.DepartmentId], rec.Aisle)
		}
		counts[rec.DepartmentId][rec.Aisle]++
	}

	result := make(map[string]string, len(counts))
	for dept, aisleCounts := range counts {
		best := AisleUnknown
		maxCount := 0
		for _, aisle := range aisleOrder[dept] {
			if aisleCounts[aisle] > maxCount {
				maxCount = aisleCounts[aisle]
				best = aisle
			}
		}
		result[dept] = best
	}
	return result
}

// DeptCategoryAisleMajority is the higher-precision variant keyed by
// "deptId|CATEGORY"; consulted before the plain department mapping.
func (c *Catalog) DeptCategoryAisleMajority() map[string]string {
	counts := make(map[string]map[string]int)
	aisleOrder := make(map[string][]string)

	for _, code := range c.order {
		rec := c.records[code]
		if rec.DepartmentId == "" || rec.Category == "" {
			continue
		}
		if rec.Aisle == "" || rec.Aisle == AisleUnknown || rec.Aisle == "SIN PASILLO" {
			continue
		}
		key := rec.DepartmentId + "|" + strings.ToUpper(rec.Category)
		if counts[key] == nil {
			counts[key] = make(map[string]int)
		}
		if counts[key][rec.Aisle] == 0 {
			aisleOrder[key] = append(aisleOrder[key], rec.Aisle)
		}
		counts[key][rec.Aisle]++
	}

	result := make(map[string]string, len(counts))
	for key, aisleCounts := range counts {
		best := ""
		maxCount := 0
		for _, aisle := range aisleOrder[key] {
			if aisleCounts[aisle] > maxCount {
				maxCount = aisleCounts[aisle]
				best = aisle
			}
		}
		result[key] = best
	}
	return result
}

// KeywordAisleIndex learns description tokens that reliably predict an
// aisle. A token qualifies when a single aisle holds more than
// KeywordDominanceRatio of its occurrences and the token appears in at
// least KeywordMinSamples records.
func (c *Catalog) KeywordAisleIndex() map[string]string {
	tokenCounts := make(map[string]map[string]int)
	tokenAisleOrder := make(map[string][]string)

	for _, code := range c.order {
		rec := c.records[code]
		if rec.Aisle == "" || rec.Aisle == AisleUnknown {
			continue
		}
		for _, token := range tokenizeDescription(rec.Description) {
			if tokenCounts[token] == nil {
				tokenCounts[token] = make(map[string]int)
			}
			if tokenCounts[token][rec.Aisle] == 0 {
				tokenAisleOrder[token] = append(tokenAisleOrder[token], rec.Aisle)
			}
			tokenCounts[token][rec.Aisle]++
		}
	}

	result := make(map[string]string)
	for token, aisleCounts := range tokenCounts {
		total := 0
		best := ""
		maxCount := 0
		for _, aisle := range tokenAisleOrder[token] {
			count := aisleCounts[aisle]
			total += count
			if count > maxCount {
				maxCount = count
				best = aisle
			}
		}
		if total >= KeywordMinSamples && float64(maxCount)/float64(total) > KeywordDominanceRatio {
			result[token] = best
		}
	}
	return result
}

// CustomProduct is the durable side cache for operator-confirmed and
// import-enriched records. It is keyed by code independently of the
// baseline load path so custom edits survive a baseline reload.
type CustomProduct struct {
	Code          string    `gorm:"primaryKey;size:64" json:"sku"`
	Description   string    `gorm:"size:255" json:"descripcion"`
	DepartmentId  string    `gorm:"size:32;index" json:"dept_id"`
	Aisle         string    `gorm:"size:64" json:"pasillo"`
	SecondaryCode string    `gorm:"size:64;index" json:"upc"`
	Category      string    `gorm:"size:64" json:"clase"`
	IsCustom      bool      `gorm:"not null;default:true" json:"is_custom"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p ProductRecord) toCustomProduct() CustomProduct {
	return CustomProduct{
		Code:          p.Code,
		Description:   p.Description,
		DepartmentId:  p.DepartmentId,
		Aisle:         p.Aisle,
		SecondaryCode: p.SecondaryCode,
		Category:      p.Category,
		IsCustom:      p.IsCustom,
	}
}

func (p CustomProduct) toRecord() ProductRecord {
	return ProductRecord{
		Code:          p.Code,
		Description:   p.Description,
		DepartmentId:  p.DepartmentId,
		Aisle:         p.Aisle,
		SecondaryCode: p.SecondaryCode,
		Category:      p.Category,
		IsCustom:      p.IsCustom,
	}
}

const customProductKeyPrefix = "huecos:custom:"

// AddCustomRecord applies an operator correction: the record is normalized,
// written to the in-memory catalog first, then persisted to the side cache.
// The in-memory write never rolls back; a persistence failure is returned
// as a non-fatal warning for the caller.
func AddCustomRecord(ctx context.Context, cat *Catalog, rec ProductRecord) (ProductRecord, error) {
	rec.Code = NormalizeCode(rec.Code)
	rec.SecondaryCode = normalizeOptionalCode(rec.SecondaryCode)
	rec.Aisle = NormalizeAisle(rec.Aisle)
	if rec.DepartmentId == "" {
		rec.DepartmentId = DeptUnknown
	}
	rec.IsCustom = true

	cat.Upsert(rec)

	return rec, persistCustomRecord(ctx, rec)
}

func persistCustomRecord(ctx context.Context, rec ProductRecord) error {
	logger := config.GetLogger()

	if db := config.GetDB(); db != nil {
		row := rec.toCustomProduct()
		if err := db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			config.LogError(logger, "catalog.go", "persistCustomRecord", "db upsert", rec.Code, err)
			return err
		}
	}

	if err := config.SetRedisObject(customProductKeyPrefix+rec.Code, rec, 0); err != nil {
		config.LogError(logger, "catalog.go", "persistCustomRecord", "redis set", rec.Code, err)
		return err
	}
	return nil
}

// RestoreCustomRecords replays the side cache into the catalog. Called after
// every baseline load so custom edits win over baseline rows.
func RestoreCustomRecords(ctx context.Context, cat *Catalog) (int, error) {
	db := config.GetDB()
	if db == nil {
		return 0, nil
	}

	var rows []CustomProduct
	if err := db.WithContext(ctx).Find(&rows).Error; err != nil {
		return 0, err
	}
	for _, row := range rows {
		cat.Upsert(row.toRecord())
	}
	return len(rows), nil
}

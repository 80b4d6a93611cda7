package models_test

import (
	"context"
	"testing"

	"github.com/retailtools/huecos_backend/models"
)

func TestImportEnrichesPlaceholders(t *testing.T) {
	cat := models.NewCatalog()
	// Two known dept-20 records teach the majority vote.
	cat.Upsert(models.ProductRecord{Code: "AAA1", Description: "GALLETAS DULCES", DepartmentId: "20", Aisle: "5", Category: "GALLETAS"})
	cat.Upsert(models.ProductRecord{Code: "AAA2", Description: "GALLETAS SALADAS", DepartmentId: "20", Aisle: "5", Category: "GALLETAS"})
	// Placeholder awaiting enrichment.
	cat.Upsert(models.ProductRecord{Code: "SKU002", Description: models.DescUnknown, DepartmentId: "20", Aisle: models.AisleUnknown})

	importer := models.NewStockImporter(cat)
	text := "DEPARTAMENTO;CLASE;EAN;SKU;DESCRIPCION\n" +
		"20-Snacks;GALLETAS;779123456;SKU002;\n"

	result, err := importer.Import(context.Background(), text)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(result.Products) != 1 {
		t.Fatalf("imported %d products, want 1", len(result.Products))
	}

	rec, ok := cat.Get("SKU002")
	if !ok {
		t.Fatal("SKU002 missing after import")
	}
	if rec.DepartmentId != "20" {
		t.Errorf("dept = %q, want 20 (prefix of 20-Snacks)", rec.DepartmentId)
	}
	// Empty description column falls back to the department remainder.
	if rec.Description != "Snacks" {
		t.Errorf("description = %q, want Snacks", rec.Description)
	}
	if rec.Aisle != "5" {
		t.Errorf("aisle = %q, want 5 (dept+category majority)", rec.Aisle)
	}
	if rec.SecondaryCode != "779123456" {
		t.Errorf("secondary = %q", rec.SecondaryCode)
	}
	if !rec.IsCustom {
		t.Error("imported record must be flagged custom")
	}
	if len(result.Suggestions) != 0 {
		t.Errorf("suggestions = %+v, want none: the aisle resolved", result.Suggestions)
	}
}

func TestImportNeverClobbersCompleteRecords(t *testing.T) {
	cat := models.NewCatalog()
	complete := models.ProductRecord{Code: "SKU100", Description: "Aceite Girasol", DepartmentId: "92", Aisle: "3"}
	cat.Upsert(complete)

	importer := models.NewStockImporter(cat)
	result, err := importer.Import(context.Background(), "DEPTO,CLASE,UPC,CODIGO,NOMBRE\n92-Almacen,ACEITES,,SKU100,Otra Cosa\n")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if len(result.Products) != 0 {
		t.Fatalf("imported %d products, want 0", len(result.Products))
	}
	if rec, _ := cat.Get("SKU100"); rec != complete {
		t.Errorf("record was modified: %+v", rec)
	}
}

func TestImportSuggestionClustersAndCommit(t *testing.T) {
	cat := models.NewCatalog()
	// YOGURT appears on aisle 12 in two records: it becomes a predictor.
	cat.Upsert(models.ProductRecord{Code: "Y1", Description: "YOGURT ENTERO", DepartmentId: "90", Aisle: "12"})
	cat.Upsert(models.ProductRecord{Code: "Y2", Description: "YOGURT BEBIBLE", DepartmentId: "90", Aisle: "12"})

	importer := models.NewStockImporter(cat)
	text := "DEPTO,CLASE,UPC,CODIGO,NOMBRE\n" +
		"77,LACTEOS,,YOG1,YOGURT FRUTILLA\n" +
		"77,LACTEOS,,YOG2,YOGURT DURAZNO\n"

	result, err := importer.Import(context.Background(), text)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(result.Products) != 2 {
		t.Fatalf("imported %d products, want 2", len(result.Products))
	}
	// Dept 77 has no aisle majority, so both land aisle-less and cluster
	// under the keyword-predicted aisle.
	if len(result.Suggestions) != 1 {
		t.Fatalf("suggestions = %+v, want one cluster", result.Suggestions)
	}
	cluster := result.Suggestions[0]
	if cluster.Aisle != "12" || len(cluster.Products) != 2 {
		t.Fatalf("cluster = %+v, want aisle 12 with 2 products", cluster)
	}
	if rec, _ := cat.Get("YOG1"); rec.Aisle != models.AisleUnknown {
		t.Errorf("pre-commit aisle = %q, suggestions must not mutate the catalog", rec.Aisle)
	}

	updated := importer.CommitCluster(cluster)
	if len(updated) != 2 {
		t.Fatalf("committed %d records, want 2", len(updated))
	}
	for _, code := range []string{"YOG1", "YOG2"} {
		rec, _ := cat.Get(code)
		if rec.Aisle != "12" {
			t.Errorf("%s aisle = %q, want 12 after commit", code, rec.Aisle)
		}
		if !rec.IsCustom {
			t.Errorf("%s must be flagged custom after commit", code)
		}
	}
}

func TestStockReportArchiveWithoutStore(t *testing.T) {
	ctx := context.Background()

	// Without MySQL the archive is a no-op on both sides: the save reports
	// success and the replay finds nothing to import.
	if err := models.SaveStockReportRaw(ctx, "DEPTO,CLASE,UPC,CODIGO,NOMBRE\n10,BAZAR,,ABC123,Vaso"); err != nil {
		t.Fatalf("SaveStockReportRaw: %v", err)
	}
	raw, err := models.LoadStockReportRaw(ctx)
	if err != nil {
		t.Fatalf("LoadStockReportRaw: %v", err)
	}
	if raw != "" {
		t.Errorf("raw = %q, want empty without a database", raw)
	}

	importer := models.NewStockImporter(models.NewCatalog())
	result, err := importer.ReplayArchivedReport(ctx)
	if err != nil {
		t.Fatalf("ReplayArchivedReport: %v", err)
	}
	if result != nil {
		t.Errorf("replay result = %+v, want nil when no archive exists", result)
	}
}

func TestImportCleansInputAndFiltersGarbage(t *testing.T) {
	cat := models.NewCatalog()
	importer := models.NewStockImporter(cat)

	// BOM-prefixed, CRLF, headerless: the default column layout applies
	// (dept 0, category 1, secondary 2, code 3, description 4).
	text := "\uFEFF10,BAZAR,,AB,Too short\r\n" +
		"10,BAZAR,,ABC123,Vaso Grande\r\n" +
		"10,BAZAR,,,Sin valor\r\n" +
		"solo,dos\r\n"

	result, err := importer.Import(context.Background(), text)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(result.Products) != 1 {
		t.Fatalf("imported %d products, want only ABC123", len(result.Products))
	}
	rec := result.Products[0]
	if rec.Code != "ABC123" || rec.Description != "Vaso Grande" || rec.DepartmentId != "10" {
		t.Errorf("record = %+v", rec)
	}
	// No majority data, no keywords: unknown aisle, no suggestions.
	if rec.Aisle != models.AisleUnknown {
		t.Errorf("aisle = %q, want %q", rec.Aisle, models.AisleUnknown)
	}
	if len(result.Suggestions) != 0 {
		t.Errorf("suggestions = %+v, want none", result.Suggestions)
	}
}

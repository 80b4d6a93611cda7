package models_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/retailtools/huecos_backend/models"
)

func TestCatalogLoadAndGet(t *testing.T) {
	cat := models.NewCatalog()
	rows := [][]string{
		{"SKU", "CLASE", "DEPTO", "PASILLO", "DESCRIPCION", "UPC"}, // header
		{"SKU001", "GALLETAS", "10", "A1", `"Widget"`, "UPC001"},
		{"bad-row"},
		{"", "X", "10", "A1", "no code", ""},
		{"00777", "", "20", "sin pasillo", "Zero padded", "1.04E+8"},
	}
	if size := cat.Load(rows); size != 2 {
		t.Fatalf("Load returned %d, want 2", size)
	}

	rec, ok := cat.Get("SKU001")
	if !ok {
		t.Fatal("SKU001 not found after load")
	}
	if rec.Description != "Widget" || rec.DepartmentId != "10" || rec.Aisle != "A1" || rec.SecondaryCode != "UPC001" {
		t.Errorf("unexpected record: %+v", rec)
	}

	padded, ok := cat.Get("777")
	if !ok {
		t.Fatal("leading zeros should strip to 777")
	}
	if padded.Aisle != models.AisleUnknown {
		t.Errorf("aisle = %q, want sentinel", padded.Aisle)
	}
	if padded.SecondaryCode != "104000000" {
		t.Errorf("secondary code = %q, want expanded notation", padded.SecondaryCode)
	}
}

func TestCatalogUpsertThenGetVerbatim(t *testing.T) {
	cat := models.NewCatalog()
	want := models.ProductRecord{
		Code:          "ABC123",
		Description:   "Te verde",
		DepartmentId:  "92",
		Aisle:         "7",
		SecondaryCode: "7798000000001",
		Category:      "INFUSIONES",
		IsCustom:      true,
	}
	cat.Upsert(want)

	got, ok := cat.Get("ABC123")
	if !ok {
		t.Fatal("record not found after upsert")
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestFindBySecondaryCode(t *testing.T) {
	cat := models.NewCatalog()
	cat.Upsert(models.ProductRecord{Code: "A1", SecondaryCode: "7798123456789", DepartmentId: "10"})
	cat.Upsert(models.ProductRecord{Code: "A2", SecondaryCode: "9998123456789", DepartmentId: "20"})

	// Primary code wins.
	if rec, ok := cat.FindBySecondaryCode("A2"); !ok || rec.Code != "A2" {
		t.Errorf("primary lookup failed: %+v %v", rec, ok)
	}

	// Exact secondary match.
	if rec, ok := cat.FindBySecondaryCode("7798123456789"); !ok || rec.Code != "A1" {
		t.Errorf("exact secondary lookup failed: %+v %v", rec, ok)
	}

	// Truncated barcode: scanner dropped leading digits. Both secondary
	// codes share the suffix; insertion order makes A1 the stable winner.
	if rec, ok := cat.FindBySecondaryCode("8123456789"); !ok || rec.Code != "A1" {
		t.Errorf("suffix lookup = %+v %v, want A1", rec, ok)
	}

	if _, ok := cat.FindBySecondaryCode("none"); ok {
		t.Error("unexpected match for unknown code")
	}
	if _, ok := cat.FindBySecondaryCode("  "); ok {
		t.Error("blank query must not match")
	}
}

func TestListKnownAislesMixedSort(t *testing.T) {
	cat := models.NewCatalog()
	for i, aisle := range []string{"12", "3", "HARINAS Y ACEITE", "S/D", "1", "CHECKOUT", "3"} {
		cat.Upsert(models.ProductRecord{Code: "C" + string(rune('A'+i)), DepartmentId: "1", Aisle: aisle})
	}

	got := cat.ListKnownAisles()
	want := []string{"1", "3", "12", "CHECKOUT", "HARINAS Y ACEITE"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListKnownAisles = %v, want %v", got, want)
	}
}

func TestDeptAisleMajorityTieBreak(t *testing.T) {
	cat := models.NewCatalog()
	// Dept 10: aisle A seen first, then 3xA and 3xB -> tie, A wins by
	// first-seen order.
	aisles := []string{"A", "B", "A", "B", "A", "B"}
	for i, aisle := range aisles {
		cat.Upsert(models.ProductRecord{Code: "T" + string(rune('0'+i)), DepartmentId: "10", Aisle: aisle})
	}

	mapping := cat.DeptAisleMajority()
	if mapping["10"] != "A" {
		t.Errorf("tie must resolve to first-seen aisle A, got %q", mapping["10"])
	}
}

func TestDeptCategoryAisleMajority(t *testing.T) {
	cat := models.NewCatalog()
	cat.Upsert(models.ProductRecord{Code: "P1", DepartmentId: "20", Category: "snacks", Aisle: "5"})
	cat.Upsert(models.ProductRecord{Code: "P2", DepartmentId: "20", Category: "SNACKS", Aisle: "5"})
	cat.Upsert(models.ProductRecord{Code: "P3", DepartmentId: "20", Category: "SNACKS", Aisle: "9"})
	cat.Upsert(models.ProductRecord{Code: "P4", DepartmentId: "20", Category: "", Aisle: "9"})

	mapping := cat.DeptCategoryAisleMajority()
	if mapping["20|SNACKS"] != "5" {
		t.Errorf(`mapping["20|SNACKS"] = %q, want "5"`, mapping["20|SNACKS"])
	}
	if _, ok := mapping["20|"]; ok {
		t.Error("records without category must not contribute a key")
	}
}

func TestKeywordAisleIndexThresholds(t *testing.T) {
	cat := models.NewCatalog()
	cat.Upsert(models.ProductRecord{Code: "Y1", DepartmentId: "90", Aisle: "12", Description: "YOGURT FRUTILLA 120G"})
	cat.Upsert(models.ProductRecord{Code: "Y2", DepartmentId: "90", Aisle: "12", Description: "YOGURT NATURAL 500G"})
	// Single occurrence: below the sample minimum.
	cat.Upsert(models.ProductRecord{Code: "Q1", DepartmentId: "80", Aisle: "4", Description: "QUESO CREMOSO"})
	// Split across aisles: below the dominance ratio.
	cat.Upsert(models.ProductRecord{Code: "L1", DepartmentId: "90", Aisle: "12", Description: "LECHE ENTERA"})
	cat.Upsert(models.ProductRecord{Code: "L2", DepartmentId: "91", Aisle: "13", Description: "LECHE CHOCOLATADA"})

	index := cat.KeywordAisleIndex()
	if index["YOGURT"] != "12" {
		t.Errorf(`index["YOGURT"] = %q, want "12"`, index["YOGURT"])
	}
	if _, ok := index["QUESO"]; ok {
		t.Error("single-sample token must not predict an aisle")
	}
	if _, ok := index["LECHE"]; ok {
		t.Error("50/50 split token must not predict an aisle")
	}
}

func TestPlaceholderDetection(t *testing.T) {
	full := models.ProductRecord{Code: "X", Description: "Algo", DepartmentId: "10", Aisle: "3"}
	if full.IsPlaceholder() {
		t.Error("fully-known record must not be a placeholder")
	}
	for _, rec := range []models.ProductRecord{
		{Code: "X", Description: "Algo", DepartmentId: models.DeptUnknown, Aisle: "3"},
		{Code: "X", Description: models.DescUnknown, DepartmentId: "10", Aisle: "3"},
		{Code: "X", Description: "Algo", DepartmentId: "10", Aisle: models.AisleUnknown},
	} {
		if !rec.IsPlaceholder() {
			t.Errorf("expected placeholder: %+v", rec)
		}
	}
}

func TestAddCustomRecordNormalizes(t *testing.T) {
	cat := models.NewCatalog()

	// Without MySQL/Redis configured the persistence layer is a no-op, so
	// the correction must still land in memory without error.
	rec, err := models.AddCustomRecord(context.Background(), cat, models.ProductRecord{
		Code:          "00451",
		Description:   "Fideos Tirabuzon",
		Aisle:         "sin pasillo",
		SecondaryCode: "7.79E+12",
	})
	if err != nil {
		t.Fatalf("AddCustomRecord: %v", err)
	}

	if rec.Code != "451" {
		t.Errorf("code = %q, want 451", rec.Code)
	}
	if rec.Aisle != models.AisleUnknown {
		t.Errorf("aisle = %q, want %q", rec.Aisle, models.AisleUnknown)
	}
	if rec.SecondaryCode != "7790000000000" {
		t.Errorf("secondary = %q", rec.SecondaryCode)
	}
	if rec.DepartmentId != models.DeptUnknown {
		t.Errorf("dept = %q, want unknown sentinel", rec.DepartmentId)
	}
	if !rec.IsCustom {
		t.Error("corrections must be flagged custom")
	}

	stored, ok := cat.Get("451")
	if !ok || !reflect.DeepEqual(stored, rec) {
		t.Errorf("catalog holds %+v, want %+v", stored, rec)
	}
}

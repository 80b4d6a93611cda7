package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// FetchBaselineCSV retrieves the bootstrap reference table as raw CSV text.
// The source is either an HTTP(S) URL (a published sheet export) or a local
// file path.
func FetchBaselineCSV(ctx context.Context, source string) (string, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return "", err
		}
		client := &http.Client{Timeout: 60 * time.Second}
		resp, err := client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("baseline fetch: HTTP %d from %s", resp.StatusCode, source)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}
		return string(body), nil
	}

	body, err := os.ReadFile(source)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// BaselineRows splits raw baseline CSV into rows. The baseline file is a
// plain comma-separated export; the heuristic parser is only for the noisy
// scan and supplier inputs.
func BaselineRows(csvText string) [][]string {
	clean := strings.TrimPrefix(csvText, "\uFEFF")
	clean = strings.ReplaceAll(clean, "\r\n", "\n")
	clean = strings.ReplaceAll(clean, "\r", "\n")

	var rows [][]string
	for _, line := range strings.Split(clean, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		rows = append(rows, parts)
	}
	return rows
}

// LoadCatalog bootstraps the catalog: baseline rows first, then the custom
// side cache replayed on top so operator edits win. Returns the catalog
// size after loading.
func LoadCatalog(ctx context.Context, cat *Catalog, source string) (int, error) {
	csvText, err := FetchBaselineCSV(ctx, source)
	if err != nil {
		return 0, err
	}
	size := cat.Load(BaselineRows(csvText))

	if restored, err := RestoreCustomRecords(ctx, cat); err == nil && restored > 0 {
		size = cat.Size()
	}
	return size, nil
}

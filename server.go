package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/retailtools/huecos_backend/config"
	"github.com/retailtools/huecos_backend/models"
	"github.com/retailtools/huecos_backend/models/reports"
	"github.com/retailtools/huecos_backend/utils"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"
const defaultCatalogSource = "./data.csv"

// All flows share one catalog instance; there is no ambient singleton in
// the models package.
var (
	catalog  = models.NewCatalog()
	engine   = models.NewScanEngine(catalog)
	importer = models.NewStockImporter(catalog)
)

func catalogSource() string {
	if v := strings.TrimSpace(os.Getenv("CATALOG_URL")); v != "" {
		return v
	}
	return defaultCatalogSource
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP; until DB/Redis are ready the app
	// endpoints return 503.
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type")
	r.Use(cors.New(corsConfig))

	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	api := r.Group("/api")
	api.GET("/datos", datosHandler)
	api.POST("/procesar", procesarHandler)
	api.POST("/reprocesar", reprocesarHandler)
	api.GET("/resumen", resumenHandler)
	api.GET("/reporte", resumenHandler)
	api.GET("/reporte/excel", reporteExcelHandler)
	api.GET("/historial", historialHandler)
	api.DELETE("/historial", clearHistorialHandler)
	api.POST("/importar-stock", importarStockHandler)
	api.POST("/sugerencias/confirmar", confirmarSugerenciaHandler)
	api.POST("/productos", addProductoHandler)
	api.GET("/productos/buscar", buscarProductoHandler)
	api.GET("/pasillos", pasillosHandler)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	size, err := models.LoadCatalog(context.Background(), catalog, catalogSource())
	if err != nil {
		config.LogError(logger, "server.go", "main", "baseline catalog load", catalogSource(), err)
	} else {
		logger.WithFields(logrus.Fields{"records": size}).Info("reference catalog loaded")
	}

	// Recover the enrichment from the last archived supplier report; the
	// custom-product cache only holds records that were saved successfully.
	if result, err := importer.ReplayArchivedReport(context.Background()); err != nil {
		config.LogError(logger, "server.go", "main", "stock report replay", nil, err)
	} else if result != nil {
		logger.WithFields(logrus.Fields{"records": len(result.Products)}).Info("archived stock report replayed")
	}

	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// datosHandler proxies the baseline reference CSV to the front end.
func datosHandler(c *gin.Context) {
	csvText, err := models.FetchBaselineCSV(c.Request.Context(), catalogSource())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": csvText})
}

type procesarRequest struct {
	Texto    string            `json:"texto" binding:"required"`
	Fecha    string            `json:"fecha" binding:"required"`
	IdTienda string            `json:"id_tienda" binding:"required"`
	Metadata map[string]string `json:"metadata"`
}

func procesarHandler(c *gin.Context) {
	var req procesarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := engine.Process(req.Texto, req.Fecha, req.IdTienda, req.Metadata)
	if err != nil {
		if errors.Is(err, models.ErrCatalogNotLoaded) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// The in-memory report stays authoritative when the store save fails.
	var warnings []string
	if err := models.SaveReport(c.Request.Context(), report); err != nil {
		warnings = append(warnings, "historial no guardado: "+err.Error())
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "report": report, "warnings": warnings})
}

// reprocesarHandler re-runs a session's stored raw text so catalog
// corrections made after the original paste show up in the report.
func reprocesarHandler(c *gin.Context) {
	storeId := c.Query("id_tienda")
	date := c.Query("fecha")
	if storeId == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id_tienda y fecha son requeridos"})
		return
	}

	report, err := engine.Reprocess(storeId, date)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var warnings []string
	if err := models.SaveReport(c.Request.Context(), report); err != nil {
		warnings = append(warnings, "historial no guardado: "+err.Error())
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report, "warnings": warnings})
}

func resumenHandler(c *gin.Context) {
	storeId := c.Query("id_tienda")
	date := c.Query("fecha")
	if storeId == "" || date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id_tienda y fecha son requeridos"})
		return
	}

	if report, ok := engine.Report(storeId, date); ok {
		c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
		return
	}

	report, err := models.LoadReport(c.Request.Context(), storeId, date)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "reporte no encontrado"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	engine.SetReport(report)
	c.JSON(http.StatusOK, gin.H{"success": true, "report": report})
}

func reporteExcelHandler(c *gin.Context) {
	storeId := c.Query("id_tienda")
	date := c.Query("fecha")

	report, ok := engine.Report(storeId, date)
	if !ok {
		loaded, err := models.LoadReport(c.Request.Context(), storeId, date)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "reporte no encontrado"})
			return
		}
		report = loaded
	}

	if err := reports.WritePickupSheet(c.Writer, report); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func historialHandler(c *gin.Context) {
	summaries, err := models.ListSummaries(c.Request.Context(), c.Query("id_tienda"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "historial": summaries})
}

func clearHistorialHandler(c *gin.Context) {
	if err := models.ClearHistory(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	engine.ClearLocal()
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type importarStockRequest struct {
	Texto string `json:"texto" binding:"required"`
}

// importarStockHandler accepts either a JSON body with the raw report text
// or a multipart upload with an .xlsx/.csv file.
func importarStockHandler(c *gin.Context) {
	ctx := c.Request.Context()

	var result *models.StockImportResult
	var rawText string

	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer src.Close()

		if strings.EqualFold(filepath.Ext(file.Filename), ".xlsx") {
			result, err = importer.ImportXlsx(ctx, src)
		} else {
			buf := new(strings.Builder)
			if _, cerr := io.Copy(buf, src); cerr != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": cerr.Error()})
				return
			}
			rawText = buf.String()
			result, err = importer.Import(ctx, rawText)
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		var req importarStockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		rawText = req.Texto
		var ierr error
		result, ierr = importer.Import(ctx, rawText)
		if ierr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": ierr.Error()})
			return
		}
	}

	warnings := models.SaveCatalogRecords(ctx, result.Products)
	if rawText != "" {
		if err := models.SaveStockReportRaw(ctx, rawText); err != nil {
			warnings = append(warnings, "reporte crudo no archivado: "+err.Error())
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"productos":   result.Products,
		"suggestions": result.Suggestions,
		"warnings":    warnings,
	})
}

func confirmarSugerenciaHandler(c *gin.Context) {
	var cluster models.SuggestionCluster
	if err := c.ShouldBindJSON(&cluster); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	updated := importer.CommitCluster(cluster)
	warnings := models.SaveCatalogRecords(c.Request.Context(), updated)
	c.JSON(http.StatusOK, gin.H{"success": true, "productos": updated, "warnings": warnings})
}

func addProductoHandler(c *gin.Context) {
	var rec models.ProductRecord
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(rec.Code) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sku es requerido"})
		return
	}

	saved, err := models.AddCustomRecord(c.Request.Context(), catalog, rec)
	var warnings []string
	if err != nil {
		warnings = append(warnings, "producto no persistido: "+err.Error())
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "producto": saved, "warnings": warnings})
}

func buscarProductoHandler(c *gin.Context) {
	query := c.Query("codigo")
	if strings.TrimSpace(query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "codigo es requerido"})
		return
	}
	rec, ok := catalog.FindBySecondaryCode(query)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "producto no encontrado"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "producto": rec})
}

func pasillosHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "pasillos": catalog.ListKnownAisles()})
}

// customErrorLogger logs only requests that collected gin errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

package handlers

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"expense-api/middleware"
	"expense-api/models"
	"expense-api/services"

	"github.com/gin-gonic/gin"
)

// maxImportSize bounds uploaded files to 10 MiB.
const maxImportSize = 10 << 20

type ExchangeHandler struct {
	Exchange *services.ExchangeService
	WS       *WSHandler
}

// Export streams the caller's complete expense history as a downloadable
// JSON or CSV file. On failure no partial body is written.
func (h *ExchangeHandler) Export(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	format := services.Format(c.DefaultQuery("format", "json"))
	if format != services.FormatJSON && format != services.FormatCSV {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json or csv"})
		return
	}

	filename, body, count, err := h.Exchange.Export(c.Request.Context(), userID, format)
	if err != nil {
		log.Printf("❌ Export failed for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not export expenses"})
		return
	}

	contentType := "application/json"
	if format == services.FormatCSV {
		contentType = "text/csv"
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("X-Export-Count", strconv.Itoa(count))
	c.Data(http.StatusOK, contentType, body)
}

// Preview parses and validates an uploaded file without writing anything.
// The client shows the counts to the user and posts the confirmed records
// back to Import.
func (h *ExchangeHandler) Preview(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	format := services.Format(c.DefaultQuery("format", "json"))
	if format != services.FormatJSON && format != services.FormatCSV {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json or csv"})
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImportSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read file"})
		return
	}

	preview, err := services.Preview(data, format)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if preview.Valid == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File contains no importable rows", "dropped": preview.Dropped})
		return
	}

	c.JSON(http.StatusOK, preview)
}

// Import reconciles confirmed candidate records against the caller's stored
// expenses and reports inserted/skipped/failed counts.
func (h *ExchangeHandler) Import(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.Exchange.Import(c.Request.Context(), userID, req.Records)
	if err != nil {
		log.Printf("❌ Import failed for user %s: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An error occurred during import"})
		return
	}

	if result.Inserted > 0 {
		h.WS.BroadcastUpdate(userID, "expenses_imported")
	}

	log.Printf("📥 Import for user %s: %d inserted, %d skipped, %d failed",
		userID, result.Inserted, result.Skipped, result.Failed)

	c.JSON(http.StatusOK, result)
}

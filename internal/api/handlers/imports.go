package handlers

import (
	"encoding/csv"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/api/middleware"
	"github.com/merchanthub/omsapi/internal/platforms"
	"github.com/merchanthub/omsapi/internal/service"
)

// HandleImportCSV handles POST /v1/connections/:id/import. The upload is a
// multipart form with a `file` part and one `map.<canonical field>` form value
// per mapped column, e.g. map.orderId=Order Number.
func HandleImportCSV(connections *service.ConnectionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := middleware.GetUserFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid connection ID"})
			return
		}

		fileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing file upload"})
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file upload"})
			return
		}
		defer file.Close()

		reader := csv.NewReader(file)
		reader.FieldsPerRecord = -1 // ragged rows are handled per record
		records, err := reader.ReadAll()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid csv: " + err.Error()})
			return
		}
		if len(records) < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "csv has no data rows"})
			return
		}

		mapping := parseColumnMapping(c)
		if len(mapping) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing column mapping"})
			return
		}

		req := &service.CSVImportRequest{
			Header:  records[0],
			Rows:    records[1:],
			Mapping: mapping,
		}

		result, err := connections.ImportCSV(c.Request.Context(), user.ID, id, req)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func parseColumnMapping(c *gin.Context) platforms.ColumnMapping {
	mapping := platforms.ColumnMapping{}
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		return mapping
	}
	for key, values := range c.Request.MultipartForm.Value {
		if !strings.HasPrefix(key, "map.") || len(values) == 0 {
			continue
		}
		field := strings.TrimPrefix(key, "map.")
		if field != "" && values[0] != "" {
			mapping[field] = values[0]
		}
	}
	return mapping
}

package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pawwatch/api/internal/geo"
	"github.com/pawwatch/api/internal/model"
	"github.com/pawwatch/api/internal/store"
)

type ExportHandler struct {
	store *store.ReportStore
}

func NewExportHandler(s *store.ReportStore) *ExportHandler {
	return &ExportHandler{store: s}
}

func (h *ExportHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	filter, reports, ok := projectQuery(c, h.store)
	if !ok {
		return
	}

	switch format {
	case "json":
		h.exportJSON(c, filter, reports)
	case "csv":
		h.exportCSV(c, filter, reports)
	case "md", "markdown":
		h.exportMarkdown(c, filter, reports)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid format. Use json, csv, or md"})
	}
}

func (h *ExportHandler) exportJSON(c *gin.Context, filter model.Filter, reports []model.Report) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=reports-%s.json", filter))
	c.JSON(http.StatusOK, gin.H{
		"filter":  filter,
		"reports": reports,
	})
}

func (h *ExportHandler) exportCSV(c *gin.Context, filter model.Filter, reports []model.Report) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	writer.Write([]string{"ID", "Name", "Status", "Location", "Lat", "Lng", "Description", "Reported", "Reporter"})

	for _, r := range reports {
		writer.Write([]string{
			strconv.FormatInt(r.ID, 10),
			r.Name,
			string(r.Status),
			r.Location,
			strconv.FormatFloat(r.Lat, 'f', 6, 64),
			strconv.FormatFloat(r.Lng, 'f', 6, 64),
			r.Description,
			r.ReportedDate,
			r.Reporter,
		})
	}

	writer.Flush()

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=reports-%s.csv", filter))
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}

func (h *ExportHandler) exportMarkdown(c *gin.Context, filter model.Filter, reports []model.Report) {
	var buf bytes.Buffer

	title := "All Dog Reports"
	if filter != model.FilterAll {
		title = fmt.Sprintf("Dog Reports: %s", model.Status(filter).Label())
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))
	buf.WriteString(fmt.Sprintf("**Reports:** %d\n\n", len(reports)))

	for _, r := range reports {
		buf.WriteString(fmt.Sprintf("### %d. %s [%s]\n\n", r.ID, r.Name, r.Status.Label()))
		buf.WriteString(fmt.Sprintf("**Location:** %s (%s)\n\n", r.Location, geo.Point{Lat: r.Lat, Lng: r.Lng}.Label()))
		buf.WriteString(fmt.Sprintf("**Description:** %s\n\n", r.Description))
		buf.WriteString(fmt.Sprintf("**Reported:** %s by %s\n\n", r.ReportedDate, r.Reporter))
		buf.WriteString("---\n\n")
	}

	c.Header("Content-Type", "text/markdown")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=reports-%s.md", filter))
	c.Data(http.StatusOK, "text/markdown", buf.Bytes())
}

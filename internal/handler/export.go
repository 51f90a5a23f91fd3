package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/templui/goalpulse/internal/ctxkeys"
	"github.com/templui/goalpulse/internal/service"
)

type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// Export returns a download link when object storage is configured, the JSON document itself otherwise.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	result, err := h.exportService.ExportGoals(r.Context(), ctxkeys.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if result.URL != "" {
		writeJSON(w, http.StatusOK, map[string]string{
			"filename": result.Filename,
			"url":      result.URL,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Data); err != nil {
		slog.Warn("failed to write export", "error", err)
	}
}

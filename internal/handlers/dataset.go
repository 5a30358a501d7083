package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/kernelpilot-backend/internal/dataset"
	"github.com/yungbote/kernelpilot-backend/internal/platform/logger"
)

type DatasetHandler struct {
	log     *logger.Logger
	service dataset.Service
}

func NewDatasetHandler(log *logger.Logger, svc dataset.Service) *DatasetHandler {
	return &DatasetHandler{
		log:     log.With("handler", "DatasetHandler"),
		service: svc,
	}
}

// GET /dataset/download/:searchTerm
// Find the hottest dataset for the search term, download it, and return
// its summary record.
func (h *DatasetHandler) Download(c *gin.Context) {
	term := c.Param("searchTerm")
	record, err := h.service.Acquire(c.Request.Context(), term)
	if err != nil {
		h.log.Error("Dataset acquisition failed", "term", term, "error", err)
		RespondError(c, "Error downloading dataset.", err)
		return
	}
	c.JSON(http.StatusOK, record)
}

package handlers

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/kernelpilot-backend/internal/data/repos"
	"github.com/yungbote/kernelpilot-backend/internal/domain"
	"github.com/yungbote/kernelpilot-backend/internal/notebook"
	"github.com/yungbote/kernelpilot-backend/internal/platform/logger"
)

// NotebookUpdateRequest is the original request body: for create the
// content is a full notebook document, for update a cell fragment or an
// ordered list of them.
type NotebookUpdateRequest struct {
	NotebookContent json.RawMessage `json:"notebook_content" binding:"required"`
}

type NotebookHandler struct {
	log       *logger.Logger
	service   notebook.Service
	publisher notebook.Publisher
	runs      repos.RunRecordRepo
}

func NewNotebookHandler(log *logger.Logger, svc notebook.Service, pub notebook.Publisher, runs repos.RunRecordRepo) *NotebookHandler {
	return &NotebookHandler{
		log:       log.With("handler", "NotebookHandler"),
		service:   svc,
		publisher: pub,
		runs:      runs,
	}
}

// POST /notebook/create/:name
// Create a new notebook from full document content, then execute it as the
// validation gate. Creating over an existing notebook fails; it never
// silently becomes an append.
func (h *NotebookHandler) Create(c *gin.Context) {
	name := c.Param("name")
	var req NotebookUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, "Invalid request body.", err)
		return
	}
	var doc domain.Document
	if err := json.Unmarshal(req.NotebookContent, &doc); err != nil {
		RespondError(c, "Notebook content is not a well-formed document.", err)
		return
	}

	result, err := h.service.CreateAndValidate(c.Request.Context(), name, &doc)
	if err != nil {
		h.log.Error("Create failed", "notebook", name, "error", err)
		RespondError(c, "Error creating or testing notebook.", err)
		return
	}
	RespondOK(c, result.Value)
}

// POST /notebook/update/:name
// Append cells to an existing notebook, then execute it. The body carries
// either a single cell object or an ordered list of cells.
func (h *NotebookHandler) Update(c *gin.Context) {
	name := c.Param("name")
	var req NotebookUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, "Invalid request body.", err)
		return
	}
	cells, err := decodeCells(req.NotebookContent)
	if err != nil {
		RespondError(c, "Notebook content is not a cell or cell list.", err)
		return
	}

	result, err := h.service.AppendAndValidate(c.Request.Context(), name, cells)
	if err != nil {
		h.log.Error("Update failed", "notebook", name, "error", err)
		RespondError(c, "Error updating or testing notebook.", err)
		return
	}
	RespondOK(c, result.Value)
}

// POST /notebook/publish/:name
// Push the validated notebook to the remote platform and wait for remote
// completion. Local state is never mutated.
func (h *NotebookHandler) Publish(c *gin.Context) {
	name := c.Param("name")
	if err := h.publisher.Publish(c.Request.Context(), name); err != nil {
		h.log.Error("Publish failed", "notebook", name, "error", err)
		RespondError(c, "Error publishing notebook.", err)
		return
	}
	RespondOK(c, "")
}

// GET /notebook/runs/:name
func (h *NotebookHandler) Runs(c *gin.Context) {
	name := c.Param("name")
	records, err := h.runs.ListByNotebook(c.Request.Context(), name, 50)
	if err != nil {
		RespondError(c, "Error listing notebook runs.", err)
		return
	}
	RespondOK(c, records)
}

func decodeCells(raw json.RawMessage) ([]domain.Cell, error) {
	var cells []domain.Cell
	if err := json.Unmarshal(raw, &cells); err == nil {
		if len(cells) == 0 {
			return nil, fmt.Errorf("notebook content carries no cells")
		}
		return cells, nil
	}
	var cell map[string]json.RawMessage
	if err := json.Unmarshal(raw, &cell); err != nil {
		return nil, err
	}
	return []domain.Cell{domain.Cell(raw)}, nil
}

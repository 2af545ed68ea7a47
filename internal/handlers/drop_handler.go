package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ledropshop/wa-drops-backend/internal/database/repository"
	"github.com/ledropshop/wa-drops-backend/internal/models"
	"github.com/ledropshop/wa-drops-backend/internal/services"
	"github.com/ledropshop/wa-drops-backend/internal/services/excel"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type DropHandler struct {
	dropService        *services.DropService
	eligibilityService *services.EligibilityService
	dispatchService    *services.DispatchService
	excelService       *excel.Service
	rabbitMQService    *services.RabbitMQService
}

func NewDropHandler(db *gorm.DB, dispatchService *services.DispatchService, rabbitMQService *services.RabbitMQService, clock services.Clock) *DropHandler {
	dropRepo := repository.NewDropRepository(db)
	historyRepo := repository.NewDropHistoryRepository(db)
	articleRepo := repository.NewArticleRepository(db)
	groupRepo := repository.NewWhatsAppGroupRepository(db)

	return &DropHandler{
		dropService:        services.NewDropService(dropRepo, articleRepo, groupRepo, historyRepo, clock),
		eligibilityService: services.NewEligibilityService(dropRepo, historyRepo, clock),
		dispatchService:    dispatchService,
		excelService:       excel.NewExcelService(dropRepo, historyRepo),
		rabbitMQService:    rabbitMQService,
	}
}

// CreateDrop godoc
// @Summary Create a new drop
// @Description Create a drop with its target articles and WhatsApp groups
// @Tags drops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateDropRequest true "Create drop request"
// @Success 201 {object} models.DropResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/drops [post]
func (h *DropHandler) CreateDrop(c *gin.Context) {
	var req models.CreateDropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	response, err := h.dropService.CreateDrop(&req)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create drop", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetDrops godoc
// @Summary List drops
// @Description Get drops ordered by creation time, newest first
// @Tags drops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/drops [get]
func (h *DropHandler) GetDrops(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	drops, pagination, err := h.dropService.ListDrops(page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get drops", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": drops, "pagination": pagination})
}

// GetDropByID godoc
// @Summary Get drop by ID
// @Description Get a specific drop with its articles and groups
// @Tags drops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Drop ID"
// @Success 200 {object} models.DropResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/drops/{id} [get]
func (h *DropHandler) GetDropByID(c *gin.Context) {
	dropID := c.Param("id")

	drop, err := h.dropService.GetDrop(dropID)
	if err != nil {
		if errors.Is(err, services.ErrDropNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Drop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get drop", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, drop)
}

// UpdateDrop godoc
// @Summary Update drop
// @Description Update name, schedule or operator-settable status. Sent drops are immutable.
// @Tags drops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Drop ID"
// @Param request body models.UpdateDropRequest true "Update drop request"
// @Success 200 {object} models.DropResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/drops/{id} [put]
func (h *DropHandler) UpdateDrop(c *gin.Context) {
	dropID := c.Param("id")

	var req models.UpdateDropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	response, err := h.dropService.UpdateDrop(dropID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDropNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Drop not found"})
		case errors.Is(err, services.ErrDropImmutable):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, services.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update drop", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, response)
}

// DeleteDrop godoc
// @Summary Delete drop
// @Description Soft-archive a drop. Only DRAFT and SCHEDULED drops may be deleted.
// @Tags drops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Drop ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/drops/{id} [delete]
func (h *DropHandler) DeleteDrop(c *gin.Context) {
	dropID := c.Param("id")

	err := h.dropService.DeleteDrop(dropID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDropNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Drop not found"})
		case errors.Is(err, services.ErrDropImmutable), errors.Is(err, services.ErrDropLocked):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete drop", "details": err.Error()})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// ValidateDrop godoc
// @Summary Validate same-day eligibility
// @Description Compute the per-group allowed/blocked partition for today. Advisory only: the verdict never blocks a send by itself.
// @Tags drops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Drop ID"
// @Success 200 {object} models.EligibilityVerdict
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/drops/{id}/validate [get]
func (h *DropHandler) ValidateDrop(c *gin.Context) {
	dropID := c.Param("id")

	verdict, err := h.eligibilityService.Evaluate(dropID)
	if err != nil {
		if errors.Is(err, services.ErrDropNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Drop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to validate drop", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, verdict)
}

// SendDrop godoc
// @Summary Dispatch a drop
// @Description Fan out the drop to its groups. Partial failure is reported in the 200 envelope, not as an HTTP error. With async=true the dispatch is queued and runs in the background.
// @Tags drops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Drop ID"
// @Param request body models.SendDropRequest false "Send options"
// @Success 200 {object} models.SendResult
// @Success 202 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/drops/{id}/send [post]
func (h *DropHandler) SendDrop(c *gin.Context) {
	dropID := c.Param("id")

	// The historical client sends an empty body
	var req models.SendDropRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	if req.Async {
		if h.rabbitMQService == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Async dispatch is not available"})
			return
		}
		message := map[string]interface{}{
			"type":    "dispatch_drop",
			"drop_id": dropID,
			"force":   req.Force,
		}
		if err := h.rabbitMQService.PublishMessage(c.Request.Context(), services.DispatchQueueName, message); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue dispatch"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message": "Drop dispatch queued"})
		return
	}

	result, err := h.dispatchService.Send(c.Request.Context(), dropID, req.Force)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDropNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Drop not found"})
		case errors.Is(err, services.ErrDropAlreadySent), errors.Is(err, services.ErrDropLocked):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send drop", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetDropProgress godoc
// @Summary Dispatch progress snapshot
// @Description Polling view of a dispatch derived from the ledger over the trailing 24 hours
// @Tags drops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Drop ID"
// @Success 200 {object} models.DropProgressResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/drops/{id}/progress [get]
func (h *DropHandler) GetDropProgress(c *gin.Context) {
	dropID := c.Param("id")

	progress, err := h.dropService.GetProgress(dropID)
	if err != nil {
		if errors.Is(err, services.ErrDropNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Drop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get progress", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, progress)
}

// CancelDrop godoc
// @Summary Cancel an in-flight dispatch
// @Description Force a SENDING drop to FAILED. Pairs already handed to the gateway are not recalled.
// @Tags drops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Drop ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/drops/{id}/cancel [post]
func (h *DropHandler) CancelDrop(c *gin.Context) {
	dropID := c.Param("id")

	err := h.dispatchService.Cancel(dropID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDropNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Drop not found"})
		case errors.Is(err, services.ErrDropNotSending):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel drop", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Drop dispatch cancelled"})
}

// GetDropHistory godoc
// @Summary Drop send ledger
// @Description Paginated view of the append-only send history of a drop
// @Tags drops
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Drop ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/drops/{id}/history [get]
func (h *DropHandler) GetDropHistory(c *gin.Context) {
	dropID := c.Param("id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	rows, pagination, err := h.dropService.GetHistory(dropID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrDropNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Drop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get drop history", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows, "pagination": pagination})
}

// ExportDropHistory godoc
// @Summary Export drop send report
// @Description Download the drop's send ledger as an xlsx workbook
// @Tags drops
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path string true "Drop ID"
// @Success 200 {file} binary
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/drops/{id}/history/export [get]
func (h *DropHandler) ExportDropHistory(c *gin.Context) {
	dropID := c.Param("id")

	export, err := h.excelService.ExportDropHistory(dropID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Drop not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export history", "details": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+export.Filename)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", export.Content.Bytes())
}

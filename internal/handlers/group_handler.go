package handlers

import (
	"errors"
	"net/http"

	"github.com/ledropshop/wa-drops-backend/internal/database/repository"
	"github.com/ledropshop/wa-drops-backend/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GroupHandler exposes the known WhatsApp groups and refreshes them from
// the gateway session
type GroupHandler struct {
	groupRepo *repository.WhatsAppGroupRepository
	gateway   *services.WhatsAppService
}

func NewGroupHandler(db *gorm.DB, gateway *services.WhatsAppService) *GroupHandler {
	return &GroupHandler{
		groupRepo: repository.NewWhatsAppGroupRepository(db),
		gateway:   gateway,
	}
}

// GetGroups godoc
// @Summary List WhatsApp groups
// @Description Get all known target groups
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.WhatsAppGroup
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/groups [get]
func (h *GroupHandler) GetGroups(c *gin.Context) {
	groups, err := h.groupRepo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get groups", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, groups)
}

// GetGroupByID godoc
// @Summary Get WhatsApp group by ID
// @Description Get a specific target group
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Group ID"
// @Success 200 {object} models.WhatsAppGroup
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/groups/{id} [get]
func (h *GroupHandler) GetGroupByID(c *gin.Context) {
	group, err := h.groupRepo.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get group", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, group)
}

// SyncGroups godoc
// @Summary Sync groups from the gateway
// @Description Pull the groups visible to the gateway session and upsert them by chat id
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /api/v1/groups/sync [post]
func (h *GroupHandler) SyncGroups(c *gin.Context) {
	groups, err := h.gateway.FetchGroups(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch groups from gateway", "details": err.Error()})
		return
	}

	synced := 0
	for i := range groups {
		if err := h.groupRepo.UpsertByChatID(&groups[i]); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store group", "details": err.Error()})
			return
		}
		synced++
	}

	c.JSON(http.StatusOK, gin.H{"message": "Groups synchronized", "count": synced})
}

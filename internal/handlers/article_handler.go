package handlers

import (
	"errors"
	"net/http"

	"github.com/ledropshop/wa-drops-backend/internal/database/repository"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ArticleHandler exposes the catalog read model. Catalog management lives
// in the admin service, only list/read is served here.
type ArticleHandler struct {
	articleRepo *repository.ArticleRepository
}

func NewArticleHandler(db *gorm.DB) *ArticleHandler {
	return &ArticleHandler{articleRepo: repository.NewArticleRepository(db)}
}

// GetArticles godoc
// @Summary List articles
// @Description Get all catalog articles
// @Tags articles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Article
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/articles [get]
func (h *ArticleHandler) GetArticles(c *gin.Context) {
	articles, err := h.articleRepo.GetAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get articles", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, articles)
}

// GetArticleByID godoc
// @Summary Get article by ID
// @Description Get a specific catalog article
// @Tags articles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Article ID"
// @Success 200 {object} models.Article
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/articles/{id} [get]
func (h *ArticleHandler) GetArticleByID(c *gin.Context) {
	article, err := h.articleRepo.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Article not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get article", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, article)
}

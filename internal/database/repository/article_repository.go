package repository

import (
	"github.com/ledropshop/wa-drops-backend/internal/models"

	"gorm.io/gorm"
)

type ArticleRepository struct {
	db *gorm.DB
}

func NewArticleRepository(db *gorm.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// GetByID retrieves an article by ID
func (r *ArticleRepository) GetByID(id string) (*models.Article, error) {
	var article models.Article
	err := r.db.First(&article, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// GetByIDs retrieves articles matching the given IDs
func (r *ArticleRepository) GetByIDs(ids []string) ([]models.Article, error) {
	var articles []models.Article
	err := r.db.Where("id IN ?", ids).Find(&articles).Error
	return articles, err
}

// GetAll retrieves all articles
func (r *ArticleRepository) GetAll() ([]models.Article, error) {
	var articles []models.Article
	err := r.db.Order("name ASC").Find(&articles).Error
	return articles, err
}

package handlers

import (
	"database/sql"
	"log"
	"net/http"

	"expense-api/models"
	"expense-api/utils"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	DB *sql.DB
}

// ListCategories returns all categories in display order.
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	rows, err := h.DB.Query(`
		SELECT id, name, color, COALESCE(icon, ''), priority, created_at, updated_at
		FROM expense_categories
		ORDER BY priority ASC, name ASC
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Color, &cat.Icon, &cat.Priority, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			log.Printf("⚠️ Skipping unreadable category row: %v", err)
			continue
		}
		categories = append(categories, cat)
	}

	c.JSON(http.StatusOK, categories)
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req models.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	color := req.Color
	if color == "" {
		color = "#6B7280"
	}

	// New categories go to the end of the list
	var id string
	err := h.DB.QueryRow(`
		INSERT INTO expense_categories (name, color, icon, priority)
		VALUES ($1, $2, NULLIF($3, ''), COALESCE((SELECT MAX(priority) + 1 FROM expense_categories), 0))
		RETURNING id
	`, req.Name, color, req.Icon).Scan(&id)

	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Failed to create category (name may already exist)"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "Category created"})
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	categoryID := c.Param("id")

	var req models.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Exec(`
		UPDATE expense_categories
		SET name = $1, color = $2, icon = NULLIF($3, ''), updated_at = NOW()
		WHERE id = $4
	`, req.Name, req.Color, req.Icon, categoryID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category updated"})
}

// DeleteCategory refuses to delete a category still referenced by expenses,
// so imports never end up with orphaned references.
func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	categoryID := c.Param("id")

	var inUse bool
	err := h.DB.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM expense_transactions WHERE category_id = $1)
	`, categoryID).Scan(&inUse)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if inUse {
		c.JSON(http.StatusConflict, gin.H{"error": "Category is in use by existing expenses"})
		return
	}

	result, err := h.DB.Exec(`DELETE FROM expense_categories WHERE id = $1`, categoryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

// ReorderCategories rewrites priorities from the submitted id order.
func (h *CategoryHandler) ReorderCategories(c *gin.Context) {
	var req models.ReorderCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := utils.WithTransaction(h.DB, func(tx *sql.Tx) error {
		for i, id := range req.IDs {
			if _, err := tx.Exec(`
				UPDATE expense_categories SET priority = $1, updated_at = NOW() WHERE id = $2
			`, i, id); err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reorder categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Categories reordered"})
}

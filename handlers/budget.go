package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"sort"

	"expense-api/middleware"
	"expense-api/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type BudgetHandler struct {
	DB *sql.DB
}

func (h *BudgetHandler) ListBudgets(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT b.id, b.user_id, COALESCE(b.category_id::text, ''), COALESCE(c.name, ''),
		       b.amount, b.period, b.start_date::text, b.end_date::text, b.created_at, b.updated_at
		FROM expense_budgets b
		LEFT JOIN expense_categories c ON b.category_id = c.id
		WHERE b.user_id = $1
		ORDER BY b.start_date DESC
	`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch budgets"})
		return
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.CategoryID, &b.CategoryName,
			&b.Amount, &b.Period, &b.StartDate, &b.EndDate, &b.CreatedAt, &b.UpdatedAt); err != nil {
			log.Printf("⚠️ Skipping unreadable budget row: %v", err)
			continue
		}
		budgets = append(budgets, b)
	}

	c.JSON(http.StatusOK, budgets)
}

func (h *BudgetHandler) CreateBudget(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var id string
	err := h.DB.QueryRow(`
		INSERT INTO expense_budgets (user_id, category_id, amount, period, start_date, end_date)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6)
		RETURNING id
	`, userID, req.CategoryID, req.Amount, req.Period, req.StartDate, req.EndDate).Scan(&id)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create budget"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "Budget created"})
}

func (h *BudgetHandler) UpdateBudget(c *gin.Context) {
	userID := middleware.GetUserID(c)
	budgetID := c.Param("id")

	var req models.CreateBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Exec(`
		UPDATE expense_budgets
		SET category_id = NULLIF($1, '')::uuid, amount = $2, period = $3,
		    start_date = $4, end_date = $5, updated_at = NOW()
		WHERE id = $6 AND user_id = $7
	`, req.CategoryID, req.Amount, req.Period, req.StartDate, req.EndDate, budgetID, userID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update budget"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Budget not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Budget updated"})
}

func (h *BudgetHandler) DeleteBudget(c *gin.Context) {
	userID := middleware.GetUserID(c)
	budgetID := c.Param("id")

	result, err := h.DB.Exec(`
		DELETE FROM expense_budgets WHERE id = $1 AND user_id = $2
	`, budgetID, userID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete budget"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Budget not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Budget deleted"})
}

// GetBudgetAlerts computes budget-vs-actual for every budget active today.
// Amount arithmetic runs on decimals; float drift must not flip a budget
// across the 80/100% thresholds.
func (h *BudgetHandler) GetBudgetAlerts(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT b.id, COALESCE(b.category_id::text, ''),
		       COALESCE(c.name, 'All Categories'), COALESCE(c.color, '#6B7280'),
		       b.amount::text, b.period, b.start_date::text, b.end_date::text
		FROM expense_budgets b
		LEFT JOIN expense_categories c ON b.category_id = c.id
		WHERE b.user_id = $1 AND CURRENT_DATE BETWEEN b.start_date AND b.end_date
	`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch budgets"})
		return
	}
	defer rows.Close()

	type activeBudget struct {
		alert      models.BudgetAlert
		categoryID string
		amount     decimal.Decimal
	}

	active := []activeBudget{}
	for rows.Next() {
		var ab activeBudget
		var amountStr string
		if err := rows.Scan(&ab.alert.ID, &ab.categoryID, &ab.alert.CategoryName, &ab.alert.CategoryColor,
			&amountStr, &ab.alert.Period, &ab.alert.StartDate, &ab.alert.EndDate); err != nil {
			log.Printf("⚠️ Skipping unreadable budget row: %v", err)
			continue
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			continue
		}
		ab.amount = amount
		active = append(active, ab)
	}
	rows.Close()

	alerts := []models.BudgetAlert{}
	for _, ab := range active {
		spent, err := h.spending(userID, ab.categoryID, ab.alert.StartDate, ab.alert.EndDate)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute spending"})
			return
		}

		percentage := decimal.Zero
		if ab.amount.IsPositive() {
			percentage = spent.Div(ab.amount).Mul(decimal.NewFromInt(100))
		}

		status := "good"
		if percentage.GreaterThanOrEqual(decimal.NewFromInt(100)) {
			status = "exceeded"
		} else if percentage.GreaterThanOrEqual(decimal.NewFromInt(80)) {
			status = "warning"
		}

		alert := ab.alert
		alert.BudgetAmount, _ = ab.amount.Float64()
		alert.CurrentSpending, _ = spent.Float64()
		alert.Percentage, _ = percentage.Round(2).Float64()
		alert.Status = status
		alerts = append(alerts, alert)
	}

	// Exceeded first, then warning, then good
	rank := map[string]int{"exceeded": 0, "warning": 1, "good": 2}
	sort.SliceStable(alerts, func(i, j int) bool {
		return rank[alerts[i].Status] < rank[alerts[j].Status]
	})

	c.JSON(http.StatusOK, alerts)
}

func (h *BudgetHandler) spending(userID, categoryID, startDate, endDate string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)::text
		FROM expense_transactions
		WHERE user_id = $1 AND transaction_date BETWEEN $2 AND $3`
	args := []interface{}{userID, startDate, endDate}

	if categoryID != "" {
		query += " AND category_id = $4"
		args = append(args, categoryID)
	}

	var sumStr string
	if err := h.DB.QueryRow(query, args...).Scan(&sumStr); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(sumStr)
}

package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"expense-api/middleware"
	"expense-api/models"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

type ExpenseHandler struct {
	DB *sql.DB
	WS *WSHandler
}

// logAction records an audit row; failures are deliberately ignored so the
// main write never rolls back over the log.
func (h *ExpenseHandler) logAction(transactionID, action, userID string, oldData, newData interface{}) {
	var oldJSON, newJSON []byte
	if oldData != nil {
		oldJSON, _ = json.Marshal(oldData)
	}
	if newData != nil {
		newJSON, _ = json.Marshal(newData)
	}
	_, _ = h.DB.Exec(`
		INSERT INTO expense_transaction_logs (transaction_id, action, old_data, new_data, performed_by)
		VALUES ($1, $2, $3, $4, $5)
	`, transactionID, action, nullableJSON(oldJSON), nullableJSON(newJSON), userID)
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}

// ListExpenses returns the caller's expenses, newest first. Optional filters:
// from, to (dates), category_id, tag, q (description search).
func (h *ExpenseHandler) ListExpenses(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	query := `
		SELECT t.id, t.user_id, COALESCE(t.category_id::text, ''), COALESCE(c.name, ''),
		       t.amount, COALESCE(t.description, ''), t.transaction_date::text,
		       t.tags, COALESCE(t.paid_by, ''), COALESCE(t.receipt_url, ''),
		       t.created_at, t.updated_at
		FROM expense_transactions t
		LEFT JOIN expense_categories c ON t.category_id = c.id
		WHERE t.user_id = $1`
	args := []interface{}{userID}

	addFilter := func(clause, value string) {
		args = append(args, value)
		query += " AND " + strings.Replace(clause, "?", "$"+strconv.Itoa(len(args)), 1)
	}

	if from := c.Query("from"); from != "" {
		addFilter("t.transaction_date >= ?", from)
	}
	if to := c.Query("to"); to != "" {
		addFilter("t.transaction_date <= ?", to)
	}
	if categoryID := c.Query("category_id"); categoryID != "" {
		addFilter("t.category_id = ?", categoryID)
	}
	if tag := c.Query("tag"); tag != "" {
		addFilter("? = ANY(t.tags)", tag)
	}
	if q := c.Query("q"); q != "" {
		addFilter("t.description ILIKE '%' || ? || '%'", q)
	}

	query += " ORDER BY t.transaction_date DESC, t.created_at DESC"

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expenses"})
		return
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		var tags pq.StringArray
		if err := rows.Scan(&e.ID, &e.UserID, &e.CategoryID, &e.CategoryName,
			&e.Amount, &e.Description, &e.TransactionDate,
			&tags, &e.PaidBy, &e.ReceiptURL, &e.CreatedAt, &e.UpdatedAt); err != nil {
			log.Printf("⚠️ Skipping unreadable expense row: %v", err)
			continue
		}
		e.Tags = tags
		expenses = append(expenses, e)
	}

	c.JSON(http.StatusOK, expenses)
}

func (h *ExpenseHandler) CreateExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var id string
	err := h.DB.QueryRow(`
		INSERT INTO expense_transactions (user_id, category_id, amount, description, transaction_date, tags, paid_by, receipt_url)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, NULLIF($7, ''), NULLIF($8, ''))
		RETURNING id
	`, userID, req.CategoryID, req.Amount, req.Description, req.TransactionDate,
		tagsParam(req.Tags), req.PaidBy, req.ReceiptURL).Scan(&id)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create expense"})
		return
	}

	h.logAction(id, "create", userID, nil, req)
	h.WS.BroadcastUpdate(userID, "expense_created")

	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "Expense created"})
}

func (h *ExpenseHandler) UpdateExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)
	expenseID := c.Param("id")

	var req models.UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Snapshot for the audit trail
	var old models.Expense
	var oldTags pq.StringArray
	err := h.DB.QueryRow(`
		SELECT id, COALESCE(category_id::text, ''), amount, COALESCE(description, ''),
		       transaction_date::text, tags, COALESCE(paid_by, '')
		FROM expense_transactions
		WHERE id = $1 AND user_id = $2
	`, expenseID, userID).Scan(&old.ID, &old.CategoryID, &old.Amount, &old.Description,
		&old.TransactionDate, &oldTags, &old.PaidBy)

	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	old.Tags = oldTags

	_, err = h.DB.Exec(`
		UPDATE expense_transactions
		SET category_id = $1, amount = $2, description = NULLIF($3, ''),
		    transaction_date = $4, tags = $5, paid_by = NULLIF($6, ''),
		    receipt_url = NULLIF($7, ''), updated_at = NOW()
		WHERE id = $8 AND user_id = $9
	`, req.CategoryID, req.Amount, req.Description, req.TransactionDate,
		tagsParam(req.Tags), req.PaidBy, req.ReceiptURL, expenseID, userID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update expense"})
		return
	}

	h.logAction(expenseID, "update", userID, old, req)
	h.WS.BroadcastUpdate(userID, "expense_updated")

	c.JSON(http.StatusOK, gin.H{"message": "Expense updated"})
}

func (h *ExpenseHandler) DeleteExpense(c *gin.Context) {
	userID := middleware.GetUserID(c)
	expenseID := c.Param("id")

	result, err := h.DB.Exec(`
		DELETE FROM expense_transactions WHERE id = $1 AND user_id = $2
	`, expenseID, userID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete expense"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Expense not found"})
		return
	}

	h.logAction(expenseID, "delete", userID, nil, nil)
	h.WS.BroadcastUpdate(userID, "expense_deleted")

	c.JSON(http.StatusOK, gin.H{"message": "Expense deleted"})
}

func tagsParam(tags []string) interface{} {
	if len(tags) == 0 {
		return nil
	}
	return pq.Array(tags)
}

package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"time"

	"expense-api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AnalyticsHandler struct {
	DB *sql.DB
}

type categoryTotal struct {
	Category string  `json:"category"`
	Color    string  `json:"color"`
	Amount   float64 `json:"amount"`
}

type dayTotal struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// GetSummary returns per-category totals for a period: daily (today),
// weekly (last 7 days) or monthly (last 30 days). Every category appears,
// zero-filled, so charts keep a stable axis.
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var since string
	switch c.DefaultQuery("period", "monthly") {
	case "daily":
		since = time.Now().Format("2006-01-02")
	case "weekly":
		since = time.Now().AddDate(0, 0, -7).Format("2006-01-02")
	case "monthly":
		since = time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be daily, weekly or monthly"})
		return
	}

	totals, err := h.categoryTotals(userID, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute summary"})
		return
	}

	c.JSON(http.StatusOK, totals)
}

// GetTrends returns a zero-filled per-day spending series for the last N days
// (default 30, capped at 365).
func (h *AnalyticsHandler) GetTrends(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 || days > 365 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365"})
		return
	}

	since := time.Now().AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	rows, err := h.DB.Query(`
		SELECT transaction_date::text, SUM(amount)::text
		FROM expense_transactions
		WHERE user_id = $1 AND transaction_date >= $2
		GROUP BY transaction_date
	`, userID, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute trends"})
		return
	}
	defer rows.Close()

	byDay := map[string]float64{}
	for rows.Next() {
		var date, sumStr string
		if err := rows.Scan(&date, &sumStr); err != nil {
			log.Printf("⚠️ Skipping unreadable day total row: %v", err)
			continue
		}
		if d, err := decimal.NewFromString(sumStr); err == nil {
			byDay[date], _ = d.Float64()
		}
	}

	series := make([]dayTotal, 0, days)
	for i := days - 1; i >= 0; i-- {
		date := time.Now().AddDate(0, 0, -i).Format("2006-01-02")
		series = append(series, dayTotal{Date: date, Amount: byDay[date]})
	}

	c.JSON(http.StatusOK, series)
}

// GetDistribution returns each category's share of the last 30 days.
func (h *AnalyticsHandler) GetDistribution(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	since := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	totals, err := h.categoryTotals(userID, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute distribution"})
		return
	}

	grand := decimal.Zero
	for _, t := range totals {
		grand = grand.Add(decimal.NewFromFloat(t.Amount))
	}

	type slice struct {
		Category   string  `json:"category"`
		Color      string  `json:"color"`
		Amount     float64 `json:"amount"`
		Percentage float64 `json:"percentage"`
	}

	distribution := []slice{}
	for _, t := range totals {
		if t.Amount == 0 {
			continue
		}
		pct := decimal.Zero
		if grand.IsPositive() {
			pct = decimal.NewFromFloat(t.Amount).Div(grand).Mul(decimal.NewFromInt(100)).Round(2)
		}
		p, _ := pct.Float64()
		distribution = append(distribution, slice{Category: t.Category, Color: t.Color, Amount: t.Amount, Percentage: p})
	}

	c.JSON(http.StatusOK, distribution)
}

// GetRecent returns the per-day per-category matrix for the last N days
// (default 7), the data behind the recent activity table.
func (h *AnalyticsHandler) GetRecent(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 31 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 31"})
		return
	}

	since := time.Now().AddDate(0, 0, -(days - 1)).Format("2006-01-02")

	rows, err := h.DB.Query(`
		SELECT t.transaction_date::text, COALESCE(c.name, 'Other'), SUM(t.amount)::text
		FROM expense_transactions t
		LEFT JOIN expense_categories c ON t.category_id = c.id
		WHERE t.user_id = $1 AND t.transaction_date >= $2
		GROUP BY t.transaction_date, c.name
	`, userID, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recent activity"})
		return
	}
	defer rows.Close()

	matrix := map[string]map[string]float64{}
	for rows.Next() {
		var date, category, sumStr string
		if err := rows.Scan(&date, &category, &sumStr); err != nil {
			log.Printf("⚠️ Skipping unreadable day total row: %v", err)
			continue
		}
		if matrix[date] == nil {
			matrix[date] = map[string]float64{}
		}
		if d, err := decimal.NewFromString(sumStr); err == nil {
			matrix[date][category], _ = d.Float64()
		}
	}

	type dayRow struct {
		Date       string             `json:"date"`
		Categories map[string]float64 `json:"categories"`
		Total      float64            `json:"total"`
	}

	result := make([]dayRow, 0, days)
	for i := 0; i < days; i++ {
		date := time.Now().AddDate(0, 0, -i).Format("2006-01-02")
		cats := matrix[date]
		if cats == nil {
			cats = map[string]float64{}
		}
		total := decimal.Zero
		for _, v := range cats {
			total = total.Add(decimal.NewFromFloat(v))
		}
		t, _ := total.Float64()
		result = append(result, dayRow{Date: date, Categories: cats, Total: t})
	}

	c.JSON(http.StatusOK, result)
}

// categoryTotals sums spending per category since a date, including
// zero-spend categories, ordered by category priority.
func (h *AnalyticsHandler) categoryTotals(userID, since string) ([]categoryTotal, error) {
	rows, err := h.DB.Query(`
		SELECT c.name, c.color, COALESCE(SUM(t.amount), 0)::text
		FROM expense_categories c
		LEFT JOIN expense_transactions t
		  ON t.category_id = c.id AND t.user_id = $1 AND t.transaction_date >= $2
		GROUP BY c.id
		ORDER BY c.priority, c.name
	`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := []categoryTotal{}
	for rows.Next() {
		var t categoryTotal
		var sumStr string
		if err := rows.Scan(&t.Category, &t.Color, &sumStr); err != nil {
			log.Printf("⚠️ Skipping unreadable category total row: %v", err)
			continue
		}
		if d, err := decimal.NewFromString(sumStr); err == nil {
			t.Amount, _ = d.Float64()
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

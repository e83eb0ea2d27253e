package models

import "time"

type Budget struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	CategoryID   string    `json:"category_id,omitempty"` // empty = all categories
	CategoryName string    `json:"category_name,omitempty"`
	Amount       float64   `json:"amount"`
	Period       string    `json:"period"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateBudgetRequest struct {
	CategoryID string  `json:"category_id"`
	Amount     float64 `json:"amount" binding:"required,gt=0"`
	Period     string  `json:"period" binding:"required,oneof=weekly monthly yearly custom"`
	StartDate  string  `json:"start_date" binding:"required"`
	EndDate    string  `json:"end_date" binding:"required"`
}

// BudgetAlert is the budget-vs-actual view for one active budget.
// Status thresholds: warning at 80%, exceeded at 100%.
type BudgetAlert struct {
	ID              string  `json:"id"`
	CategoryName    string  `json:"category_name"`
	CategoryColor   string  `json:"category_color"`
	Period          string  `json:"period"`
	BudgetAmount    float64 `json:"budget_amount"`
	CurrentSpending float64 `json:"current_spending"`
	Percentage      float64 `json:"percentage"`
	Status          string  `json:"status"` // good | warning | exceeded
	StartDate       string  `json:"start_date"`
	EndDate         string  `json:"end_date"`
}

package models

import "time"

type Expense struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	CategoryID      string    `json:"category_id"`
	CategoryName    string    `json:"category_name,omitempty"`
	Amount          float64   `json:"amount"`
	Description     string    `json:"description,omitempty"`
	TransactionDate string    `json:"transaction_date"`
	Tags            []string  `json:"tags,omitempty"`
	PaidBy          string    `json:"paid_by,omitempty"`
	ReceiptURL      string    `json:"receipt_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type CreateExpenseRequest struct {
	Amount          float64  `json:"amount" binding:"required,gt=0"`
	CategoryID      string   `json:"category_id" binding:"required"`
	Description     string   `json:"description"`
	TransactionDate string   `json:"transaction_date" binding:"required"`
	Tags            []string `json:"tags"`
	PaidBy          string   `json:"paid_by"`
	ReceiptURL      string   `json:"receipt_url"`
}

type UpdateExpenseRequest struct {
	Amount          float64  `json:"amount" binding:"required,gt=0"`
	CategoryID      string   `json:"category_id" binding:"required"`
	Description     string   `json:"description"`
	TransactionDate string   `json:"transaction_date" binding:"required"`
	Tags            []string `json:"tags"`
	PaidBy          string   `json:"paid_by"`
	ReceiptURL      string   `json:"receipt_url"`
}

package models

// ============================================================================
// DATA EXCHANGE (import/export)
// ============================================================================

// ExpenseRecord is the interchange shape shared by the exporter and the
// importer. Field names are snake_case on disk so an exported file can be
// imported back unchanged. Tags serializes as null when absent, not [].
type ExpenseRecord struct {
	Amount          float64  `json:"amount"`
	Description     string   `json:"description"`
	TransactionDate string   `json:"transaction_date"`
	CategoryName    string   `json:"category_name"`
	CategoryID      string   `json:"category_id"`
	Tags            []string `json:"tags"`
	PaidBy          string   `json:"paid_by"`
}

// ImportPreview is the parse+validate result presented for confirmation
// before anything is written.
type ImportPreview struct {
	Records []ExpenseRecord `json:"records"`
	Valid   int             `json:"valid"`
	Dropped int             `json:"dropped"` // rows that failed validation
}

// ImportResult reports the outcome of a confirmed import. Fallback counts
// inserted records whose category was guessed rather than matched; it is a
// subset of Inserted.
type ImportResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
	Fallback int `json:"fallback"`
}

type ImportRequest struct {
	Records []ExpenseRecord `json:"records" binding:"required"`
}

package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"expense-api/models"

	"github.com/lib/pq"
)

// ============================================================================
// EXPENSE DATA EXCHANGE
// ============================================================================
// Exporter and importer/reconciler for the JSON/CSV interchange format.
// Both sides share the record schema (models.ExpenseRecord) and the category
// resolution chain: explicit id, then case-insensitive name match, then the
// first category by priority, then failure.
// ============================================================================

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// importBatchSize bounds the size of a single bulk insert.
const importBatchSize = 50

// csvHeader is the fixed interchange column order.
var csvHeader = []string{"amount", "description", "transaction_date", "category_name", "category_id", "tags", "paid_by"}

type ExchangeService struct {
	db *sql.DB
}

func NewExchangeService(db *sql.DB) *ExchangeService {
	return &ExchangeService{db: db}
}

// ============================================================================
// EXPORT
// ============================================================================

// Export serializes every expense of the user, newest first, into the chosen
// format. On any error nothing is returned: no partial file.
func (s *ExchangeService) Export(ctx context.Context, userID string, format Format) (string, []byte, int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.amount, COALESCE(t.description, ''), t.transaction_date::text,
		       COALESCE(c.name, ''), COALESCE(t.category_id::text, ''),
		       t.tags, COALESCE(t.paid_by, '')
		FROM expense_transactions t
		LEFT JOIN expense_categories c ON t.category_id = c.id
		WHERE t.user_id = $1
		ORDER BY t.transaction_date DESC
	`, userID)
	if err != nil {
		return "", nil, 0, fmt.Errorf("failed to fetch expenses: %w", err)
	}
	defer rows.Close()

	records := []models.ExpenseRecord{}
	for rows.Next() {
		var rec models.ExpenseRecord
		var tags pq.StringArray
		if err := rows.Scan(&rec.Amount, &rec.Description, &rec.TransactionDate,
			&rec.CategoryName, &rec.CategoryID, &tags, &rec.PaidBy); err != nil {
			return "", nil, 0, fmt.Errorf("failed to scan expense: %w", err)
		}
		rec.Tags = tags
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return "", nil, 0, fmt.Errorf("failed to read expenses: %w", err)
	}

	var body []byte
	switch format {
	case FormatJSON:
		body, err = MarshalRecordsJSON(records)
	case FormatCSV:
		body = MarshalRecordsCSV(records)
	default:
		return "", nil, 0, fmt.Errorf("unsupported export format: %s", format)
	}
	if err != nil {
		return "", nil, 0, err
	}

	filename := fmt.Sprintf("expenses_%s.%s", time.Now().Format("2006-01-02"), format)
	return filename, body, len(records), nil
}

// MarshalRecordsJSON pretty-prints the records. A nil Tags slice serializes
// as null, matching what the importer expects back.
func MarshalRecordsJSON(records []models.ExpenseRecord) ([]byte, error) {
	return json.MarshalIndent(records, "", "  ")
}

// MarshalRecordsCSV writes the fixed header plus one row per record. Tags are
// joined with ';' into a single column.
func MarshalRecordsCSV(records []models.ExpenseRecord) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(csvHeader, ","))
	for _, r := range records {
		b.WriteByte('\n')
		fields := []string{
			formatAmount(r.Amount),
			csvEscape(r.Description),
			r.TransactionDate,
			csvEscape(r.CategoryName),
			r.CategoryID,
			csvEscape(strings.Join(r.Tags, ";")),
			csvEscape(r.PaidBy),
		}
		b.WriteString(strings.Join(fields, ","))
	}
	return []byte(b.String())
}

// ============================================================================
// PARSE + VALIDATE (import preview)
// ============================================================================

// rawRecord tolerates loosely typed input: amount may arrive as a JSON
// number or as a quoted string.
type rawRecord struct {
	Amount          interface{} `json:"amount"`
	Description     string      `json:"description"`
	TransactionDate string      `json:"transaction_date"`
	CategoryName    string      `json:"category_name"`
	CategoryID      string      `json:"category_id"`
	Tags            []string    `json:"tags"`
	PaidBy          string      `json:"paid_by"`
}

// Preview parses the uploaded file and validates each row. Rows with a
// missing or non-numeric amount or an empty transaction date are dropped and
// counted. A malformed file (non-array JSON root, CSV shorter than a header
// plus one row) is a hard error and nothing is returned.
func Preview(data []byte, format Format) (*models.ImportPreview, error) {
	var raw []rawRecord
	var err error

	switch format {
	case FormatJSON:
		raw, err = parseJSON(data)
	case FormatCSV:
		raw, err = parseCSV(data)
	default:
		err = fmt.Errorf("unsupported import format: %s", format)
	}
	if err != nil {
		return nil, err
	}

	valid := []models.ExpenseRecord{}
	dropped := 0
	for _, r := range raw {
		amount, ok := coerceAmount(r.Amount)
		if !ok || r.TransactionDate == "" {
			dropped++
			continue
		}
		valid = append(valid, models.ExpenseRecord{
			Amount:          amount,
			Description:     r.Description,
			TransactionDate: r.TransactionDate,
			CategoryName:    r.CategoryName,
			CategoryID:      r.CategoryID,
			Tags:            r.Tags,
			PaidBy:          r.PaidBy,
		})
	}

	return &models.ImportPreview{Records: valid, Valid: len(valid), Dropped: dropped}, nil
}

func parseJSON(data []byte) ([]rawRecord, error) {
	var raw []rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("JSON must be an array of expense records: %w", err)
	}
	return raw, nil
}

func parseCSV(data []byte) ([]rawRecord, error) {
	rows := parseCSVDocument(string(data))
	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV must contain a header row and at least one data row")
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(h))
	}

	records := make([]rawRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		fields := map[string]string{}
		for i, h := range headers {
			if i < len(row) {
				fields[h] = strings.TrimSpace(row[i])
			}
		}

		rec := rawRecord{
			Description:     fields["description"],
			TransactionDate: fields["transaction_date"],
			CategoryName:    fields["category_name"],
			CategoryID:      fields["category_id"],
			PaidBy:          fields["paid_by"],
		}
		if amount, ok := fields["amount"]; ok && amount != "" {
			rec.Amount = amount
		}
		if tags := fields["tags"]; tags != "" {
			for _, t := range strings.Split(tags, ";") {
				if t != "" {
					rec.Tags = append(rec.Tags, t)
				}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func coerceAmount(v interface{}) (float64, bool) {
	switch a := v.(type) {
	case float64:
		return a, !math.IsNaN(a) && !math.IsInf(a, 0)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ============================================================================
// IMPORT / RECONCILE
// ============================================================================

// duplicateKey identifies an already-represented expense. Category is
// deliberately not part of the key.
func duplicateKey(amount float64, date, description string) string {
	return formatAmount(amount) + "|" + date + "|" + strings.ToLower(strings.TrimSpace(description))
}

// formatAmount renders the shortest decimal representation, so 42.50 and
// 42.5 produce the same key.
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

type resolvedRow struct {
	record     models.ExpenseRecord
	categoryID string
}

// Import merges confirmed candidate records into the user's expenses.
// Candidates are processed in fixed-size batches, strictly sequentially: the
// duplicate-key set is local to this call and mutated as records are
// admitted, so re-running the same file skips everything. A failed batch
// insert marks that whole batch failed and later batches still run.
func (s *ExchangeService) Import(ctx context.Context, userID string, records []models.ExpenseRecord) (*models.ImportResult, error) {
	categories, err := s.fetchCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch categories: %w", err)
	}

	catByName := make(map[string]string, len(categories))
	for _, c := range categories {
		catByName[strings.ToLower(c.Name)] = c.ID
	}

	existing, err := s.fetchExistingKeys(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch existing expenses: %w", err)
	}

	result := &models.ImportResult{}

	for start := 0; start < len(records); start += importBatchSize {
		end := start + importBatchSize
		if end > len(records) {
			end = len(records)
		}

		batch := []resolvedRow{}
		batchFallback := 0
		for _, rec := range records[start:end] {
			categoryID, usedFallback := resolveCategory(rec, catByName, categories)
			if categoryID == "" {
				result.Failed++
				continue
			}

			key := duplicateKey(rec.Amount, rec.TransactionDate, rec.Description)
			if _, dup := existing[key]; dup {
				result.Skipped++
				continue
			}
			existing[key] = struct{}{}

			if usedFallback {
				batchFallback++
			}
			batch = append(batch, resolvedRow{record: rec, categoryID: categoryID})
		}

		if len(batch) == 0 {
			continue
		}

		if err := s.insertBatch(ctx, userID, batch); err != nil {
			// The whole batch fails together; keep going with the rest.
			result.Failed += len(batch)
			continue
		}
		result.Inserted += len(batch)
		result.Fallback += batchFallback
	}

	return result, nil
}

// resolveCategory applies the resolution chain. The returned bool reports
// whether the arbitrary first-category fallback was used.
func resolveCategory(rec models.ExpenseRecord, catByName map[string]string, categories []models.Category) (string, bool) {
	if rec.CategoryID != "" {
		return rec.CategoryID, false
	}
	if rec.CategoryName != "" {
		if id, ok := catByName[strings.ToLower(rec.CategoryName)]; ok {
			return id, false
		}
	}
	if len(categories) > 0 {
		return categories[0].ID, true
	}
	return "", false
}

func (s *ExchangeService) fetchCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name FROM expense_categories ORDER BY priority ASC, name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *ExchangeService) fetchExistingKeys(ctx context.Context, userID string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT amount, transaction_date::text, COALESCE(description, '')
		FROM expense_transactions
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := map[string]struct{}{}
	for rows.Next() {
		var amount float64
		var date, description string
		if err := rows.Scan(&amount, &date, &description); err != nil {
			return nil, err
		}
		keys[duplicateKey(amount, date, description)] = struct{}{}
	}
	return keys, rows.Err()
}

// insertBatch writes one batch as a single multi-row INSERT.
func (s *ExchangeService) insertBatch(ctx context.Context, userID string, batch []resolvedRow) error {
	placeholders := make([]string, 0, len(batch))
	args := make([]interface{}, 0, len(batch)*7)

	for i, row := range batch {
		base := i * 7
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7))
		args = append(args,
			userID,
			row.categoryID,
			row.record.Amount,
			nullIfEmpty(row.record.Description),
			row.record.TransactionDate,
			tagsOrNull(row.record.Tags),
			nullIfEmpty(row.record.PaidBy),
		)
	}

	query := `
		INSERT INTO expense_transactions (user_id, category_id, amount, description, transaction_date, tags, paid_by)
		VALUES ` + strings.Join(placeholders, ", ")

	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func tagsOrNull(tags []string) interface{} {
	if len(tags) == 0 {
		return nil
	}
	return pq.Array(tags)
}

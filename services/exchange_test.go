package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"expense-api/models"

	"github.com/DATA-DOG/go-sqlmock"
)

// ============================================================================
// PARSE + VALIDATE
// ============================================================================

func TestPreviewMalformedJSON(t *testing.T) {
	_, err := Preview([]byte(`{"not": "an array"}`), FormatJSON)
	if err == nil {
		t.Fatal("non-array JSON root must be rejected")
	}
}

func TestPreviewCSVNeedsDataRow(t *testing.T) {
	_, err := Preview([]byte("amount,description,transaction_date\n"), FormatCSV)
	if err == nil {
		t.Fatal("CSV with only a header must be rejected")
	}
}

func TestPreviewUnsupportedFormat(t *testing.T) {
	_, err := Preview([]byte("[]"), Format("xml"))
	if err == nil {
		t.Fatal("unknown format must be rejected")
	}
}

func TestPreviewDropsInvalidRows(t *testing.T) {
	data := []byte(`[
		{"amount": 10, "transaction_date": "2025-01-01", "description": "ok"},
		{"amount": "not a number", "transaction_date": "2025-01-02"},
		{"amount": 5, "transaction_date": "", "description": "no date"},
		{"transaction_date": "2025-01-03", "description": "no amount"}
	]`)
	preview, err := Preview(data, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if preview.Valid != 1 || preview.Dropped != 3 {
		t.Errorf("got valid=%d dropped=%d, want 1/3", preview.Valid, preview.Dropped)
	}
	if preview.Records[0].Description != "ok" {
		t.Errorf("wrong survivor: %+v", preview.Records[0])
	}
}

func TestPreviewStringAmount(t *testing.T) {
	data := []byte(`[{"amount": " 42.50 ", "transaction_date": "2025-01-01"}]`)
	preview, err := Preview(data, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if preview.Valid != 1 || preview.Records[0].Amount != 42.5 {
		t.Errorf("quoted amount should be coerced: %+v", preview)
	}
}

func TestPreviewCSVAndJSONEquivalence(t *testing.T) {
	csvData := []byte("amount,description,transaction_date,category_name,category_id,tags,paid_by\n" +
		"12.5,\"lunch, downtown\",2025-03-01,Food,,work;lunch,alice\n" +
		"99,rent,2025-03-02,,cat-7,,\n")
	jsonData := []byte(`[
		{"amount": 12.5, "description": "lunch, downtown", "transaction_date": "2025-03-01",
		 "category_name": "Food", "tags": ["work", "lunch"], "paid_by": "alice"},
		{"amount": 99, "description": "rent", "transaction_date": "2025-03-02", "category_id": "cat-7"}
	]`)

	fromCSV, err := Preview(csvData, FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	fromJSON, err := Preview(jsonData, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}

	a, _ := json.Marshal(fromCSV.Records)
	b, _ := json.Marshal(fromJSON.Records)
	if string(a) != string(b) {
		t.Errorf("CSV and JSON disagree:\n%s\n%s", a, b)
	}
}

func TestExportPreviewRoundTripCSV(t *testing.T) {
	records := []models.ExpenseRecord{
		{Amount: 12.5, Description: `coffee "to go", large`, TransactionDate: "2025-02-01",
			CategoryName: "Food", CategoryID: "cat-1", Tags: []string{"morning", "caffeine"}, PaidBy: "bob"},
		{Amount: 7, Description: "note\nwith newline", TransactionDate: "2025-02-02"},
	}

	preview, err := Preview(MarshalRecordsCSV(records), FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	if preview.Valid != 2 || preview.Dropped != 0 {
		t.Fatalf("round trip lost rows: %+v", preview)
	}
	got := preview.Records[0]
	if got.Description != records[0].Description {
		t.Errorf("description mangled: %q", got.Description)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "morning" {
		t.Errorf("tags mangled: %v", got.Tags)
	}
	if preview.Records[1].Description != records[1].Description {
		t.Errorf("newline description mangled: %q", preview.Records[1].Description)
	}
}

// ============================================================================
// DUPLICATE KEYS
// ============================================================================

func TestDuplicateKeyNormalization(t *testing.T) {
	base := duplicateKey(42.5, "2025-01-01", "Lunch")
	same := []string{
		duplicateKey(42.50, "2025-01-01", "lunch"),
		duplicateKey(42.5, "2025-01-01", "  LUNCH  "),
	}
	for _, k := range same {
		if k != base {
			t.Errorf("key %q should equal %q", k, base)
		}
	}

	different := []string{
		duplicateKey(42.51, "2025-01-01", "Lunch"),
		duplicateKey(42.5, "2025-01-02", "Lunch"),
		duplicateKey(42.5, "2025-01-01", "Dinner"),
	}
	for _, k := range different {
		if k == base {
			t.Errorf("key %q should differ from %q", k, base)
		}
	}
}

func TestFormatAmountShortest(t *testing.T) {
	if formatAmount(42.50) != "42.5" {
		t.Errorf("got %q", formatAmount(42.50))
	}
	if formatAmount(100) != "100" {
		t.Errorf("got %q", formatAmount(100))
	}
}

// ============================================================================
// CATEGORY RESOLUTION
// ============================================================================

func TestResolveCategory(t *testing.T) {
	categories := []models.Category{{ID: "cat-1", Name: "Food"}, {ID: "cat-2", Name: "Rent"}}
	byName := map[string]string{"food": "cat-1", "rent": "cat-2"}

	id, fb := resolveCategory(models.ExpenseRecord{CategoryID: "cat-9"}, byName, categories)
	if id != "cat-9" || fb {
		t.Errorf("explicit id wins: got %q fallback=%v", id, fb)
	}

	id, fb = resolveCategory(models.ExpenseRecord{CategoryName: "FOOD"}, byName, categories)
	if id != "cat-1" || fb {
		t.Errorf("name match is case-insensitive: got %q fallback=%v", id, fb)
	}

	id, fb = resolveCategory(models.ExpenseRecord{CategoryName: "Unknown"}, byName, categories)
	if id != "cat-1" || !fb {
		t.Errorf("unknown name falls back to first category: got %q fallback=%v", id, fb)
	}

	id, _ = resolveCategory(models.ExpenseRecord{}, map[string]string{}, nil)
	if id != "" {
		t.Errorf("no categories means unresolvable, got %q", id)
	}
}

// ============================================================================
// IMPORT / RECONCILE
// ============================================================================

func newMockService(t *testing.T) (*ExchangeService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewExchangeService(db), mock
}

func expectCategories(mock sqlmock.Sqlmock, cats ...[2]string) {
	rows := sqlmock.NewRows([]string{"id", "name"})
	for _, c := range cats {
		rows.AddRow(c[0], c[1])
	}
	mock.ExpectQuery("SELECT id, name FROM expense_categories").WillReturnRows(rows)
}

func expectExistingKeys(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT amount, transaction_date::text").WillReturnRows(rows)
}

func TestImportInsertsAndCountsFallback(t *testing.T) {
	svc, mock := newMockService(t)

	expectCategories(mock, [2]string{"cat-1", "Food"}, [2]string{"cat-2", "Rent"})
	expectExistingKeys(mock, sqlmock.NewRows([]string{"amount", "transaction_date", "description"}))
	mock.ExpectExec("INSERT INTO expense_transactions").
		WillReturnResult(sqlmock.NewResult(0, 2))

	// Row 1 resolves by name, row 2 by the first-category fallback.
	records := []models.ExpenseRecord{
		{Amount: 10, Description: "groceries", TransactionDate: "2025-01-01", CategoryName: "food"},
		{Amount: 20, Description: "mystery", TransactionDate: "2025-01-02", CategoryName: "Nonexistent"},
	}

	result, err := svc.Import(context.Background(), "user-1", records)
	if err != nil {
		t.Fatal(err)
	}
	if result.Inserted != 2 || result.Skipped != 0 || result.Failed != 0 || result.Fallback != 1 {
		t.Errorf("got %+v, want inserted=2 fallback=1", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportSkipsExistingAndInFileDuplicates(t *testing.T) {
	svc, mock := newMockService(t)

	expectCategories(mock, [2]string{"cat-1", "Food"})
	existing := sqlmock.NewRows([]string{"amount", "transaction_date", "description"}).
		AddRow(42.5, "2025-01-01", "Lunch")
	expectExistingKeys(mock, existing)
	mock.ExpectExec("INSERT INTO expense_transactions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	records := []models.ExpenseRecord{
		// Matches the stored row despite case, spacing and trailing zero.
		{Amount: 42.50, Description: "  lunch ", TransactionDate: "2025-01-01", CategoryID: "cat-1"},
		{Amount: 9, Description: "new", TransactionDate: "2025-01-01", CategoryID: "cat-1"},
		// Duplicate of the record above, within the same file.
		{Amount: 9, Description: "NEW", TransactionDate: "2025-01-01", CategoryID: "cat-1"},
	}

	result, err := svc.Import(context.Background(), "user-1", records)
	if err != nil {
		t.Fatal(err)
	}
	if result.Inserted != 1 || result.Skipped != 2 || result.Failed != 0 {
		t.Errorf("got %+v, want inserted=1 skipped=2", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportReRunSkipsEverything(t *testing.T) {
	svc, mock := newMockService(t)

	records := []models.ExpenseRecord{
		{Amount: 10, Description: "a", TransactionDate: "2025-01-01", CategoryID: "cat-1"},
		{Amount: 20, Description: "b", TransactionDate: "2025-01-02", CategoryID: "cat-1"},
	}

	expectCategories(mock, [2]string{"cat-1", "Food"})
	existing := sqlmock.NewRows([]string{"amount", "transaction_date", "description"})
	for _, r := range records {
		existing.AddRow(r.Amount, r.TransactionDate, r.Description)
	}
	expectExistingKeys(mock, existing)
	// No INSERT expected.

	result, err := svc.Import(context.Background(), "user-1", records)
	if err != nil {
		t.Fatal(err)
	}
	if result.Inserted != 0 || result.Skipped != 2 {
		t.Errorf("re-import must skip everything, got %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportFailedBatchDoesNotAbortLaterBatches(t *testing.T) {
	svc, mock := newMockService(t)

	expectCategories(mock, [2]string{"cat-1", "Food"})
	expectExistingKeys(mock, sqlmock.NewRows([]string{"amount", "transaction_date", "description"}))

	// 120 records -> batches of 50, 50, 20. The middle batch fails.
	mock.ExpectExec("INSERT INTO expense_transactions").WillReturnResult(sqlmock.NewResult(0, 50))
	mock.ExpectExec("INSERT INTO expense_transactions").WillReturnError(errors.New("deadlock"))
	mock.ExpectExec("INSERT INTO expense_transactions").WillReturnResult(sqlmock.NewResult(0, 20))

	records := make([]models.ExpenseRecord, 120)
	for i := range records {
		records[i] = models.ExpenseRecord{
			Amount:          float64(i) + 0.5,
			Description:     fmt.Sprintf("expense %d", i),
			TransactionDate: "2025-01-01",
			CategoryID:      "cat-1",
		}
	}

	result, err := svc.Import(context.Background(), "user-1", records)
	if err != nil {
		t.Fatal(err)
	}
	if result.Inserted != 70 || result.Failed != 50 || result.Skipped != 0 {
		t.Errorf("got %+v, want inserted=70 failed=50", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportUnresolvableWithoutCategories(t *testing.T) {
	svc, mock := newMockService(t)

	expectCategories(mock) // empty table
	expectExistingKeys(mock, sqlmock.NewRows([]string{"amount", "transaction_date", "description"}))

	records := []models.ExpenseRecord{
		{Amount: 10, Description: "a", TransactionDate: "2025-01-01", CategoryName: "Food"},
	}

	result, err := svc.Import(context.Background(), "user-1", records)
	if err != nil {
		t.Fatal(err)
	}
	if result.Failed != 1 || result.Inserted != 0 {
		t.Errorf("no categories means the row fails, got %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestImportConfirmedCSVScenario(t *testing.T) {
	svc, mock := newMockService(t)

	csvData := []byte("amount,description,transaction_date,category_name,category_id,tags,paid_by\n" +
		"12.5,lunch,2025-03-01,Food,,,\n" +
		"30,taxi,2025-03-02,DoesNotExist,,,\n")
	preview, err := Preview(csvData, FormatCSV)
	if err != nil {
		t.Fatal(err)
	}
	if preview.Valid != 2 {
		t.Fatalf("expected 2 candidates, got %d", preview.Valid)
	}

	expectCategories(mock, [2]string{"cat-1", "Food"}, [2]string{"cat-2", "Transport"})
	expectExistingKeys(mock, sqlmock.NewRows([]string{"amount", "transaction_date", "description"}))
	mock.ExpectExec("INSERT INTO expense_transactions").WillReturnResult(sqlmock.NewResult(0, 2))

	result, err := svc.Import(context.Background(), "user-1", preview.Records)
	if err != nil {
		t.Fatal(err)
	}
	if result.Inserted != 2 || result.Fallback != 1 {
		t.Errorf("got %+v, want inserted=2 fallback=1", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// ============================================================================
// EXPORT
// ============================================================================

func TestExportJSON(t *testing.T) {
	svc, mock := newMockService(t)

	rows := sqlmock.NewRows([]string{"amount", "description", "transaction_date", "name", "category_id", "tags", "paid_by"}).
		AddRow(12.5, "lunch", "2025-03-02", "Food", "cat-1", []byte("{work,lunch}"), "alice").
		AddRow(99.0, "rent", "2025-03-01", "", "", nil, "")
	mock.ExpectQuery("FROM expense_transactions t").WillReturnRows(rows)

	filename, body, count, err := svc.Export(context.Background(), "user-1", FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if !strings.HasPrefix(filename, "expenses_") || !strings.HasSuffix(filename, ".json") {
		t.Errorf("unexpected filename %q", filename)
	}

	var records []models.ExpenseRecord
	if err := json.Unmarshal(body, &records); err != nil {
		t.Fatalf("export body is not a JSON array: %v", err)
	}
	if records[0].Amount != 12.5 || len(records[0].Tags) != 2 {
		t.Errorf("first record mangled: %+v", records[0])
	}
	if records[1].Tags != nil {
		t.Errorf("absent tags must stay null, got %v", records[1].Tags)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestExportQueryFailure(t *testing.T) {
	svc, mock := newMockService(t)
	mock.ExpectQuery("FROM expense_transactions t").WillReturnError(errors.New("connection reset"))

	_, body, _, err := svc.Export(context.Background(), "user-1", FormatCSV)
	if err == nil {
		t.Fatal("expected error")
	}
	if body != nil {
		t.Error("no partial body on failure")
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc, mock := newMockService(t)
	mock.ExpectQuery("FROM expense_transactions t").
		WillReturnRows(sqlmock.NewRows([]string{"amount", "description", "transaction_date", "name", "category_id", "tags", "paid_by"}))

	if _, _, _, err := svc.Export(context.Background(), "user-1", Format("xlsx")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

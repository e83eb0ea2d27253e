package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"expense-api/middleware"
	"expense-api/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func authedContext(t *testing.T, userID string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Set(middleware.ContextUserID, userID)
	return c, w
}

func TestGetBudgetAlertsStatusesAndOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	budgetRows := sqlmock.NewRows([]string{"id", "category_id", "name", "color", "amount", "period", "start_date", "end_date"}).
		AddRow("b-good", "cat-1", "Food", "#fff", "100", "monthly", "2025-03-01", "2025-03-31").
		AddRow("b-exceeded", "cat-2", "Transport", "#000", "50", "monthly", "2025-03-01", "2025-03-31").
		AddRow("b-warning", "", "All Categories", "#6B7280", "200", "monthly", "2025-03-01", "2025-03-31")
	mock.ExpectQuery("FROM expense_budgets b").WillReturnRows(budgetRows)

	// Spending per budget, queried in listing order.
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("30"))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("75.50"))
	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("160"))

	h := &BudgetHandler{DB: db}
	c, w := authedContext(t, "user-1")
	h.GetBudgetAlerts(c)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var alerts []models.BudgetAlert
	if err := json.Unmarshal(w.Body.Bytes(), &alerts); err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d", len(alerts))
	}

	// Sorted exceeded -> warning -> good.
	wantOrder := []string{"exceeded", "warning", "good"}
	for i, want := range wantOrder {
		if alerts[i].Status != want {
			t.Errorf("alerts[%d].Status = %q, want %q", i, alerts[i].Status, want)
		}
	}

	if alerts[0].ID != "b-exceeded" || alerts[0].Percentage != 151 {
		t.Errorf("exceeded alert wrong: %+v", alerts[0])
	}
	if alerts[1].ID != "b-warning" || alerts[1].Percentage != 80 {
		t.Errorf("warning alert wrong: %+v", alerts[1])
	}
	if alerts[2].ID != "b-good" || alerts[2].Percentage != 30 {
		t.Errorf("good alert wrong: %+v", alerts[2])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetBudgetAlertsUnauthorized(t *testing.T) {
	h := &BudgetHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.GetBudgetAlerts(c)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

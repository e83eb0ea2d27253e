package handlers

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"expense-api/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func TestListCategoriesSkipsAndLogsBadRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "color", "icon", "priority", "created_at", "updated_at"}).
		AddRow("cat-1", "Food", "#fff", "", 0, now, now).
		AddRow("cat-2", "Broken", "#000", "", "not-a-priority", now, now)
	mock.ExpectQuery("FROM expense_categories").WillReturnRows(rows)

	var logged bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&logged)
	defer log.SetOutput(prev)

	h := &CategoryHandler{DB: db}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/categories", nil)

	h.ListCategories(c)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var categories []models.Category
	if err := json.Unmarshal(w.Body.Bytes(), &categories); err != nil {
		t.Fatal(err)
	}
	if len(categories) != 1 || categories[0].ID != "cat-1" {
		t.Errorf("expected only the readable row, got %+v", categories)
	}
	if !strings.Contains(logged.String(), "Skipping unreadable category row") {
		t.Errorf("bad row was dropped silently, log: %q", logged.String())
	}
}

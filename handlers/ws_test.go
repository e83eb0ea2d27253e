package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"expense-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func dialWS(serverURL, userID string) (*websocket.Conn, error) {
	token, err := utils.GenerateAccessToken(userID, userID+"@example.com")
	if err != nil {
		return nil, err
	}
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/expenses?token="+token, nil)
	return conn, err
}

func waitForSessions(t *testing.T, h *WSHandler, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.M.Len() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d sessions, have %d", want, h.M.Len())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBroadcastReachesOnlyOwningUser(t *testing.T) {
	h := NewWSHandler()
	router := gin.New()
	router.GET("/ws/expenses", h.HandleWS)
	srv := httptest.NewServer(router)
	defer srv.Close()

	// Concurrent upgrades must not cross-tag each other's sessions.
	var wg sync.WaitGroup
	conns := make([]*websocket.Conn, 2)
	errs := make([]error, 2)
	users := []string{"user-a", "user-b"}
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conns[i], errs[i] = dialWS(srv.URL, users[i])
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("dial for %s: %v", users[i], err)
		}
		defer conns[i].Close()
	}
	waitForSessions(t, h, 2)

	h.BroadcastUpdate("user-a", "expense_created")

	connA, connB := conns[0], conns[1]

	connA.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := connA.ReadMessage()
	if err != nil {
		t.Fatalf("user A never received their event: %v", err)
	}
	if !strings.Contains(string(msg), "expense_created") || !strings.Contains(string(msg), "user-a") {
		t.Errorf("unexpected message for user A: %s", msg)
	}

	connB.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, msg, err := connB.ReadMessage(); err == nil {
		t.Errorf("user B received user A's event: %s", msg)
	}
}

func TestHandleWSRejectsInvalidToken(t *testing.T) {
	h := NewWSHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ws/expenses?token=garbage", nil)

	h.HandleWS(c)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

// handlers/admin.go
package handlers

import (
	"database/sql"
	"log"
	"net/http"

	"expense-api/middleware"
	"expense-api/models"
	"expense-api/utils"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	DB *sql.DB
}

// ============================================================================
// USER ADMINISTRATION
// ============================================================================

func (h *AdminHandler) ListUsers(c *gin.Context) {
	rows, err := h.DB.Query(`
		SELECT id, email, name, is_admin, totp_enabled, email_verified, created_at, updated_at
		FROM users
		ORDER BY created_at DESC
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
		return
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.IsAdmin, &u.TOTPEnabled, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt); err != nil {
			log.Printf("⚠️ Skipping unreadable user row: %v", err)
			continue
		}
		users = append(users, u)
	}

	c.JSON(http.StatusOK, users)
}

type ToggleAdminRequest struct {
	IsAdmin *bool `json:"is_admin" binding:"required"`
}

// ToggleAdmin flips a user's admin flag. Self-demotion is rejected so the
// last admin cannot lock everyone out.
func (h *AdminHandler) ToggleAdmin(c *gin.Context) {
	adminID := middleware.GetUserID(c)
	targetID := c.Param("id")

	var req ToggleAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if targetID == adminID && !*req.IsAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot revoke your own admin access"})
		return
	}

	result, err := h.DB.Exec(`
		UPDATE users SET is_admin = $1, updated_at = NOW() WHERE id = $2
	`, *req.IsAdmin, targetID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	utils.SafeLogf("🔑 Admin %s set is_admin=%v on %s", adminID, *req.IsAdmin, targetID)
	c.JSON(http.StatusOK, gin.H{"message": "User updated"})
}

// ============================================================================
// STATIC USER MANAGEMENT
// ============================================================================

func (h *AdminHandler) ListStaticUsers(c *gin.Context) {
	rows, err := h.DB.Query(`
		SELECT id, username, is_active, COALESCE(created_by::text, ''), created_at, updated_at
		FROM static_users
		ORDER BY username
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch static users"})
		return
	}
	defer rows.Close()

	users := []models.StaticUser{}
	for rows.Next() {
		var u models.StaticUser
		if err := rows.Scan(&u.ID, &u.Username, &u.IsActive, &u.CreatedBy, &u.CreatedAt, &u.UpdatedAt); err != nil {
			log.Printf("⚠️ Skipping unreadable static user row: %v", err)
			continue
		}
		users = append(users, u)
	}

	c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) CreateStaticUser(c *gin.Context) {
	adminID := middleware.GetUserID(c)

	var req models.CreateStaticUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	var id string
	err = h.DB.QueryRow(`
		INSERT INTO static_users (username, password_hash, created_by)
		VALUES ($1, $2, $3)
		RETURNING id
	`, req.Username, passwordHash, adminID).Scan(&id)

	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Failed to create static user (username may already exist)"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "Static user created"})
}

func (h *AdminHandler) UpdateStaticUser(c *gin.Context) {
	targetID := c.Param("id")

	var req models.UpdateStaticUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.IsActive != nil {
		if _, err := h.DB.Exec(`
			UPDATE static_users SET is_active = $1, updated_at = NOW() WHERE id = $2
		`, *req.IsActive, targetID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update static user"})
			return
		}
		// Deactivation kills open sessions immediately
		if !*req.IsActive {
			_, _ = h.DB.Exec(`DELETE FROM static_user_sessions WHERE static_user_id = $1`, targetID)
		}
	}

	if req.Password != "" {
		passwordHash, err := utils.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		if _, err := h.DB.Exec(`
			UPDATE static_users SET password_hash = $1, updated_at = NOW() WHERE id = $2
		`, passwordHash, targetID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update static user"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Static user updated"})
}

func (h *AdminHandler) DeleteStaticUser(c *gin.Context) {
	targetID := c.Param("id")

	result, err := h.DB.Exec(`DELETE FROM static_users WHERE id = $1`, targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete static user"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Static user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Static user deleted"})
}

// ============================================================================
// MAINTENANCE
// ============================================================================

// CleanupSessions deletes expired refresh sessions and static sessions.
// Also runs on a schedule from main.
func (h *AdminHandler) CleanupSessions(c *gin.Context) {
	sessions, staticSessions, err := CleanupExpiredSessions(h.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cleanup failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions_removed":        sessions,
		"static_sessions_removed": staticSessions,
	})
}

func CleanupExpiredSessions(db *sql.DB) (int64, int64, error) {
	res1, err := db.Exec(`DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, 0, err
	}
	res2, err := db.Exec(`DELETE FROM static_user_sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, 0, err
	}

	sessions, _ := res1.RowsAffected()
	staticSessions, _ := res2.RowsAffected()
	if sessions > 0 || staticSessions > 0 {
		log.Printf("🧹 Cleaned %d sessions, %d static sessions", sessions, staticSessions)
	}
	return sessions, staticSessions, nil
}

// GetStats returns row counts for the admin dashboard.
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats := gin.H{}
	tables := []string{"users", "static_users", "expense_transactions", "expense_categories", "expense_budgets", "groups"}

	for _, table := range tables {
		var count int64
		if err := h.DB.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute stats"})
			return
		}
		stats[table] = count
	}

	c.JSON(http.StatusOK, stats)
}

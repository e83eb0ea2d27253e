package middleware

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"expense-api/utils"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID   = "user_id"
	ContextEmail    = "email"
	ContextIsStatic = "is_static"

	// Static session tokens are prefixed so the middleware can tell them
	// apart from JWTs without parsing.
	StaticTokenPrefix = "static_"
)

// AuthMiddleware accepts either a JWT access token or a static-user session
// token in the Authorization header.
func AuthMiddleware(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}

		if strings.HasPrefix(token, StaticTokenPrefix) {
			authenticateStaticSession(c, db, token)
			return
		}

		claims, err := utils.ValidateAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextIsStatic, false)
		c.Next()
	}
}

func authenticateStaticSession(c *gin.Context, db *sql.DB, token string) {
	var staticUserID string
	var expiresAt time.Time
	err := db.QueryRow(`
		SELECT s.static_user_id, s.expires_at
		FROM static_user_sessions s
		INNER JOIN static_users u ON s.static_user_id = u.id
		WHERE s.session_token = $1 AND u.is_active = TRUE
	`, token).Scan(&staticUserID, &expiresAt)

	if err == sql.ErrNoRows || (err == nil && time.Now().After(expiresAt)) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired session"})
		c.Abort()
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		c.Abort()
		return
	}

	// Best effort activity bump, a failure here should not kill the request
	_, _ = db.Exec(`UPDATE static_user_sessions SET last_activity = NOW() WHERE session_token = $1`, token)

	c.Set(ContextUserID, staticUserID)
	c.Set(ContextIsStatic, true)
	c.Next()
}

// AdminMiddleware gates admin routes on users.is_admin. Static users are
// never admins.
func AdminMiddleware(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == "" || c.GetBool(ContextIsStatic) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		var isAdmin bool
		err := db.QueryRow(`SELECT is_admin FROM users WHERE id = $1`, userID).Scan(&isAdmin)
		if err != nil || !isAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetUserID returns the authenticated user id stored by AuthMiddleware.
func GetUserID(c *gin.Context) string {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

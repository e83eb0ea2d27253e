package handlers

import (
	"database/sql"
	"log"
	"net/http"

	"expense-api/middleware"
	"expense-api/models"

	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	DB *sql.DB
}

// GetMyGroups returns the groups the caller belongs to.
func (h *GroupHandler) GetMyGroups(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	rows, err := h.DB.Query(`
		SELECT g.id, g.name, COALESCE(g.description, ''), COALESCE(g.created_by::text, ''), g.created_at, g.updated_at
		FROM groups g
		INNER JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.user_id = $1
		ORDER BY g.name
	`, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt); err != nil {
			log.Printf("⚠️ Skipping unreadable group row: %v", err)
			continue
		}
		groups = append(groups, g)
	}

	c.JSON(http.StatusOK, groups)
}

// ============================================================================
// ADMIN GROUP MANAGEMENT
// ============================================================================

func (h *GroupHandler) ListGroups(c *gin.Context) {
	rows, err := h.DB.Query(`
		SELECT g.id, g.name, COALESCE(g.description, ''), COALESCE(g.created_by::text, ''), g.created_at, g.updated_at
		FROM groups g
		ORDER BY g.name
	`)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch groups"})
		return
	}
	defer rows.Close()

	groups := []models.Group{}
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.CreatedBy, &g.CreatedAt, &g.UpdatedAt); err != nil {
			log.Printf("⚠️ Skipping unreadable group row: %v", err)
			continue
		}
		groups = append(groups, g)
	}

	// Attach members
	for i := range groups {
		members, err := h.groupMembers(groups[i].ID)
		if err == nil {
			groups[i].Members = members
		}
	}

	c.JSON(http.StatusOK, groups)
}

func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var id string
	err := h.DB.QueryRow(`
		INSERT INTO groups (name, description, created_by)
		VALUES ($1, NULLIF($2, ''), $3)
		RETURNING id
	`, req.Name, req.Description, userID).Scan(&id)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create group"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id, "message": "Group created"})
}

func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	groupID := c.Param("id")

	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.DB.Exec(`
		UPDATE groups SET name = $1, description = NULLIF($2, ''), updated_at = NOW() WHERE id = $3
	`, req.Name, req.Description, groupID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update group"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Group updated"})
}

func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	groupID := c.Param("id")

	result, err := h.DB.Exec(`DELETE FROM groups WHERE id = $1`, groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete group"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Group deleted"})
}

func (h *GroupHandler) AddMember(c *gin.Context) {
	adminID := middleware.GetUserID(c)
	groupID := c.Param("id")

	var req models.AddGroupMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, err := h.DB.Exec(`
		INSERT INTO group_members (group_id, user_id, added_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, groupID, req.UserID, adminID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add member"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member added"})
}

func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID := c.Param("id")
	memberID := c.Param("member_id")

	result, err := h.DB.Exec(`
		DELETE FROM group_members WHERE group_id = $1 AND user_id = $2
	`, groupID, memberID)

	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

func (h *GroupHandler) groupMembers(groupID string) ([]models.GroupMember, error) {
	rows, err := h.DB.Query(`
		SELECT gm.id, gm.group_id, gm.user_id, u.name, u.email, COALESCE(gm.added_by::text, ''), gm.joined_at
		FROM group_members gm
		INNER JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = $1
		ORDER BY gm.joined_at
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.GroupMember{}
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.ID, &m.GroupID, &m.UserID, &m.UserName, &m.UserEmail, &m.AddedBy, &m.JoinedAt); err != nil {
			log.Printf("⚠️ Skipping unreadable group member row: %v", err)
			continue
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

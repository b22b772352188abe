package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

// GroupHandler manages group lifecycle endpoints.
type GroupHandler struct {
	groups repositories.GroupRepository
	router *ws.Router
	audit  *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groups repositories.GroupRepository, router *ws.Router, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{groups: groups, router: router, audit: audit}
}

// CreateGroup handles POST /api/groups. The group and its membership
// rows persist atomically; online members are subscribed to the new
// room and notified immediately.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		Name      string `json:"name" binding:"required"`
		MemberIDs []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	avatar := fmt.Sprintf("https://api.dicebear.com/7.x/initials/svg?seed=%s", req.Name)
	group, members, err := h.groups.CreateGroup(c.Request.Context(), req.Name, userID, req.MemberIDs, avatar)
	if err != nil {
		if errors.Is(err, repositories.ErrNoMembers) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "a group needs at least one member"})
			return
		}
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	h.router.NotifyGroupCreated(group, members)

	h.emitAudit(c, "INFO", "Group created")
	c.JSON(http.StatusCreated, gin.H{"group_id": group.ID})
}

// ListGroups handles GET /api/groups.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.groups.ListGroupsForUser(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// LeaveGroup handles POST /api/groups/leave. Leaving a group the caller
// is not in succeeds without effect; the last member leaving deletes
// the group.
func (h *GroupHandler) LeaveGroup(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		GroupID int `json:"group_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.groups.LeaveGroup(c.Request.Context(), req.GroupID, userID); err != nil {
		h.emitAudit(c, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave group"})
		return
	}

	h.router.NotifyGroupLeft(req.GroupID, userID)

	h.emitAudit(c, "INFO", "Left group")
	c.Status(http.StatusNoContent)
}

// GroupMembers handles GET /api/groups/:group_id/members.
func (h *GroupHandler) GroupMembers(c *gin.Context) {
	groupID, err := strconv.Atoi(c.Param("group_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	member, err := h.groups.IsMember(c.Request.Context(), groupID, c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	members, err := h.groups.MembersOf(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}

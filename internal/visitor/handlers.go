package visitor

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/sentinel-safe/internal/audit"
	"github.com/yourusername/sentinel-safe/internal/auth"
	"github.com/yourusername/sentinel-safe/internal/flash"
)

const visitorsPath = "/visitors"

// Notifier は来訪者記録の保存を利用者へ通知します。
// 通知の失敗は記録の保存を失敗させてはいけません。
type Notifier interface {
	NotifyVisitor(ctx context.Context, toEmail string, v Visitor) error
}

// Handlers は来訪者記録のHTTPハンドラー群です。
type Handlers struct {
	store    Store
	notifier Notifier
	audit    *audit.Logger
}

// NewHandlers は Handlers を作成します。notifier は nil でも構いません
// （通知なしで動作します）。
func NewHandlers(store Store, notifier Notifier, auditLog *audit.Logger) *Handlers {
	return &Handlers{
		store:    store,
		notifier: notifier,
		audit:    auditLog,
	}
}

// Save は POST /visitors のハンドラーです。
func (h *Handlers) Save(c *gin.Context) {
	session := auth.SessionFromContext(c)

	v := visitorFromForm(c)
	if fields := v.Validate(); fields != nil {
		h.audit.Warning("Visitor validation failed", map[string]any{"errors": fields})
		flash.Error(c, firstFieldError(fields))
		c.Redirect(http.StatusFound, visitorsPath)
		return
	}

	ctx := c.Request.Context()
	id, err := h.store.Add(ctx, v)
	if err != nil {
		h.audit.Error("Failed to save visitor data", map[string]any{"visitor_name": v.Name, "error": err.Error()})
		flash.Error(c, "Error saving visitor data")
		c.Redirect(http.StatusFound, visitorsPath)
		return
	}
	v.ID = id

	h.audit.Activity(session.UserID, "ADD_VISITOR", "Added visitor: "+v.Name, c.ClientIP())
	h.audit.Info("Visitor added successfully", map[string]any{
		"visitor_name": v.Name,
		"action_taken": v.ActionTaken,
		"user_id":      session.UserID,
	})

	// 報告・入館の記録は担当者へメール通知する。失敗してもリクエストは成功扱い。
	if h.notifier != nil && (v.ActionTaken == ActionReported || v.ActionTaken == ActionCheckedIn) {
		if err := h.notifier.NotifyVisitor(ctx, session.Email, *v); err != nil {
			h.audit.Error("Failed to send email notification: "+err.Error(), map[string]any{"action": v.ActionTaken})
		}
	}

	flash.Success(c, "Visitor data saved successfully")
	c.Redirect(http.StatusFound, visitorsPath)
}

// EditSave は POST /visitors/:id のハンドラーです。
func (h *Handlers) EditSave(c *gin.Context) {
	session := auth.SessionFromContext(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		flash.Error(c, "Invalid visitor id")
		c.Redirect(http.StatusFound, visitorsPath)
		return
	}

	v := visitorFromForm(c)
	v.ID = id
	if fields := v.Validate(); fields != nil {
		h.audit.Warning("Visitor validation failed", map[string]any{"errors": fields})
		flash.Error(c, firstFieldError(fields))
		c.Redirect(http.StatusFound, visitorsPath)
		return
	}

	if err := h.store.Update(c.Request.Context(), v); err != nil {
		h.audit.Error("Failed to update visitor data", map[string]any{"visitor_id": id, "error": err.Error()})
		flash.Error(c, "Error updating visitor data")
		c.Redirect(http.StatusFound, visitorsPath)
		return
	}

	h.audit.Activity(session.UserID, "EDIT_VISITOR", "Edited visitor: "+v.Name, c.ClientIP())
	flash.Success(c, "Visitor data updated successfully")
	c.Redirect(http.StatusFound, visitorsPath)
}

// Delete は POST /visitors/:id/delete のハンドラーです。
func (h *Handlers) Delete(c *gin.Context) {
	session := auth.SessionFromContext(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		flash.Error(c, "Invalid visitor id")
		c.Redirect(http.StatusFound, visitorsPath)
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.audit.Error("Failed to delete visitor", map[string]any{"visitor_id": id, "error": err.Error()})
		flash.Error(c, "Error deleting visitor")
		c.Redirect(http.StatusFound, visitorsPath)
		return
	}

	h.audit.Activity(session.UserID, "DELETE_VISITOR", "Deleted visitor id: "+strconv.FormatInt(id, 10), c.ClientIP())
	flash.Success(c, "Visitor deleted successfully")
	c.Redirect(http.StatusFound, visitorsPath)
}

// List は GET /api/visitors のハンドラーです。
func (h *Handlers) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("perPage", "10"))
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	filter := ListFilter{
		Search: strings.TrimSpace(c.Query("search")),
		Action: c.Query("filter"),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}

	ctx := c.Request.Context()
	visitors, err := h.store.List(ctx, filter)
	if err != nil {
		h.internalError(c, "Failed to list visitors", err)
		return
	}
	total, err := h.store.Count(ctx, filter)
	if err != nil {
		h.internalError(c, "Failed to count visitors", err)
		return
	}

	if visitors == nil {
		visitors = []Visitor{}
	}
	c.JSON(http.StatusOK, gin.H{
		"visitors": visitors,
		"total":    total,
		"page":     page,
		"perPage":  perPage,
	})
}

// Dashboard は GET /api/dashboard のハンドラーです。
func (h *Handlers) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := h.store.MonthlyStats(ctx)
	if err != nil {
		h.internalError(c, "Failed to aggregate dashboard stats", err)
		return
	}
	recent, err := h.store.Recent(ctx, 10)
	if err != nil {
		h.internalError(c, "Failed to get recent visitors", err)
		return
	}
	if recent == nil {
		recent = []Visitor{}
	}

	session := auth.SessionFromContext(c)
	errorMsg, successMsg := flash.Take(c)
	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"name":     session.Name,
			"username": session.Username,
			"email":    session.Email,
		},
		"stats":          stats,
		"recent":         recent,
		"errorMessage":   errorMsg,
		"successMessage": successMsg,
	})
}

func (h *Handlers) internalError(c *gin.Context, message string, err error) {
	h.audit.Error(message, map[string]any{"error": err.Error()})
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "System error. Please try again later.",
	})
}

func visitorFromForm(c *gin.Context) *Visitor {
	return &Visitor{
		Name:        strings.TrimSpace(c.PostForm("name")),
		Date:        strings.TrimSpace(c.PostForm("date")),
		Time:        strings.TrimSpace(c.PostForm("time")),
		Reason:      strings.TrimSpace(c.PostForm("reason")),
		ActionTaken: strings.TrimSpace(c.PostForm("action")),
	}
}

func firstFieldError(fields map[string]string) string {
	// 表示順を安定させるためフィールドの定義順で選ぶ
	for _, field := range []string{"name", "date", "time", "reason", "action"} {
		if msg, ok := fields[field]; ok {
			return msg
		}
	}
	return "Invalid input"
}

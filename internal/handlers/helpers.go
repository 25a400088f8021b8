package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"partnerpipeline/internal/authz"
	"partnerpipeline/internal/models"
)

// более устойчиво к типам (int / int64 / float64 / string)
func getIntFromCtx(c *gin.Context, key string) (int, bool) {
	v, ok := c.Get(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n, true
		}
	}
	return 0, false
}

func getUserAndRole(c *gin.Context) (userID string, roleID int) {
	if v, ok := c.Get("user_id"); ok {
		userID, _ = v.(string)
	}
	if id, ok := getIntFromCtx(c, "role_id"); ok {
		roleID = id
	}
	return
}

// canTouch reports whether the caller may change o: elevated roles may change
// any opportunity, sales only the ones assigned to them.
func canTouch(o *models.Opportunity, userID string, roleID int) bool {
	if !authz.Can(roleID, authz.ActionEdit) {
		return false
	}
	return authz.IsElevated(roleID) || o.AssignedTo == userID
}

// canSee mirrors canTouch for reads; audit sees everything.
func canSee(o *models.Opportunity, userID string, roleID int) bool {
	return canSeeAssigned(o.AssignedTo, userID, roleID)
}

func canSeeAssigned(assignedTo, userID string, roleID int) bool {
	return authz.IsElevated(roleID) || roleID == authz.RoleAudit || assignedTo == userID
}

// разносим типовые ошибки в статус-коды
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrUnknownStage):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrStaleStage), errors.Is(err, models.ErrAlreadyExists), errors.Is(err, models.ErrClosed):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

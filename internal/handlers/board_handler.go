package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"partnerpipeline/internal/models"
	"partnerpipeline/internal/realtime"
	"partnerpipeline/internal/services"
)

type BoardHandler struct {
	Hub     *realtime.BoardHub
	Service *services.OpportunityService
}

func NewBoardHandler(hub *realtime.BoardHub, service *services.OpportunityService) *BoardHandler {
	return &BoardHandler{Hub: hub, Service: service}
}

// @Summary  Kanban board socket
// @Tags     Pipeline
// @Param    user_id  query  string  false  "caller id when headers are unavailable"
// @Param    role_id  query  int     false  "caller role when headers are unavailable"
// @Router   /board/ws [get]
func (h *BoardHandler) Connect(c *gin.Context) {
	userID, roleID := getUserAndRole(c)
	visible := func(ev models.StageChangeEvent) bool { return canSeeAssigned(ev.AssignedTo, userID, roleID) }
	h.Hub.Serve(c.Writer, c.Request, userID, &ownedMover{service: h.Service, userID: userID, roleID: roleID}, visible)
}

// ownedMover applies the REST ownership rule to moves made on the board.
type ownedMover struct {
	service *services.OpportunityService
	userID  string
	roleID  int
}

func (m *ownedMover) MoveStage(ctx context.Context, id string, req services.StageMoveRequest, rollback services.RollbackFunc) (*models.Opportunity, models.ValidationResult, error) {
	o, err := m.service.Get(ctx, id)
	if err != nil {
		return nil, models.ValidationResult{}, err
	}
	if !canTouch(o, m.userID, m.roleID) {
		return nil, models.ValidationResult{}, fmt.Errorf("move %s: %w", id, models.ErrForbidden)
	}
	req.Actor = m.userID
	return m.service.MoveStage(ctx, id, req, rollback)
}

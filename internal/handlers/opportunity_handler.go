package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"partnerpipeline/internal/authz"
	"partnerpipeline/internal/models"
	"partnerpipeline/internal/services"
)

type OpportunityHandler struct {
	Service *services.OpportunityService
	log     *logrus.Logger
}

func NewOpportunityHandler(service *services.OpportunityService, log *logrus.Logger) *OpportunityHandler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &OpportunityHandler{Service: service, log: log}
}

type CreateOpportunityRequest struct {
	Title             string          `json:"title" binding:"required" example:"Acme platform rollout"`
	Description       string          `json:"description"`
	Customer          models.Customer `json:"customer"`
	PartnerID         string          `json:"partnerId"`
	PartnerName       string          `json:"partnerName"`
	Value             float64         `json:"value" binding:"gte=0" example:"250000"`
	Currency          string          `json:"currency" example:"USD"`
	DealType          models.DealType `json:"dealType" binding:"required" example:"new_business"`
	AssignedTo        string          `json:"assignedTo"`
	AssignedToName    string          `json:"assignedToName"`
	Priority          models.Priority `json:"priority" example:"medium"`
	ExpectedCloseDate *time.Time      `json:"expectedCloseDate"`
}

// @Summary      Create opportunity
// @Description  Creates an opportunity in the lead stage
// @Tags         Opportunities
// @Accept       json
// @Produce      json
// @Param        opportunity  body      CreateOpportunityRequest  true  "Opportunity"
// @Success      201          {object}  models.Opportunity
// @Failure      400          {object}  map[string]string
// @Router       /opportunities [post]
func (h *OpportunityHandler) Create(c *gin.Context) {
	var req CreateOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, roleID := getUserAndRole(c)
	// sales создаёт сделки только на себя
	if req.AssignedTo == "" || !authz.IsElevated(roleID) {
		req.AssignedTo = userID
	}

	o, err := h.Service.Create(c.Request.Context(), services.NewOpportunityInput{
		Title:             req.Title,
		Description:       req.Description,
		Customer:          req.Customer,
		PartnerID:         req.PartnerID,
		PartnerName:       req.PartnerName,
		Value:             req.Value,
		Currency:          req.Currency,
		DealType:          req.DealType,
		AssignedTo:        req.AssignedTo,
		AssignedToName:    req.AssignedToName,
		Priority:          req.Priority,
		ExpectedCloseDate: req.ExpectedCloseDate,
	}, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary  List opportunities
// @Tags     Opportunities
// @Produce  json
// @Param    stage        query  string  false  "Stage id"
// @Param    status       query  string  false  "Status"
// @Param    assigned_to  query  string  false  "Assignee"
// @Param    partner_id   query  string  false  "Partner"
// @Success  200  {array}  models.Opportunity
// @Router   /opportunities [get]
func (h *OpportunityHandler) List(c *gin.Context) {
	var filter models.OpportunityFilter
	if v := c.Query("stage"); v != "" {
		s := models.StageID(v)
		filter.Stage = &s
	}
	if v := c.Query("status"); v != "" {
		s := models.Status(v)
		filter.Status = &s
	}
	if v := c.Query("assigned_to"); v != "" {
		filter.AssignedTo = &v
	}
	if v := c.Query("partner_id"); v != "" {
		filter.PartnerID = &v
	}
	userID, roleID := getUserAndRole(c)
	if !authz.IsElevated(roleID) && roleID != authz.RoleAudit {
		filter.AssignedTo = &userID
	}

	opps, err := h.Service.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, opps)
}

func (h *OpportunityHandler) GetByID(c *gin.Context) {
	userID, roleID := getUserAndRole(c)
	o, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !canSee(o, userID, roleID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, o)
}

type UpdateOpportunityRequest struct {
	Title             *string          `json:"title"`
	Description       *string          `json:"description"`
	Value             *float64         `json:"value" binding:"omitempty,gte=0"`
	AssignedTo        *string          `json:"assignedTo"`
	AssignedToName    *string          `json:"assignedToName"`
	Priority          *models.Priority `json:"priority"`
	ExpectedCloseDate *time.Time       `json:"expectedCloseDate"`
}

func (h *OpportunityHandler) Update(c *gin.Context) {
	id := c.Param("id")
	userID, roleID := getUserAndRole(c)
	if !h.authorize(c, id, userID, roleID) {
		return
	}

	var req UpdateOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// переназначать может только elevated
	if !authz.IsElevated(roleID) {
		req.AssignedTo = nil
		req.AssignedToName = nil
	}

	o, err := h.Service.Update(c.Request.Context(), id, services.UpdateOpportunityInput{
		Title:             req.Title,
		Description:       req.Description,
		Value:             req.Value,
		AssignedTo:        req.AssignedTo,
		AssignedToName:    req.AssignedToName,
		Priority:          req.Priority,
		ExpectedCloseDate: req.ExpectedCloseDate,
	}, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type ValidateStageRequest struct {
	Stage      models.StageID `json:"stage" binding:"required" example:"demo"`
	LostReason string         `json:"lostReason"`
}

// @Summary      Validate stage change
// @Description  Checks whether the opportunity may enter the stage and lists missing fields
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "Opportunity id"
// @Param        body  body      ValidateStageRequest  true  "Target stage"
// @Success      200   {object}  models.ValidationResult
// @Router       /opportunities/{id}/stage/validate [post]
func (h *OpportunityHandler) ValidateStage(c *gin.Context) {
	var req ValidateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID, roleID := getUserAndRole(c)
	o, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !canSee(o, userID, roleID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	result, err := h.Service.ValidateStage(c.Request.Context(), o.ID, req.Stage, req.LostReason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type MoveStageRequest struct {
	Stage         models.StageID `json:"stage" binding:"required" example:"closed_won"`
	PreviousStage models.StageID `json:"previousStage" example:"proposal"`
	LostReason    string         `json:"lostReason"`
	// Probability и UpdatedAt приходят от канбана, сервер пересчитывает сам
	Probability *float64   `json:"probability"`
	UpdatedAt   *time.Time `json:"updatedAt"`
}

// @Summary      Move opportunity to a stage
// @Tags         Pipeline
// @Accept       json
// @Produce      json
// @Param        id    path      string            true  "Opportunity id"
// @Param        body  body      MoveStageRequest  true  "Stage change"
// @Success      200   {object}  models.Opportunity
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  models.ValidationResult
// @Router       /opportunities/{id}/stage [patch]
func (h *OpportunityHandler) MoveStage(c *gin.Context) {
	id := c.Param("id")
	userID, roleID := getUserAndRole(c)
	if !h.authorize(c, id, userID, roleID) {
		return
	}

	var req MoveStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	o, result, err := h.Service.MoveStage(c.Request.Context(), id, services.StageMoveRequest{
		Target:        req.Stage,
		PreviousStage: req.PreviousStage,
		LostReason:    req.LostReason,
		Actor:         userID,
	}, nil)
	if err != nil {
		writeError(c, err)
		return
	}
	if !result.IsValid {
		c.JSON(http.StatusUnprocessableEntity, result)
		return
	}
	c.JSON(http.StatusOK, o)
}

type AddNoteRequest struct {
	Content string `json:"content" binding:"required"`
}

func (h *OpportunityHandler) AddNote(c *gin.Context) {
	id := c.Param("id")
	userID, roleID := getUserAndRole(c)
	if !h.authorize(c, id, userID, roleID) {
		return
	}
	var req AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	o, err := h.Service.AddNote(c.Request.Context(), id, req.Content, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

type HoldRequest struct {
	Reason string `json:"reason"`
}

func (h *OpportunityHandler) Hold(c *gin.Context) {
	id := c.Param("id")
	userID, roleID := getUserAndRole(c)
	if !h.authorize(c, id, userID, roleID) {
		return
	}
	var req HoldRequest
	// тело необязательное
	_ = c.ShouldBindJSON(&req)
	o, err := h.Service.Hold(c.Request.Context(), id, req.Reason, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *OpportunityHandler) Resume(c *gin.Context) {
	id := c.Param("id")
	userID, roleID := getUserAndRole(c)
	if !h.authorize(c, id, userID, roleID) {
		return
	}
	o, err := h.Service.Resume(c.Request.Context(), id, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// authorize loads the opportunity and answers 404/403 itself when the caller
// may not change it.
func (h *OpportunityHandler) authorize(c *gin.Context, id, userID string, roleID int) bool {
	current, err := h.Service.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return false
	}
	if !canTouch(current, userID, roleID) {
		h.log.WithFields(logrus.Fields{"id": id, "user": userID, "role": roleID}).Info("[opportunity][deny]")
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return false
	}
	return true
}

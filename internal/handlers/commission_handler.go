package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"partnerpipeline/internal/models"
	"partnerpipeline/internal/services"
)

type CommissionHandler struct {
	Resolver   *services.CommissionResolver
	Agreements map[string]models.CommissionRule
}

func NewCommissionHandler(resolver *services.CommissionResolver, agreements map[string]models.CommissionRule) *CommissionHandler {
	if resolver == nil {
		resolver = services.NewCommissionResolver(nil)
	}
	return &CommissionHandler{Resolver: resolver, Agreements: agreements}
}

// ResolveCommissionRequest selects one of three sources, in order: an inline
// rule, a configured partner agreement, or the flat deal-type rate.
type ResolveCommissionRequest struct {
	Value     float64                `json:"value" binding:"gte=0"`
	DealType  models.DealType        `json:"dealType"`
	PartnerID string                 `json:"partnerId"`
	Rule      *models.CommissionRule `json:"rule"`
}

type ResolveCommissionResponse struct {
	models.Commission
	Source string `json:"source"`
}

// @Summary  Resolve commission
// @Tags     Commission
// @Accept   json
// @Produce  json
// @Param    body  body      ResolveCommissionRequest  true  "deal"
// @Success  200   {object}  ResolveCommissionResponse
// @Router   /commission/resolve [post]
func (h *CommissionHandler) Resolve(c *gin.Context) {
	var req ResolveCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	switch {
	case req.Rule != nil:
		c.JSON(http.StatusOK, ResolveCommissionResponse{
			Commission: services.ResolveAgreementCommission(req.Value, *req.Rule),
			Source:     "rule",
		})
	case req.PartnerID != "":
		rule, ok := h.Agreements[req.PartnerID]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no agreement for partner"})
			return
		}
		c.JSON(http.StatusOK, ResolveCommissionResponse{
			Commission: services.ResolveAgreementCommission(req.Value, rule),
			Source:     "agreement",
		})
	case req.DealType != "":
		if _, ok := h.Resolver.Rate(req.DealType); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown deal type"})
			return
		}
		c.JSON(http.StatusOK, ResolveCommissionResponse{
			Commission: h.Resolver.ResolveCommission(req.Value, req.DealType),
			Source:     "deal_type",
		})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "dealType, partnerId or rule required"})
	}
}

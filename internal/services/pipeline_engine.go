package services

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"partnerpipeline/internal/models"
)

// Engine validates and applies stage transitions and keeps the derived
// fields of an opportunity consistent. It holds no mutable state.
// DefaultCurrency is used when neither the caller nor the config names one.
const DefaultCurrency = "USD"

type Engine struct {
	catalog    *StageCatalog
	commission *CommissionResolver
}

func NewEngine(catalog *StageCatalog, commission *CommissionResolver) *Engine {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if commission == nil {
		commission = NewCommissionResolver(nil)
	}
	return &Engine{catalog: catalog, commission: commission}
}

func (e *Engine) Catalog() *StageCatalog { return e.catalog }

func (e *Engine) Commission() *CommissionResolver { return e.commission }

// NewOpportunityInput carries the user-editable fields of a new opportunity.
type NewOpportunityInput struct {
	Title             string
	Description       string
	Customer          models.Customer
	PartnerID         string
	PartnerName       string
	Value             float64
	Currency          string
	DealType          models.DealType
	AssignedTo        string
	AssignedToName    string
	Priority          models.Priority
	ExpectedCloseDate *time.Time
}

// NewOpportunity builds a lead-stage record with a "created" history entry.
// It does not check required fields; callers do that against the lead stage.
func (e *Engine) NewOpportunity(in NewOpportunityInput, actor string, now time.Time) *models.Opportunity {
	o := &models.Opportunity{
		ID:             uuid.NewString(),
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Customer:       in.Customer,
		PartnerID:      in.PartnerID,
		PartnerName:    in.PartnerName,
		Value:          in.Value,
		Currency:       in.Currency,
		Stage:          models.StageLead,
		DealType:       in.DealType,
		AssignedTo:     in.AssignedTo,
		AssignedToName: in.AssignedToName,
		Priority:       in.Priority,
		Status:         models.StatusActive,
		CreatedDate:    now,
		LastUpdated:    now,
		Notes:          []models.Note{},
	}
	if in.ExpectedCloseDate != nil {
		t := *in.ExpectedCloseDate
		o.ExpectedCloseDate = &t
	}
	if o.Currency == "" {
		o.Currency = DefaultCurrency
	}
	if o.Priority == "" {
		o.Priority = models.PriorityMedium
	}
	if lead, err := e.catalog.GetStage(models.StageLead); err == nil {
		o.Probability = lead.Probability
	}
	c := e.commission.ResolveCommission(o.Value, o.DealType)
	o.CommissionRate = c.Rate
	o.History = models.NewHistoryLog(models.HistoryEntry{
		Action:    models.ActionCreated,
		Timestamp: now,
		Actor:     actor,
		Details:   map[string]string{"stage": string(models.StageLead)},
	})
	return e.RecomputeDerived(o, now)
}

// ValidateTransition checks whether o may move to target. It never mutates o.
func (e *Engine) ValidateTransition(o *models.Opportunity, target models.StageID) models.ValidationResult {
	dst, err := e.catalog.GetStage(target)
	if err != nil {
		return models.ValidationResult{Reason: models.ReasonUnknownStage, MissingFields: []string{}}
	}
	src, err := e.catalog.GetStage(o.Stage)
	if err != nil {
		return models.ValidationResult{Reason: models.ReasonUnknownStage, MissingFields: []string{}}
	}
	if !src.AllowsNext(target) {
		return models.ValidationResult{Reason: models.ReasonIllegalTransition, MissingFields: []string{}}
	}
	if missing := e.catalog.MissingRequiredFields(o, target); len(missing) > 0 {
		return models.ValidationResult{
			Reason:        models.ReasonMissingFields,
			MissingFields: missing,
			Checklist:     dst.Checklist,
		}
	}
	return models.ValidationResult{IsValid: true, MissingFields: []string{}, Checklist: dst.Checklist}
}

// ApplyTransition moves o to target and returns the new record. It assumes the
// move was validated first and never fails; o is left untouched.
func (e *Engine) ApplyTransition(o *models.Opportunity, target models.StageID, actor string, now time.Time) *models.Opportunity {
	next := o.Clone()
	from := next.Stage

	next.Stage = target
	if stage, err := e.catalog.GetStage(target); err == nil {
		next.Probability = stage.Probability
	}
	next.Status = models.StatusForStage(target)
	if target.IsClosed() {
		t := now
		next.ActualCloseDate = &t
	} else {
		next.ActualCloseDate = nil
	}
	next.LastUpdated = now
	next.History = next.History.Append(models.HistoryEntry{
		Action:    models.ActionStageChanged,
		Timestamp: now,
		Actor:     actor,
		Details: map[string]string{
			"fromStage": string(from),
			"toStage":   string(target),
		},
	})
	return e.RecomputeDerived(next, now)
}

// RecomputeDerived refreshes weightedValue, estimatedCommission, isOverdue and
// daysInStage from the primary fields of o.
func (e *Engine) RecomputeDerived(o *models.Opportunity, now time.Time) *models.Opportunity {
	next := o.Clone()
	next.WeightedValue = WeightedValue(next.Value, next.Probability)
	next.EstimatedCommission = CommissionAmount(next.Value, next.CommissionRate)
	next.IsOverdue = next.ExpectedCloseDate != nil && now.After(*next.ExpectedCloseDate) && !next.Stage.IsClosed()
	next.DaysInStage = DaysInStage(next, now)
	return next
}

// WeightedValue is value scaled by a percent probability.
func WeightedValue(value, probability float64) float64 {
	return value * probability / 100
}

// DaysInStage counts whole days since the latest stage change (or creation).
func DaysInStage(o *models.Opportunity, now time.Time) int {
	anchor := o.CreatedDate
	if e, ok := o.History.Latest(models.ActionStageChanged, models.ActionCreated); ok {
		anchor = e.Timestamp
	}
	return wholeDays(anchor, now)
}

func wholeDays(from, to time.Time) int {
	if from.IsZero() || !to.After(from) {
		return 0
	}
	return int(math.Floor(to.Sub(from).Hours() / 24))
}

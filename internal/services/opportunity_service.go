package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"partnerpipeline/internal/models"
	"partnerpipeline/internal/repositories"
)

// StageChangePublisher is notified after a stage move has been committed.
type StageChangePublisher interface {
	PublishStageChange(ev models.StageChangeEvent)
}

// RollbackFunc receives the record that remains authoritative after a failed commit.
type RollbackFunc func(prior *models.Opportunity)

// UpdateOpportunityInput lists the fields editable outside a stage transition.
// Nil fields are left unchanged.
type UpdateOpportunityInput struct {
	Title             *string
	Description       *string
	Value             *float64
	AssignedTo        *string
	AssignedToName    *string
	Priority          *models.Priority
	ExpectedCloseDate *time.Time
}

// StageMoveRequest asks for a stage change. PreviousStage, when set, must
// match the stored stage; LostReason is applied before validation so that a
// closed_lost move can be completed in one call.
type StageMoveRequest struct {
	Target        models.StageID
	PreviousStage models.StageID
	LostReason    string
	Actor         string
}

type OpportunityService struct {
	repo       repositories.OpportunityRepository
	engine     *Engine
	forecaster *Forecaster
	publisher  StageChangePublisher
	log        *logrus.Logger
	now        func() time.Time
	currency   string
}

func NewOpportunityService(repo repositories.OpportunityRepository, engine *Engine, log *logrus.Logger) *OpportunityService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &OpportunityService{
		repo:       repo,
		engine:     engine,
		forecaster: NewForecaster(engine.Catalog()),
		log:        log,
		now:        time.Now,
		currency:   DefaultCurrency,
	}
}

// SetPublisher registers the receiver of committed stage changes.
func (s *OpportunityService) SetPublisher(p StageChangePublisher) { s.publisher = p }

// SetCurrency sets the one currency the pipeline accepts and reports in.
func (s *OpportunityService) SetCurrency(code string) {
	if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
		s.currency = code
	}
}

func (s *OpportunityService) Currency() string { return s.currency }

// SetClock replaces the time source.
func (s *OpportunityService) SetClock(now func() time.Time) { s.now = now }

func (s *OpportunityService) Engine() *Engine { return s.engine }

func (s *OpportunityService) Forecaster() *Forecaster { return s.forecaster }

func (s *OpportunityService) Create(ctx context.Context, in NewOpportunityInput, actor string) (*models.Opportunity, error) {
	if !finite(in.Value) || in.Value < 0 {
		return nil, fmt.Errorf("%w: value must be a non-negative number", models.ErrInvalidInput)
	}
	// forecasts add values up, so every deal shares one currency
	switch code := strings.ToUpper(strings.TrimSpace(in.Currency)); code {
	case "":
		in.Currency = s.currency
	case s.currency:
		in.Currency = code
	default:
		return nil, fmt.Errorf("%w: currency %s, pipeline reports in %s", models.ErrInvalidInput, code, s.currency)
	}
	if _, ok := s.engine.Commission().Rate(in.DealType); !ok {
		return nil, fmt.Errorf("%w: unknown deal type %q", models.ErrInvalidInput, in.DealType)
	}
	o := s.engine.NewOpportunity(in, actor, s.now())
	if missing := s.engine.Catalog().MissingRequiredFields(o, models.StageLead); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", models.ErrInvalidInput, strings.Join(missing, ", "))
	}
	if err := s.repo.Store(ctx, o); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"id": o.ID, "actor": actor, "value": o.Value}).Info("[opportunity][create] ok")
	return o, nil
}

// Get returns the record with derived fields refreshed to the current time.
func (s *OpportunityService) Get(ctx context.Context, id string) (*models.Opportunity, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.engine.RecomputeDerived(o, s.now()), nil
}

func (s *OpportunityService) List(ctx context.Context, filter models.OpportunityFilter) ([]*models.Opportunity, error) {
	opps, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for i, o := range opps {
		opps[i] = s.engine.RecomputeDerived(o, now)
	}
	return opps, nil
}

// Update applies field edits that bypass stage validation and recomputes the
// derived fields. Value and assignee changes are recorded in the history.
func (s *OpportunityService) Update(ctx context.Context, id string, in UpdateOpportunityInput, actor string) (*models.Opportunity, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	next := current.Clone()

	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, fmt.Errorf("%w: title cannot be empty", models.ErrInvalidInput)
		}
		next.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		next.Description = *in.Description
	}
	if in.Value != nil && *in.Value != current.Value {
		if !finite(*in.Value) || *in.Value < 0 {
			return nil, fmt.Errorf("%w: value must be a non-negative number", models.ErrInvalidInput)
		}
		next.Value = *in.Value
		next.History = next.History.Append(models.HistoryEntry{
			Action:    models.ActionValueChanged,
			Timestamp: now,
			Actor:     actor,
			Details: map[string]string{
				"from": formatAmount(current.Value),
				"to":   formatAmount(next.Value),
			},
		})
	}
	if in.AssignedTo != nil && *in.AssignedTo != current.AssignedTo {
		next.AssignedTo = *in.AssignedTo
		next.History = next.History.Append(models.HistoryEntry{
			Action:    models.ActionAssigned,
			Timestamp: now,
			Actor:     actor,
			Details:   map[string]string{"from": current.AssignedTo, "to": next.AssignedTo},
		})
	}
	if in.AssignedToName != nil {
		next.AssignedToName = *in.AssignedToName
	}
	if in.Priority != nil {
		switch *in.Priority {
		case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityCritical:
			next.Priority = *in.Priority
		default:
			return nil, fmt.Errorf("%w: unknown priority %q", models.ErrInvalidInput, *in.Priority)
		}
	}
	if in.ExpectedCloseDate != nil {
		t := *in.ExpectedCloseDate
		next.ExpectedCloseDate = &t
	}
	next.LastUpdated = now
	next = s.engine.RecomputeDerived(next, now)

	if err := s.repo.Update(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// ValidateStage runs the transition check against the stored record.
func (s *OpportunityService) ValidateStage(ctx context.Context, id string, target models.StageID, lostReason string) (models.ValidationResult, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return models.ValidationResult{}, err
	}
	if lostReason != "" {
		o.LostReason = lostReason
	}
	return s.engine.ValidateTransition(o, target), nil
}

// MoveStage validates, applies and commits a stage change. A failed validation
// is reported through the result with a nil record and nil error. When the
// commit fails the stored record stays as it was and rollback, if given,
// receives that prior record.
func (s *OpportunityService) MoveStage(ctx context.Context, id string, req StageMoveRequest, rollback RollbackFunc) (*models.Opportunity, models.ValidationResult, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, models.ValidationResult{}, err
	}
	if req.PreviousStage != "" && req.PreviousStage != current.Stage {
		return nil, models.ValidationResult{}, fmt.Errorf("move %s from %s: %w (stored stage is %s)",
			id, req.PreviousStage, models.ErrStaleStage, current.Stage)
	}

	candidate := current.Clone()
	if req.LostReason != "" {
		candidate.LostReason = req.LostReason
	}
	result := s.engine.ValidateTransition(candidate, req.Target)
	if !result.IsValid {
		s.log.WithFields(logrus.Fields{
			"id": id, "from": current.Stage, "to": req.Target,
			"reason": result.Reason, "missing": result.MissingFields,
		}).Info("[opportunity][stage][reject]")
		return nil, result, nil
	}

	now := s.now()
	next := s.engine.ApplyTransition(candidate, req.Target, req.Actor, now)
	if err := s.repo.Update(ctx, next); err != nil {
		s.log.WithFields(logrus.Fields{"id": id, "from": current.Stage, "to": req.Target}).
			WithError(err).Error("[opportunity][stage][commit][err] rolling back")
		if rollback != nil {
			rollback(s.authoritative(ctx, current, err))
		}
		return nil, result, fmt.Errorf("commit stage change: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"id": id, "from": current.Stage, "to": next.Stage, "actor": req.Actor,
		"probability": next.Probability, "weighted": next.WeightedValue,
	}).Info("[opportunity][stage] ok")
	if s.publisher != nil {
		s.publisher.PublishStageChange(models.StageChangeEvent{
			OpportunityID: next.ID,
			FromStage:     current.Stage,
			ToStage:       next.Stage,
			Actor:         req.Actor,
			AssignedTo:    next.AssignedTo,
			Probability:   next.Probability,
			WeightedValue: next.WeightedValue,
			Status:        next.Status,
		})
	}
	return next, result, nil
}

// authoritative picks the record a rollback should restore: the copy that
// was read, or the newer stored one when another writer got in first.
func (s *OpportunityService) authoritative(ctx context.Context, read *models.Opportunity, commitErr error) *models.Opportunity {
	if errors.Is(commitErr, models.ErrStaleStage) {
		if fresh, err := s.repo.FindByID(ctx, read.ID); err == nil {
			return s.engine.RecomputeDerived(fresh, s.now())
		}
	}
	return read.Clone()
}

func (s *OpportunityService) AddNote(ctx context.Context, id, content, actor string) (*models.Opportunity, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: note content is empty", models.ErrInvalidInput)
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	next := current.Clone()
	next.Notes = append(next.Notes, models.Note{Content: content, Author: actor, Timestamp: now})
	next.History = next.History.Append(models.HistoryEntry{Action: models.ActionNoteAdded, Timestamp: now, Actor: actor})
	next.LastUpdated = now
	next = s.engine.RecomputeDerived(next, now)
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Hold parks an active opportunity; it drops out of every forecast until resumed.
func (s *OpportunityService) Hold(ctx context.Context, id, reason, actor string) (*models.Opportunity, error) {
	return s.setHold(ctx, id, true, reason, actor)
}

func (s *OpportunityService) Resume(ctx context.Context, id, actor string) (*models.Opportunity, error) {
	return s.setHold(ctx, id, false, "", actor)
}

func (s *OpportunityService) setHold(ctx context.Context, id string, hold bool, reason, actor string) (*models.Opportunity, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Stage.IsClosed() {
		return nil, fmt.Errorf("hold %s: %w", id, models.ErrClosed)
	}
	action := models.ActionPutOnHold
	next := current.Clone()
	if hold {
		if current.Status == models.StatusOnHold {
			return nil, fmt.Errorf("%w: already on hold", models.ErrInvalidInput)
		}
		next.Status = models.StatusOnHold
	} else {
		if current.Status != models.StatusOnHold {
			return nil, fmt.Errorf("%w: not on hold", models.ErrInvalidInput)
		}
		action = models.ActionResumed
		next.Status = models.StatusForStage(current.Stage)
	}
	now := s.now()
	var details map[string]string
	if reason != "" {
		details = map[string]string{"reason": reason}
	}
	next.History = next.History.Append(models.HistoryEntry{Action: action, Timestamp: now, Actor: actor, Details: details})
	next.LastUpdated = now
	next = s.engine.RecomputeDerived(next, now)
	if err := s.repo.Update(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Forecast refreshes every record and builds the dashboard report.
func (s *OpportunityService) Forecast(ctx context.Context) (models.ForecastReport, error) {
	opps, err := s.List(ctx, models.OpportunityFilter{})
	if err != nil {
		return models.ForecastReport{}, err
	}
	return s.forecaster.Dashboard(opps, s.now()), nil
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

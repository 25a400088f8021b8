package models

import "time"

// DealType drives the default commission rate of an opportunity.
type DealType string

const (
	DealNewBusiness DealType = "new_business"
	DealExpansion   DealType = "expansion"
	DealRenewal     DealType = "renewal"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Status is derived from the stage, except for on_hold which is set explicitly.
type Status string

const (
	StatusActive Status = "active"
	StatusWon    Status = "won"
	StatusLost   Status = "lost"
	StatusOnHold Status = "on_hold"
)

// StatusForStage returns the status an opportunity has in the given stage.
func StatusForStage(id StageID) Status {
	switch id {
	case StageClosedWon:
		return StatusWon
	case StageClosedLost:
		return StatusLost
	default:
		return StatusActive
	}
}

type Customer struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

type Note struct {
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// Opportunity is a deal moving through the partner pipeline.
type Opportunity struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Customer    Customer `json:"customer"`
	PartnerID   string   `json:"partnerId"`
	PartnerName string   `json:"partnerName"`

	Value               float64  `json:"value"`
	Currency            string   `json:"currency"`
	Stage               StageID  `json:"stage"`
	Probability         float64  `json:"probability"`
	WeightedValue       float64  `json:"weightedValue"`
	DealType            DealType `json:"dealType"`
	CommissionRate      float64  `json:"commissionRate"`
	EstimatedCommission float64  `json:"estimatedCommission"`

	AssignedTo     string   `json:"assignedTo"`
	AssignedToName string   `json:"assignedToName"`
	Priority       Priority `json:"priority"`
	Status         Status   `json:"status"`
	LostReason     string   `json:"lostReason"`

	ExpectedCloseDate *time.Time `json:"expectedCloseDate,omitempty"`
	ActualCloseDate   *time.Time `json:"actualCloseDate,omitempty"`
	CreatedDate       time.Time  `json:"createdDate"`
	LastUpdated       time.Time  `json:"lastUpdated"`

	DaysInStage int  `json:"daysInStage"`
	IsOverdue   bool `json:"isOverdue"`

	History HistoryLog `json:"history"`
	Notes   []Note     `json:"notes"`

	// Version counts committed writes; the store rejects updates built from an older copy.
	Version int `json:"version"`
}

// Clone returns a copy that shares no mutable state with o.
func (o *Opportunity) Clone() *Opportunity {
	if o == nil {
		return nil
	}
	c := *o
	if o.ExpectedCloseDate != nil {
		t := *o.ExpectedCloseDate
		c.ExpectedCloseDate = &t
	}
	if o.ActualCloseDate != nil {
		t := *o.ActualCloseDate
		c.ActualCloseDate = &t
	}
	if o.Notes != nil {
		c.Notes = append([]Note(nil), o.Notes...)
	}
	return &c
}

func (o *Opportunity) IsActive() bool {
	return o.Status == StatusActive
}

// OpportunityFilter narrows List results. Nil fields match everything.
type OpportunityFilter struct {
	Stage      *StageID
	Status     *Status
	AssignedTo *string
	PartnerID  *string
}

// Matches reports whether o satisfies every set field of f.
func (f OpportunityFilter) Matches(o *Opportunity) bool {
	if f.Stage != nil && o.Stage != *f.Stage {
		return false
	}
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.AssignedTo != nil && o.AssignedTo != *f.AssignedTo {
		return false
	}
	if f.PartnerID != nil && o.PartnerID != *f.PartnerID {
		return false
	}
	return true
}

package services

import (
	"fmt"
	"sort"

	"partnerpipeline/internal/models"
)

// StageCatalog is a read-only, keyed view of the pipeline stages.
type StageCatalog struct {
	stages  map[models.StageID]models.Stage
	ordered []models.StageID
}

// NewStageCatalog checks that ids are unique and that every successor refers
// to a stage of the same catalog.
func NewStageCatalog(stages []models.Stage) (*StageCatalog, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: catalog has no stages", models.ErrInvalidInput)
	}
	c := &StageCatalog{stages: make(map[models.StageID]models.Stage, len(stages))}
	for _, s := range stages {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: stage without id", models.ErrInvalidInput)
		}
		if _, dup := c.stages[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate stage %q", models.ErrInvalidInput, s.ID)
		}
		if s.Probability < 0 || s.Probability > 100 {
			return nil, fmt.Errorf("%w: stage %q probability %.2f out of range", models.ErrInvalidInput, s.ID, s.Probability)
		}
		c.stages[s.ID] = copyStage(s)
		c.ordered = append(c.ordered, s.ID)
	}
	for _, s := range stages {
		for _, next := range s.AllowedNextStages {
			if _, ok := c.stages[next]; !ok {
				return nil, fmt.Errorf("%w: stage %q allows unknown successor %q", models.ErrUnknownStage, s.ID, next)
			}
		}
	}
	sort.SliceStable(c.ordered, func(i, j int) bool {
		return c.stages[c.ordered[i]].Order < c.stages[c.ordered[j]].Order
	})
	return c, nil
}

var (
	leadFields     = []string{"title", "customer.name", "customer.company", "customer.email"}
	demoFields     = append(append([]string{}, leadFields...), "customer.phone")
	pocFields      = append(append([]string{}, demoFields...), "expectedCloseDate")
	proposalFields = append(append([]string{}, pocFields...), "assignedTo")
)

// DefaultStages returns a fresh copy of the six-stage partner pipeline.
func DefaultStages() []models.Stage {
	return []models.Stage{
		{
			ID: models.StageLead, Name: "Lead", Order: 0, Probability: 10, Color: "#94a3b8",
			AllowedNextStages: []models.StageID{models.StageDemo, models.StageClosedLost},
			RequiredFields:    append([]string{}, leadFields...),
			Checklist:         []string{"Qualify budget and timeline", "Identify decision maker"},
			Benchmark:         models.StageBenchmark{TargetDays: 7, WarningDays: 14, CriticalDays: 21},
		},
		{
			ID: models.StageDemo, Name: "Demo", Order: 1, Probability: 25, Color: "#3b82f6",
			AllowedNextStages: []models.StageID{models.StagePOC, models.StageClosedLost},
			RequiredFields:    append([]string{}, demoFields...),
			Checklist:         []string{"Schedule product demo", "Confirm attendees"},
			Benchmark:         models.StageBenchmark{TargetDays: 14, WarningDays: 21, CriticalDays: 30},
		},
		{
			ID: models.StagePOC, Name: "Proof of Concept", Order: 2, Probability: 50, Color: "#8b5cf6",
			AllowedNextStages: []models.StageID{models.StageProposal, models.StageClosedLost},
			RequiredFields:    append([]string{}, pocFields...),
			Checklist:         []string{"Agree success criteria", "Provision trial environment"},
			Benchmark:         models.StageBenchmark{TargetDays: 30, WarningDays: 40, CriticalDays: 50},
		},
		{
			ID: models.StageProposal, Name: "Proposal", Order: 3, Probability: 75, Color: "#f59e0b",
			AllowedNextStages: []models.StageID{models.StageClosedWon, models.StageClosedLost},
			RequiredFields:    append([]string{}, proposalFields...),
			Checklist:         []string{"Send pricing proposal", "Review legal terms"},
			Benchmark:         models.StageBenchmark{TargetDays: 21, WarningDays: 30, CriticalDays: 42},
		},
		{
			ID: models.StageClosedWon, Name: "Closed Won", Order: 4, Probability: 100, Color: "#22c55e",
			AllowedNextStages: []models.StageID{},
			RequiredFields:    []string{"customer.company", "customer.email"},
			Checklist:         []string{"Collect signed contract", "Hand over to onboarding"},
		},
		{
			ID: models.StageClosedLost, Name: "Closed Lost", Order: 5, Probability: 0, Color: "#ef4444",
			AllowedNextStages: []models.StageID{},
			RequiredFields:    []string{"lostReason"},
			Checklist:         []string{"Record loss reason"},
		},
	}
}

// DefaultCatalog builds the catalog from DefaultStages.
func DefaultCatalog() *StageCatalog {
	c, err := NewStageCatalog(DefaultStages())
	if err != nil {
		panic("default stage catalog is invalid: " + err.Error())
	}
	return c
}

// GetStage returns a copy of the stage with the given id.
func (c *StageCatalog) GetStage(id models.StageID) (models.Stage, error) {
	s, ok := c.stages[id]
	if !ok {
		return models.Stage{}, fmt.Errorf("%w: %q", models.ErrUnknownStage, id)
	}
	return copyStage(s), nil
}

func (c *StageCatalog) Has(id models.StageID) bool {
	_, ok := c.stages[id]
	return ok
}

// Ordered returns every stage sorted by display order.
func (c *StageCatalog) Ordered() []models.Stage {
	out := make([]models.Stage, 0, len(c.ordered))
	for _, id := range c.ordered {
		out = append(out, copyStage(c.stages[id]))
	}
	return out
}

// IsForwardOrTerminal reports whether moving from -> to goes forward in the
// pipeline or lands on a closed stage. Unknown ids are never forward.
func (c *StageCatalog) IsForwardOrTerminal(from, to models.StageID) bool {
	src, ok := c.stages[from]
	if !ok {
		return false
	}
	dst, ok := c.stages[to]
	if !ok {
		return false
	}
	return dst.Order > src.Order || to.IsClosed()
}

// MissingRequiredFields lists the required paths of target that are empty on o.
// An unknown target yields nil.
func (c *StageCatalog) MissingRequiredFields(o *models.Opportunity, target models.StageID) []string {
	s, ok := c.stages[target]
	if !ok {
		return nil
	}
	missing := []string{}
	for _, path := range s.RequiredFields {
		if !fieldPopulated(o, path) {
			missing = append(missing, path)
		}
	}
	return missing
}

// Health classifies o's dwell time against its stage benchmark. Closed,
// on-hold and benchmark-less stages are always healthy.
func (c *StageCatalog) Health(o *models.Opportunity) models.StageHealth {
	s, ok := c.stages[o.Stage]
	if !ok || !o.IsActive() {
		return models.HealthHealthy
	}
	b := s.Benchmark
	switch {
	case b.CriticalDays > 0 && o.DaysInStage > b.CriticalDays:
		return models.HealthCritical
	case b.WarningDays > 0 && o.DaysInStage > b.WarningDays:
		return models.HealthWarning
	default:
		return models.HealthHealthy
	}
}

func copyStage(s models.Stage) models.Stage {
	s.AllowedNextStages = append([]models.StageID{}, s.AllowedNextStages...)
	s.RequiredFields = append([]string{}, s.RequiredFields...)
	s.Checklist = append([]string{}, s.Checklist...)
	return s
}

// ApplyBenchmarks returns a copy of stages with the given benchmarks replaced.
func ApplyBenchmarks(stages []models.Stage, overrides map[models.StageID]models.StageBenchmark) []models.Stage {
	out := make([]models.Stage, len(stages))
	for i, s := range stages {
		s = copyStage(s)
		if b, ok := overrides[s.ID]; ok {
			s.Benchmark = b
		}
		out[i] = s
	}
	return out
}

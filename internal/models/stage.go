package models

// StageID identifies a pipeline stage.
type StageID string

const (
	StageLead       StageID = "lead"
	StageDemo       StageID = "demo"
	StagePOC        StageID = "poc"
	StageProposal   StageID = "proposal"
	StageClosedWon  StageID = "closed_won"
	StageClosedLost StageID = "closed_lost"
)

// IsClosed reports whether id is one of the two terminal outcomes.
func (id StageID) IsClosed() bool {
	return id == StageClosedWon || id == StageClosedLost
}

// StageBenchmark holds the expected dwell times of a stage, in days.
type StageBenchmark struct {
	TargetDays   int `json:"targetDays" yaml:"target_days"`
	WarningDays  int `json:"warningDays" yaml:"warning_days"`
	CriticalDays int `json:"criticalDays" yaml:"critical_days"`
}

// Stage is an immutable catalog entry of the sales pipeline.
type Stage struct {
	ID                StageID        `json:"id"`
	Name              string         `json:"name"`
	Order             int            `json:"order"`
	Probability       float64        `json:"probability"`
	Color             string         `json:"color"`
	AllowedNextStages []StageID      `json:"allowedNextStages"`
	RequiredFields    []string       `json:"requiredFields"`
	Checklist         []string       `json:"checklist"`
	Benchmark         StageBenchmark `json:"benchmark"`
}

// AllowsNext reports whether to is directly reachable from s.
func (s Stage) AllowsNext(to StageID) bool {
	for _, next := range s.AllowedNextStages {
		if next == to {
			return true
		}
	}
	return false
}

// StageHealth classifies how long an opportunity has been sitting in a stage.
type StageHealth string

const (
	HealthHealthy  StageHealth = "healthy"
	HealthWarning  StageHealth = "warning"
	HealthCritical StageHealth = "critical"
)

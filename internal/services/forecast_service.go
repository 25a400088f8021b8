package services

import (
	"math"
	"time"

	"partnerpipeline/internal/models"
)

const (
	decayPerDay      = 0.01
	minTimeDecay     = 0.5
	valueStdDevShare = 0.15
	z95              = 1.96

	bestCaseUplift    = 20
	worstCaseDiscount = 30
	worstCaseHaircut  = 0.8

	smallDealLimit  = 100_000
	mediumDealLimit = 500_000

	unassignedKey = "unassigned"
	noPartnerKey  = "direct"
	noReasonKey   = "unspecified"
)

// Deal-size and age bucket labels.
const (
	DealSizeSmall  = "small"
	DealSizeMedium = "medium"
	DealSizeLarge  = "large"

	Age0To30  = "0-30"
	Age31To60 = "31-60"
	Age61To90 = "61-90"
	Age90Plus = "90+"
)

// Forecaster derives dashboard aggregates from a set of opportunities.
// Every method is read-only and degrades to zero values on empty or
// malformed input: nil records are skipped and non-finite or negative
// values count as 0.
type Forecaster struct {
	catalog *StageCatalog
}

func NewForecaster(catalog *StageCatalog) *Forecaster {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Forecaster{catalog: catalog}
}

// TimeDecay penalises deals that linger in a stage, never below 50%.
func TimeDecay(daysInStage int) float64 {
	if daysInStage < 0 {
		daysInStage = 0
	}
	return math.Max(minTimeDecay, 1-float64(daysInStage)*decayPerDay)
}

func (f *Forecaster) WeightedForecast(opps []*models.Opportunity) float64 {
	total := 0.0
	for _, o := range opps {
		if !countable(o) {
			continue
		}
		total += safeValue(o) * safeProbability(o) / 100 * TimeDecay(o.DaysInStage)
	}
	return total
}

// ConfidenceInterval is a 95% normal approximation around the weighted
// forecast, assuming each deal's value has a 15% standard deviation.
func (f *Forecaster) ConfidenceInterval(opps []*models.Opportunity) models.ConfidenceInterval {
	base := f.WeightedForecast(opps)
	variance := 0.0
	for _, o := range opps {
		if !countable(o) {
			continue
		}
		sd := safeValue(o) * valueStdDevShare
		variance += sd * sd
	}
	margin := z95 * math.Sqrt(variance)
	return models.ConfidenceInterval{
		Lower: math.Max(0, base-margin),
		Upper: base + margin,
		Base:  base,
	}
}

func (f *Forecaster) ScenarioForecast(opps []*models.Opportunity) models.ScenarioForecast {
	var best, worst float64
	for _, o := range opps {
		if !countable(o) {
			continue
		}
		v, p := safeValue(o), safeProbability(o)
		best += v * math.Min(100, p+bestCaseUplift) / 100
		worst += v * math.Max(0, p-worstCaseDiscount) / 100 * worstCaseHaircut
	}
	return models.ScenarioForecast{
		BestCase:   best,
		WorstCase:  worst,
		MostLikely: f.WeightedForecast(opps),
	}
}

func (f *Forecaster) WinLossAnalysis(opps []*models.Opportunity) models.WinLossAnalysis {
	out := models.WinLossAnalysis{LossReasonBreakdown: map[string]models.LossReasonStat{}}
	var wonValue, lostValue float64
	for _, o := range opps {
		if o == nil {
			continue
		}
		switch o.Status {
		case models.StatusWon:
			out.Won++
			wonValue += safeValue(o)
		case models.StatusLost:
			out.Lost++
			lostValue += safeValue(o)
			reason := o.LostReason
			if reason == "" {
				reason = noReasonKey
			}
			stat := out.LossReasonBreakdown[reason]
			stat.Count++
			stat.Value += safeValue(o)
			out.LossReasonBreakdown[reason] = stat
		}
	}
	out.TotalClosed = out.Won + out.Lost
	out.WinRate = percent(out.Won, out.TotalClosed)
	out.AvgWonValue = average(wonValue, out.Won)
	out.AvgLostValue = average(lostValue, out.Lost)
	return out
}

func (f *Forecaster) ConversionAnalysis(opps []*models.Opportunity) models.ConversionAnalysis {
	out := models.ConversionAnalysis{
		ByPartner:  map[string]models.ConversionStat{},
		ByAssignee: map[string]models.ConversionStat{},
		ByDealSize: map[string]models.ConversionStat{},
	}
	for _, o := range opps {
		if o == nil {
			continue
		}
		won := o.Status == models.StatusWon
		v := safeValue(o)
		tally(out.ByPartner, firstNonEmpty(o.PartnerName, o.PartnerID, noPartnerKey), won, v)
		tally(out.ByAssignee, firstNonEmpty(o.AssignedToName, o.AssignedTo, unassignedKey), won, v)
		tally(out.ByDealSize, DealSizeBucket(v), won, v)
	}
	for _, group := range []map[string]models.ConversionStat{out.ByPartner, out.ByAssignee, out.ByDealSize} {
		for k, s := range group {
			s.Rate = percent(s.Won, s.Total)
			group[k] = s
		}
	}
	return out
}

// DealSizeBucket places value in [0,100K), [100K,500K) or [500K,inf).
func DealSizeBucket(value float64) string {
	switch {
	case value < smallDealLimit:
		return DealSizeSmall
	case value < mediumDealLimit:
		return DealSizeMedium
	default:
		return DealSizeLarge
	}
}

// AgeAnalysis reports active deals stuck past their stage's critical benchmark
// and buckets active deals by whole days since creation.
func (f *Forecaster) AgeAnalysis(opps []*models.Opportunity, now time.Time) models.AgeAnalysis {
	out := models.AgeAnalysis{AgeGroups: map[string]models.AgeGroup{
		Age0To30:  {},
		Age31To60: {},
		Age61To90: {},
		Age90Plus: {},
	}}
	for _, o := range opps {
		if !countable(o) {
			continue
		}
		v := safeValue(o)
		if f.IsStalled(o) {
			out.TotalStalled++
			out.StalledValue += v
		}
		key := AgeBucket(wholeDays(o.CreatedDate, now))
		g := out.AgeGroups[key]
		g.Count++
		g.Value += v
		out.AgeGroups[key] = g
	}
	return out
}

// IsStalled reports whether an active o exceeds its stage's critical dwell time.
func (f *Forecaster) IsStalled(o *models.Opportunity) bool {
	if !countable(o) {
		return false
	}
	s, err := f.catalog.GetStage(o.Stage)
	if err != nil || s.Benchmark.CriticalDays <= 0 {
		return false
	}
	return o.DaysInStage > s.Benchmark.CriticalDays
}

// AgeBucket labels an age in days. Day 90 already counts as 90+.
func AgeBucket(days int) string {
	switch {
	case days <= 30:
		return Age0To30
	case days <= 60:
		return Age31To60
	case days < 90:
		return Age61To90
	default:
		return Age90Plus
	}
}

// StageBreakdown sums every opportunity per stage in catalog order and counts
// active deals by dwell-time health.
func (f *Forecaster) StageBreakdown(opps []*models.Opportunity) []models.StageSummary {
	stages := f.catalog.Ordered()
	idx := make(map[models.StageID]int, len(stages))
	out := make([]models.StageSummary, len(stages))
	for i, s := range stages {
		idx[s.ID] = i
		out[i] = models.StageSummary{Stage: s.ID, Name: s.Name}
	}
	for _, o := range opps {
		if o == nil {
			continue
		}
		i, ok := idx[o.Stage]
		if !ok {
			continue
		}
		v := safeValue(o)
		out[i].Count++
		out[i].Value += v
		out[i].WeightedValue += v * safeProbability(o) / 100
		switch f.catalog.Health(o) {
		case models.HealthWarning:
			out[i].Warning++
		case models.HealthCritical:
			out[i].Critical++
		}
	}
	return out
}

// Dashboard bundles every aggregate for the forecast view and export.
func (f *Forecaster) Dashboard(opps []*models.Opportunity, now time.Time) models.ForecastReport {
	return models.ForecastReport{
		WeightedForecast:   f.WeightedForecast(opps),
		ConfidenceInterval: f.ConfidenceInterval(opps),
		Scenarios:          f.ScenarioForecast(opps),
		WinLoss:            f.WinLossAnalysis(opps),
		Conversion:         f.ConversionAnalysis(opps),
		Age:                f.AgeAnalysis(opps, now),
		Stages:             f.StageBreakdown(opps),
	}
}

func countable(o *models.Opportunity) bool {
	return o != nil && o.Status == models.StatusActive
}

func safeValue(o *models.Opportunity) float64 {
	if !finite(o.Value) || o.Value < 0 {
		return 0
	}
	return o.Value
}

func safeProbability(o *models.Opportunity) float64 {
	switch {
	case !finite(o.Probability), o.Probability < 0:
		return 0
	case o.Probability > 100:
		return 100
	default:
		return o.Probability
	}
}

func tally(group map[string]models.ConversionStat, key string, won bool, value float64) {
	s := group[key]
	s.Total++
	s.Value += value
	if won {
		s.Won++
	}
	group[key] = s
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func average(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

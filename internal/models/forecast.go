package models

type ConfidenceInterval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Base  float64 `json:"base"`
}

type ScenarioForecast struct {
	BestCase   float64 `json:"bestCase"`
	WorstCase  float64 `json:"worstCase"`
	MostLikely float64 `json:"mostLikely"`
}

type LossReasonStat struct {
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

type WinLossAnalysis struct {
	TotalClosed         int                       `json:"totalClosed"`
	Won                 int                       `json:"won"`
	Lost                int                       `json:"lost"`
	WinRate             float64                   `json:"winRate"`
	AvgWonValue         float64                   `json:"avgWonValue"`
	AvgLostValue        float64                   `json:"avgLostValue"`
	LossReasonBreakdown map[string]LossReasonStat `json:"lossReasonBreakdown"`
}

type ConversionStat struct {
	Total int     `json:"total"`
	Won   int     `json:"won"`
	Rate  float64 `json:"rate"`
	Value float64 `json:"value"`
}

type ConversionAnalysis struct {
	ByPartner  map[string]ConversionStat `json:"byPartner"`
	ByAssignee map[string]ConversionStat `json:"byAssignee"`
	ByDealSize map[string]ConversionStat `json:"byDealSize"`
}

type AgeGroup struct {
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

type AgeAnalysis struct {
	TotalStalled int                 `json:"totalStalled"`
	StalledValue float64             `json:"stalledValue"`
	AgeGroups    map[string]AgeGroup `json:"ageGroups"`
}

type StageSummary struct {
	Stage         StageID `json:"stage"`
	Name          string  `json:"name"`
	Count         int     `json:"count"`
	Value         float64 `json:"value"`
	WeightedValue float64 `json:"weightedValue"`
	// Warning and Critical count deals past the stage's dwell benchmarks.
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
}

// ForecastReport bundles every dashboard aggregate.
type ForecastReport struct {
	WeightedForecast   float64            `json:"weightedForecast"`
	ConfidenceInterval ConfidenceInterval `json:"confidenceInterval"`
	Scenarios          ScenarioForecast   `json:"scenarios"`
	WinLoss            WinLossAnalysis    `json:"winLoss"`
	Conversion         ConversionAnalysis `json:"conversion"`
	Age                AgeAnalysis        `json:"age"`
	Stages             []StageSummary     `json:"stages"`
}

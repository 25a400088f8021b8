package services

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"partnerpipeline/internal/models"
)

// DefaultDealTypeRates are the flat commission percents per deal type.
func DefaultDealTypeRates() map[models.DealType]float64 {
	return map[models.DealType]float64{
		models.DealNewBusiness: 30,
		models.DealExpansion:   20,
		models.DealRenewal:     15,
	}
}

// CommissionResolver maps deals to commission rates and amounts.
type CommissionResolver struct {
	rates map[models.DealType]float64
}

// NewCommissionResolver starts from the default rates and applies rates on
// top, so deal types left out of an override keep their default.
func NewCommissionResolver(rates map[models.DealType]float64) *CommissionResolver {
	own := DefaultDealTypeRates()
	for k, v := range rates {
		own[k] = v
	}
	return &CommissionResolver{rates: own}
}

// Rate returns the flat rate of a deal type and whether the type is known.
func (r *CommissionResolver) Rate(dealType models.DealType) (float64, bool) {
	rate, ok := r.rates[dealType]
	return rate, ok
}

// ResolveCommission applies the flat deal-type rate. Unknown deal types earn 0.
func (r *CommissionResolver) ResolveCommission(value float64, dealType models.DealType) models.Commission {
	rate, _ := r.Rate(dealType)
	return models.Commission{Rate: rate, Amount: CommissionAmount(value, rate)}
}

// ResolveThresholdRate picks the rate of the largest threshold whose amount does
// not exceed value. Equal amounts prefer the higher rate. With no qualifying
// threshold the rule's base rate applies.
func ResolveThresholdRate(value float64, rule models.CommissionRule) float64 {
	tiers := append([]models.CommissionThreshold(nil), rule.Thresholds...)
	sort.SliceStable(tiers, func(i, j int) bool {
		if tiers[i].Amount != tiers[j].Amount {
			return tiers[i].Amount > tiers[j].Amount
		}
		return tiers[i].Rate > tiers[j].Rate
	})
	for _, t := range tiers {
		if t.Amount <= value {
			return t.Rate
		}
	}
	return rule.BaseRate
}

// ResolveAgreementCommission resolves a partner agreement rule for value.
func ResolveAgreementCommission(value float64, rule models.CommissionRule) models.Commission {
	rate := ResolveThresholdRate(value, rule)
	return models.Commission{Rate: rate, Amount: CommissionAmount(value, rate)}
}

// CommissionAmount is value*rate/100 rounded to cents. Non-finite input yields 0.
func CommissionAmount(value, rate float64) float64 {
	if !finite(value) || !finite(rate) {
		return 0
	}
	amount, _ := decimal.NewFromFloat(value).
		Mul(decimal.NewFromFloat(rate)).
		Div(decimal.NewFromInt(100)).
		Round(2).
		Float64()
	return amount
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

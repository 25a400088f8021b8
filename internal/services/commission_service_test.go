package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"partnerpipeline/internal/models"
)

func TestResolveCommission_FlatRates(t *testing.T) {
	r := NewCommissionResolver(nil)

	assert.Equal(t, models.Commission{Rate: 30, Amount: 30000}, r.ResolveCommission(100000, models.DealNewBusiness))
	assert.Equal(t, models.Commission{Rate: 20, Amount: 20000}, r.ResolveCommission(100000, models.DealExpansion))
	assert.Equal(t, models.Commission{Rate: 15, Amount: 15000}, r.ResolveCommission(100000, models.DealRenewal))
	assert.Equal(t, models.Commission{}, r.ResolveCommission(100000, "referral"))
}

func TestNewCommissionResolver_MergesOverrides(t *testing.T) {
	rates := map[models.DealType]float64{models.DealRenewal: 5}
	r := NewCommissionResolver(rates)
	rates[models.DealRenewal] = 50

	rate, ok := r.Rate(models.DealRenewal)
	assert.True(t, ok)
	assert.Equal(t, 5.0, rate)

	// types missing from the override keep their default
	defaults := DefaultDealTypeRates()
	for _, dt := range []models.DealType{models.DealNewBusiness, models.DealExpansion} {
		rate, ok = r.Rate(dt)
		assert.True(t, ok, dt)
		assert.Equal(t, defaults[dt], rate, dt)
	}
	_, ok = r.Rate("referral")
	assert.False(t, ok)
}

func TestResolveThresholdRate(t *testing.T) {
	rule := models.CommissionRule{
		BaseRate: 10,
		Thresholds: []models.CommissionThreshold{
			{Amount: 100000, Rate: 15},
			{Amount: 500000, Rate: 18},
			{Amount: 1000000, Rate: 20},
		},
	}
	assert.Equal(t, 18.0, ResolveThresholdRate(750000, rule))
	assert.Equal(t, 10.0, ResolveThresholdRate(50000, rule))
	assert.Equal(t, 15.0, ResolveThresholdRate(100000, rule))
	assert.Equal(t, 20.0, ResolveThresholdRate(5e6, rule))

	// input order does not matter
	rule.Thresholds[0], rule.Thresholds[2] = rule.Thresholds[2], rule.Thresholds[0]
	assert.Equal(t, 18.0, ResolveThresholdRate(750000, rule))

	assert.Equal(t, 7.0, ResolveThresholdRate(1e9, models.CommissionRule{BaseRate: 7}))
}

func TestResolveThresholdRate_TiePrefersHigherRate(t *testing.T) {
	rule := models.CommissionRule{
		BaseRate: 5,
		Thresholds: []models.CommissionThreshold{
			{Amount: 200000, Rate: 12},
			{Amount: 200000, Rate: 16},
		},
	}
	assert.Equal(t, 16.0, ResolveThresholdRate(250000, rule))
}

func TestResolveAgreementCommission(t *testing.T) {
	rule := models.CommissionRule{BaseRate: 10, Thresholds: []models.CommissionThreshold{{Amount: 500000, Rate: 18}}}
	assert.Equal(t, models.Commission{Rate: 18, Amount: 135000}, ResolveAgreementCommission(750000, rule))
	assert.Equal(t, models.Commission{Rate: 10, Amount: 1000}, ResolveAgreementCommission(10000, rule))
}

func TestCommissionAmount_Rounding(t *testing.T) {
	assert.Equal(t, 0.3, CommissionAmount(0.999, 30))
	assert.Equal(t, 33.33, CommissionAmount(111.1, 30))
	assert.Equal(t, 0.0, CommissionAmount(math.NaN(), 30))
	assert.Equal(t, 0.0, CommissionAmount(100, math.Inf(1)))
}

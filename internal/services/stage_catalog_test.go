package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partnerpipeline/internal/models"
)

func TestDefaultCatalog_Shape(t *testing.T) {
	cat := DefaultCatalog()
	ordered := cat.Ordered()
	require.Len(t, ordered, 6)

	want := []struct {
		id    models.StageID
		order int
		prob  float64
	}{
		{models.StageLead, 0, 10},
		{models.StageDemo, 1, 25},
		{models.StagePOC, 2, 50},
		{models.StageProposal, 3, 75},
		{models.StageClosedWon, 4, 100},
		{models.StageClosedLost, 5, 0},
	}
	for i, w := range want {
		assert.Equal(t, w.id, ordered[i].ID)
		assert.Equal(t, w.order, ordered[i].Order)
		assert.Equal(t, w.prob, ordered[i].Probability)
	}

	lead, err := cat.GetStage(models.StageLead)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.StageID{models.StageDemo, models.StageClosedLost}, lead.AllowedNextStages)

	won, err := cat.GetStage(models.StageClosedWon)
	require.NoError(t, err)
	assert.Empty(t, won.AllowedNextStages)
}

func TestGetStage_UnknownAndCopy(t *testing.T) {
	cat := DefaultCatalog()
	_, err := cat.GetStage("nope")
	assert.ErrorIs(t, err, models.ErrUnknownStage)
	assert.False(t, cat.Has("nope"))

	s, err := cat.GetStage(models.StageDemo)
	require.NoError(t, err)
	s.RequiredFields[0] = "mutated"
	s.AllowedNextStages = nil

	again, _ := cat.GetStage(models.StageDemo)
	assert.Equal(t, "title", again.RequiredFields[0])
	assert.NotEmpty(t, again.AllowedNextStages)
}

func TestNewStageCatalog_Rejects(t *testing.T) {
	_, err := NewStageCatalog(nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = NewStageCatalog([]models.Stage{{ID: "a"}, {ID: "a"}})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = NewStageCatalog([]models.Stage{{ID: "a", Probability: 140}})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = NewStageCatalog([]models.Stage{{ID: "a", AllowedNextStages: []models.StageID{"b"}}})
	assert.ErrorIs(t, err, models.ErrUnknownStage)
}

func TestIsForwardOrTerminal(t *testing.T) {
	cat := DefaultCatalog()
	assert.True(t, cat.IsForwardOrTerminal(models.StageLead, models.StageDemo))
	assert.True(t, cat.IsForwardOrTerminal(models.StageProposal, models.StageClosedWon))
	assert.True(t, cat.IsForwardOrTerminal(models.StageClosedLost, models.StageClosedWon))
	assert.False(t, cat.IsForwardOrTerminal(models.StageProposal, models.StageDemo))
	assert.False(t, cat.IsForwardOrTerminal(models.StageDemo, models.StageDemo))
	assert.False(t, cat.IsForwardOrTerminal("x", models.StageDemo))
}

func TestMissingRequiredFields(t *testing.T) {
	cat := DefaultCatalog()
	o := &models.Opportunity{Title: "Deal", Customer: models.Customer{Name: "A"}}

	assert.Equal(t, []string{"customer.company", "customer.email"}, cat.MissingRequiredFields(o, models.StageLead))
	assert.Equal(t,
		[]string{"customer.company", "customer.email", "customer.phone", "expectedCloseDate", "assignedTo"},
		cat.MissingRequiredFields(o, models.StageProposal))
	assert.Nil(t, cat.MissingRequiredFields(o, "ghost"))

	o.Customer = fullCustomer()
	assert.NotNil(t, cat.MissingRequiredFields(o, models.StageLead))
	assert.Empty(t, cat.MissingRequiredFields(o, models.StageLead))
}

func TestHealth(t *testing.T) {
	cat := DefaultCatalog()
	o := &models.Opportunity{Stage: models.StageLead, Status: models.StatusActive}

	o.DaysInStage = 14
	assert.Equal(t, models.HealthHealthy, cat.Health(o))
	o.DaysInStage = 15
	assert.Equal(t, models.HealthWarning, cat.Health(o))
	o.DaysInStage = 22
	assert.Equal(t, models.HealthCritical, cat.Health(o))

	o.Status = models.StatusOnHold
	assert.Equal(t, models.HealthHealthy, cat.Health(o))
}

func TestApplyBenchmarks(t *testing.T) {
	base := DefaultStages()
	out := ApplyBenchmarks(base, map[models.StageID]models.StageBenchmark{
		models.StagePOC: {TargetDays: 10, WarningDays: 20, CriticalDays: 25},
	})
	cat, err := NewStageCatalog(out)
	require.NoError(t, err)

	poc, _ := cat.GetStage(models.StagePOC)
	assert.Equal(t, 25, poc.Benchmark.CriticalDays)
	lead, _ := cat.GetStage(models.StageLead)
	assert.Equal(t, 21, lead.Benchmark.CriticalDays)
	assert.Equal(t, 50, base[2].Benchmark.CriticalDays)
}

package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partnerpipeline/internal/authz"
	"partnerpipeline/internal/middleware"
	"partnerpipeline/internal/models"
	"partnerpipeline/internal/pdf"
	"partnerpipeline/internal/realtime"
	"partnerpipeline/internal/repositories"
	"partnerpipeline/internal/services"
)

type testEnv struct {
	router  *gin.Engine
	service *services.OpportunityService
	hub     *realtime.BoardHub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logrus.New()
	log.SetOutput(io.Discard)

	svc := services.NewOpportunityService(repositories.NewMemoryOpportunityRepository(), services.NewEngine(nil, nil), log)
	hub := realtime.NewBoardHub(svc, log, nil, time.Second)
	svc.SetPublisher(hub)
	board := NewBoardHandler(hub, svc)
	opp := NewOpportunityHandler(svc, log)
	rep := NewReportHandler(svc, pdf.NewForecastGenerator("", "Partner Network"), "Forecast", log)
	com := NewCommissionHandler(nil, map[string]models.CommissionRule{
		"p-gold": {BaseRate: 10, Thresholds: []models.CommissionThreshold{{Amount: 500000, Rate: 18}}},
	})

	r := gin.New()
	r.Use(middleware.Identity(), middleware.ReadOnlyGuard())
	r.POST("/opportunities", opp.Create)
	r.GET("/opportunities", opp.List)
	r.GET("/opportunities/:id", opp.GetByID)
	r.PUT("/opportunities/:id", opp.Update)
	r.POST("/opportunities/:id/stage/validate", opp.ValidateStage)
	r.PATCH("/opportunities/:id/stage", opp.MoveStage)
	r.POST("/opportunities/:id/notes", opp.AddNote)
	r.POST("/opportunities/:id/hold", opp.Hold)
	r.POST("/opportunities/:id/resume", opp.Resume)
	r.GET("/pipeline/stages", rep.Stages)
	r.GET("/forecast", rep.GetForecast)
	r.GET("/forecast/report.pdf", rep.ExportPDF)
	r.POST("/commission/resolve", com.Resolve)
	r.GET("/board/ws", board.Connect)
	return &testEnv{router: r, service: svc, hub: hub}
}

func (e *testEnv) do(method, path, user string, role int, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderUserID, user)
	req.Header.Set(middleware.HeaderRoleID, strconv.Itoa(role))
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func createBody() gin.H {
	return gin.H{
		"title":             "Initech renewal",
		"customer":          gin.H{"name": "Bill", "company": "Initech", "email": "bill@initech.test", "phone": "+1 555 0199"},
		"value":             120000,
		"dealType":          "renewal",
		"expectedCloseDate": "2030-01-01T00:00:00Z",
	}
}

func (e *testEnv) create(t *testing.T, user string, role int) models.Opportunity {
	t.Helper()
	w := e.do(http.MethodPost, "/opportunities", user, role, createBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var o models.Opportunity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	return o
}

func TestCreate(t *testing.T) {
	env := newTestEnv(t)

	o := env.create(t, "s-1", authz.RoleSales)
	assert.Equal(t, "s-1", o.AssignedTo)
	assert.Equal(t, models.StageLead, o.Stage)
	assert.Equal(t, 15.0, o.CommissionRate)
	assert.Equal(t, 1, o.History.Len())
	assert.Equal(t, "USD", o.Currency)

	body := createBody()
	body["currency"] = "EUR"
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/opportunities", "s-1", authz.RoleSales, body).Code)

	body = createBody()
	body["customer"] = gin.H{"name": "Bill"}
	w := env.do(http.MethodPost, "/opportunities", "s-1", authz.RoleSales, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "customer.company")

	body = createBody()
	delete(body, "dealType")
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/opportunities", "s-1", authz.RoleSales, body).Code)
}

func TestCreate_ElevatedMayAssign(t *testing.T) {
	env := newTestEnv(t)
	body := createBody()
	body["assignedTo"] = "s-9"

	w := env.do(http.MethodPost, "/opportunities", "ops", authz.RoleOperations, body)
	require.Equal(t, http.StatusCreated, w.Code)
	var o models.Opportunity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, "s-9", o.AssignedTo)

	w = env.do(http.MethodPost, "/opportunities", "s-1", authz.RoleSales, body)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, "s-1", o.AssignedTo)
}

func TestListAndGet_Ownership(t *testing.T) {
	env := newTestEnv(t)
	mine := env.create(t, "s-1", authz.RoleSales)
	env.create(t, "s-2", authz.RoleSales)

	var list []models.Opportunity
	w := env.do(http.MethodGet, "/opportunities", "s-1", authz.RoleSales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	w = env.do(http.MethodGet, "/opportunities", "aud", authz.RoleAudit, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/opportunities/"+mine.ID, "s-1", authz.RoleSales, nil).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/opportunities/"+mine.ID, "s-2", authz.RoleSales, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/opportunities/nope", "s-1", authz.RoleSales, nil).Code)
}

func TestUpdate(t *testing.T) {
	env := newTestEnv(t)
	o := env.create(t, "s-1", authz.RoleSales)

	w := env.do(http.MethodPut, "/opportunities/"+o.ID, "s-1", authz.RoleSales, gin.H{"value": 200000, "assignedTo": "s-2"})
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Opportunity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.InDelta(t, 20000, got.WeightedValue, 1e-9)
	assert.Equal(t, "s-1", got.AssignedTo)

	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPut, "/opportunities/"+o.ID, "s-2", authz.RoleSales, gin.H{"value": 1}).Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodPut, "/opportunities/"+o.ID, "aud", authz.RoleAudit, gin.H{"value": 1}).Code)
}

func TestValidateAndMoveStage(t *testing.T) {
	env := newTestEnv(t)
	o := env.create(t, "s-1", authz.RoleSales)

	w := env.do(http.MethodPost, "/opportunities/"+o.ID+"/stage/validate", "aud", authz.RoleAudit, gin.H{"stage": "closed_lost"})
	require.Equal(t, http.StatusOK, w.Code)
	var res models.ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"lostReason"}, res.MissingFields)

	w = env.do(http.MethodPost, "/opportunities/"+o.ID+"/stage/validate", "s-2", authz.RoleSales, gin.H{"stage": "demo"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodPatch, "/opportunities/"+o.ID+"/stage", "s-1", authz.RoleSales, gin.H{"stage": "proposal"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, models.ReasonIllegalTransition, res.Reason)

	w = env.do(http.MethodPatch, "/opportunities/"+o.ID+"/stage", "s-1", authz.RoleSales, gin.H{"stage": "poc", "previousStage": "demo"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPatch, "/opportunities/"+o.ID+"/stage", "s-1", authz.RoleSales, gin.H{"stage": "demo", "previousStage": "lead", "probability": 99})
	require.Equal(t, http.StatusOK, w.Code)
	var moved models.Opportunity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &moved))
	assert.Equal(t, models.StageDemo, moved.Stage)
	assert.Equal(t, 25.0, moved.Probability)

	w = env.do(http.MethodPatch, "/opportunities/"+o.ID+"/stage", "s-2", authz.RoleSales, gin.H{"stage": "poc"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestNotesHoldResume(t *testing.T) {
	env := newTestEnv(t)
	o := env.create(t, "s-1", authz.RoleSales)
	base := "/opportunities/" + o.ID

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, base+"/notes", "s-1", authz.RoleSales, gin.H{}).Code)
	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, base+"/notes", "s-1", authz.RoleSales, gin.H{"content": "kickoff"}).Code)

	w := env.do(http.MethodPost, base+"/hold", "s-1", authz.RoleSales, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var held models.Opportunity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &held))
	assert.Equal(t, models.StatusOnHold, held.Status)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, base+"/hold", "s-1", authz.RoleSales, nil).Code)

	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, base+"/resume", "s-1", authz.RoleSales, nil).Code)
}

func TestForecastAndStages(t *testing.T) {
	env := newTestEnv(t)
	env.create(t, "s-1", authz.RoleSales)

	w := env.do(http.MethodGet, "/forecast", "mgr", authz.RoleManagement, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report models.ForecastReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.InDelta(t, 12000, report.WeightedForecast, 1e-6)
	assert.Len(t, report.Age.AgeGroups, 4)

	w = env.do(http.MethodGet, "/pipeline/stages", "mgr", authz.RoleManagement, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stages stagesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stages))
	assert.Len(t, stages.Stages, 6)
	assert.Equal(t, 1, stages.Breakdown[0].Count)

	w = env.do(http.MethodGet, "/forecast/report.pdf", "mgr", authz.RoleManagement, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestCommissionResolve(t *testing.T) {
	env := newTestEnv(t)
	decode := func(w *httptest.ResponseRecorder) ResolveCommissionResponse {
		var out ResolveCommissionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		return out
	}

	w := env.do(http.MethodPost, "/commission/resolve", "s-1", authz.RoleSales, gin.H{"value": 100000, "dealType": "new_business"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ResolveCommissionResponse{Commission: models.Commission{Rate: 30, Amount: 30000}, Source: "deal_type"}, decode(w))

	w = env.do(http.MethodPost, "/commission/resolve", "s-1", authz.RoleSales, gin.H{"value": 750000, "partnerId": "p-gold"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, ResolveCommissionResponse{Commission: models.Commission{Rate: 18, Amount: 135000}, Source: "agreement"}, decode(w))

	w = env.do(http.MethodPost, "/commission/resolve", "aud", authz.RoleAudit, gin.H{
		"value": 50000,
		"rule":  gin.H{"rate": 9, "thresholds": []gin.H{{"amount": 100000, "rate": 15}}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 9.0, decode(w).Rate)

	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/commission/resolve", "s-1", authz.RoleSales, gin.H{"value": 1, "partnerId": "p-x"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/commission/resolve", "s-1", authz.RoleSales, gin.H{"value": 1, "dealType": "referral"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/commission/resolve", "s-1", authz.RoleSales, gin.H{"value": 1}).Code)
}

package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appreport "github.com/mezze/backend/internal/application/report"
	"github.com/mezze/backend/internal/infrastructure/persistence"
)

func newReportRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	namer := appreport.NewEntityNamer(
		persistence.NewGormAccountRepository(db),
		persistence.NewGormProductRepository(db),
	)
	svc := appreport.NewService(
		persistence.NewGormOrderRepository(db),
		persistence.NewGormInvoiceRepository(db),
		persistence.NewGormPaymentRepository(db),
		persistence.NewGormTimeSeriesRepository(db),
		namer,
		zap.NewNop(),
	)
	engine := gin.New()
	NewReportHandler(svc).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func recomputeWeek(t *testing.T, engine *gin.Engine) {
	t.Helper()
	body := bytes.NewBufferString(`{"from":"2026-01-12T00:00:00Z","to":"2026-01-19T00:00:00Z"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/recompute", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestReportHandlerRecomputeAndSeries(t *testing.T) {
	db := openMigratedDB(t)
	account := seedTestAccount(t, db, "ACC-0001", "Mamoun's Falafel")
	seedTestOrder(t, db, account.ID, account.Name, "W03-17",
		time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC))
	engine := newReportRouter(t, db)

	recomputeWeek(t, engine)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/reports/timeseries?metric=ordered_amount&granularity=weekly&from=2026-01-12&to=2026-01-19", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Contains(t, w.Body.String(), "ordered_amount")
}

func TestReportHandlerSeriesValidation(t *testing.T) {
	engine := newReportRouter(t, openMigratedDB(t))

	tests := []struct {
		name string
		url  string
	}{
		{"missing metric", "/api/v1/reports/timeseries"},
		{"unknown metric", "/api/v1/reports/timeseries?metric=margin"},
		{"unknown granularity", "/api/v1/reports/timeseries?metric=ordered_amount&granularity=hourly"},
		{"malformed account id", "/api/v1/reports/timeseries?metric=ordered_amount&account_id=nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestReportHandlerRecomputeValidation(t *testing.T) {
	engine := newReportRouter(t, openMigratedDB(t))

	t.Run("missing fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/recompute",
			bytes.NewBufferString(`{}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("inverted period", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/recompute",
			bytes.NewBufferString(`{"from":"2026-01-19T00:00:00Z","to":"2026-01-12T00:00:00Z"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReportHandlerExport(t *testing.T) {
	db := openMigratedDB(t)
	account := seedTestAccount(t, db, "ACC-0001", "Mamoun's Falafel")
	seedTestOrder(t, db, account.ID, account.Name, "W03-17",
		time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC))
	engine := newReportRouter(t, db)

	recomputeWeek(t, engine)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
		"/api/v1/reports/timeseries/export?metric=ordered_amount&granularity=weekly&from=2026-01-12&to=2026-01-19", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotEmpty(t, w.Body.Bytes())
}

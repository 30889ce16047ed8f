package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appingestion "github.com/mezze/backend/internal/application/ingestion"
	resolutionapp "github.com/mezze/backend/internal/application/resolution"
	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/resolution"
	"github.com/mezze/backend/internal/infrastructure/event"
	"github.com/mezze/backend/internal/infrastructure/persistence"
	"github.com/mezze/backend/internal/infrastructure/sources"
)

// cannedDriver serves one canned fetch result
type cannedDriver struct {
	code   ingestion.SourceCode
	result *ingestion.FetchResult
}

func (d *cannedDriver) SourceCode() ingestion.SourceCode { return d.code }

func (d *cannedDriver) Fetch(_ context.Context, _ ingestion.Window) (*ingestion.FetchResult, error) {
	return d.result, nil
}

func newIngestionRouter(t *testing.T, db *gorm.DB, driver ingestion.SourceDriver) *gin.Engine {
	t.Helper()
	ctx := context.Background()

	resolver := resolutionapp.NewService(
		persistence.NewGormAccountRepository(db),
		persistence.NewGormProductRepository(db),
		persistence.NewGormAliasRepository(db),
		resolution.DefaultConfig(),
		zap.NewNop(),
	)
	require.NoError(t, resolver.Start(ctx))
	t.Cleanup(func() {
		_ = resolver.Stop(context.Background())
	})

	registry := sources.NewRegistry()
	require.NoError(t, registry.Register(driver))

	coordinator := appingestion.NewCoordinator(
		registry,
		persistence.NewGormRunRepository(db),
		persistence.NewGormTransactionScope(db),
		resolver,
		appingestion.NewPipeline(appingestion.DefaultConfig(), zap.NewNop()),
		appingestion.NewMemoryRunLock(),
		event.NewInMemoryEventBus(zap.NewNop()),
		nil,
		zap.NewNop(),
	)

	engine := gin.New()
	NewIngestionHandler(coordinator).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func emptyFetchDriver() *cannedDriver {
	return &cannedDriver{
		code:   ingestion.SourceCodeMezze,
		result: &ingestion.FetchResult{Report: ingestion.FetchReport{}},
	}
}

func postJSON(engine *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestIngestionHandlerTriggerRun(t *testing.T) {
	db := openMigratedDB(t)
	seedTestAccount(t, db, "ACC-0001", "Mamoun's Falafel")
	product := seedTestProduct(t, db, "PRD-0001", "HUM-16", "Hummus 16oz")
	_ = product

	driver := &cannedDriver{
		code: ingestion.SourceCodeMezze,
		result: &ingestion.FetchResult{
			Records: []ingestion.RawRecord{{
				SourceCode: ingestion.SourceCodeMezze,
				SourceRef:  "W03-17",
				Fields: map[string]string{
					ingestion.FieldAccount:   "Mamoun's Falafel",
					ingestion.FieldProduct:   "Hummus 16oz",
					ingestion.FieldQuantity:  "3",
					ingestion.FieldOrderDate: "2026-01-12",
					ingestion.FieldUnitPrice: "4.50",
				},
				FetchedAt: time.Now().UTC(),
			}},
			Report: ingestion.FetchReport{Fetched: 1},
		},
	}
	engine := newIngestionRouter(t, db, driver)

	w := postJSON(engine, "/api/v1/ingestion/runs", `{"source_code":"mezze"}`)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"SUCCESS"`)
	assert.Contains(t, w.Body.String(), `"committed":1`)
}

func TestIngestionHandlerTriggerRunValidation(t *testing.T) {
	engine := newIngestionRouter(t, openMigratedDB(t), emptyFetchDriver())

	t.Run("missing source code", func(t *testing.T) {
		w := postJSON(engine, "/api/v1/ingestion/runs", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown source code", func(t *testing.T) {
		w := postJSON(engine, "/api/v1/ingestion/runs", `{"source_code":"fax-machine"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unknown source code")
	})

	t.Run("half a window", func(t *testing.T) {
		w := postJSON(engine, "/api/v1/ingestion/runs",
			`{"source_code":"mezze","window_start":"2026-01-12T00:00:00Z"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("inverted window", func(t *testing.T) {
		w := postJSON(engine, "/api/v1/ingestion/runs",
			`{"source_code":"mezze","window_start":"2026-01-19T00:00:00Z","window_end":"2026-01-12T00:00:00Z"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestIngestionHandlerRunHistory(t *testing.T) {
	db := openMigratedDB(t)
	engine := newIngestionRouter(t, db, emptyFetchDriver())

	w := postJSON(engine, "/api/v1/ingestion/runs", `{"source_code":"mezze"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
			"/api/v1/ingestion/runs?source_code=mezze&trigger=MANUAL", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
	})

	t.Run("get unknown run is 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
			"/api/v1/ingestion/runs/"+uuid.NewString(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("get malformed run id is 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
			"/api/v1/ingestion/runs/nope", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("sources carry the latest run", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ingestion/sources", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"mezze"`)
		assert.Contains(t, w.Body.String(), "latest_run")
	})
}

package handler

import (
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
	"github.com/mezze/backend/internal/infrastructure/persistence"
	"github.com/mezze/backend/internal/interfaces/http/middleware"
)

// newReviewRouter wires the review surface over a live review service.
// The operator middleware stands in for JWT auth: handlers read the
// operator off the context, exactly as they do behind the real chain.
func newReviewRouter(t *testing.T, db *gorm.DB, operator string) *gin.Engine {
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

	svc := appingestion.NewReviewService(
		persistence.NewGormRecordRepository(db),
		persistence.NewGormTransactionScope(db),
		resolver,
		appingestion.NewPipeline(appingestion.DefaultConfig(), zap.NewNop()),
		zap.NewNop(),
	)

	engine := gin.New()
	if operator != "" {
		engine.Use(func(c *gin.Context) {
			c.Set(middleware.JWTOperatorKey, operator)
			c.Next()
		})
	}
	NewReviewHandler(svc).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func parkTestRecord(t *testing.T, db *gorm.DB, sourceRef string, fields map[string]string, candidates []ingestion.ReviewCandidate) *ingestion.Record {
	t.Helper()
	record, err := ingestion.NewRecord(uuid.New(), ingestion.RawRecord{
		SourceCode: ingestion.SourceCodeMezze,
		SourceRef:  sourceRef,
		Fields:     fields,
		FetchedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, record.MarkFieldsParsed())
	require.NoError(t, record.SendToReview("unresolved reference", candidates))
	require.NoError(t, persistence.NewGormRecordRepository(db).Save(context.Background(), record))
	return record
}

func reviewOrderFields(account, product string) map[string]string {
	return map[string]string{
		ingestion.FieldAccount:   account,
		ingestion.FieldProduct:   product,
		ingestion.FieldQuantity:  "3",
		ingestion.FieldOrderDate: "2026-01-12",
		ingestion.FieldUnitPrice: "4.50",
	}
}

func TestReviewHandlerListAndGet(t *testing.T) {
	db := openMigratedDB(t)
	seedTestAccount(t, db, "ACC-0001", "Mamoun's Falafel")
	seedTestProduct(t, db, "PRD-0001", "HUM-16", "Hummus 16oz")
	record := parkTestRecord(t, db, "W03-17",
		reviewOrderFields("Mamoun's Falafel", "Humus 16 oz Tub"), nil)
	engine := newReviewRouter(t, db, "dana")

	t.Run("list", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
			"/api/v1/review?state=NEEDS_REVIEW", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
		assert.Contains(t, w.Body.String(), "W03-17")
	})

	t.Run("malformed run filter is 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
			"/api/v1/review?run_id=nope", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
			"/api/v1/review/"+record.ID.String(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "NEEDS_REVIEW")
	})

	t.Run("get unknown record is 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
			"/api/v1/review/"+uuid.NewString(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestReviewHandlerResolveAccept(t *testing.T) {
	db := openMigratedDB(t)
	seedTestAccount(t, db, "ACC-0001", "Mamoun's Falafel")
	product := seedTestProduct(t, db, "PRD-0001", "HUM-16", "Hummus 16oz")
	record := parkTestRecord(t, db, "W03-17",
		reviewOrderFields("Mamoun's Falafel", "Humus 16 oz Tub"),
		[]ingestion.ReviewCandidate{{
			Kind:     ingestion.CandidateKindProduct,
			EntityID: product.ID,
			Value:    "Hummus 16oz",
			Score:    0.82,
		}})
	engine := newReviewRouter(t, db, "dana")

	w := postJSON(engine, "/api/v1/review/"+record.ID.String()+"/resolve",
		`{"action":"accept","candidate_id":"`+product.ID.String()+`"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"COMMITTED"`)
	assert.Contains(t, w.Body.String(), `"dana"`)

	order, err := persistence.NewGormOrderRepository(db).FindBySourceRef(
		context.Background(), "mezze", "W03-17")
	require.NoError(t, err)
	require.NotNil(t, order)
}

func TestReviewHandlerResolveReject(t *testing.T) {
	db := openMigratedDB(t)
	record := parkTestRecord(t, db, "W03-18",
		reviewOrderFields("Somebody Unknown", "Hummus 16oz"), nil)
	engine := newReviewRouter(t, db, "sam")

	w := postJSON(engine, "/api/v1/review/"+record.ID.String()+"/resolve",
		`{"action":"reject","reason":"test order, not a real customer"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"REJECTED"`)
}

func TestReviewHandlerResolveValidation(t *testing.T) {
	db := openMigratedDB(t)
	record := parkTestRecord(t, db, "W03-19",
		reviewOrderFields("Somebody Unknown", "Hummus 16oz"), nil)

	t.Run("no operator on context is a domain error", func(t *testing.T) {
		engine := newReviewRouter(t, db, "")
		w := postJSON(engine, "/api/v1/review/"+record.ID.String()+"/resolve",
			`{"action":"reject","reason":"spam"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing action", func(t *testing.T) {
		engine := newReviewRouter(t, db, "dana")
		w := postJSON(engine, "/api/v1/review/"+record.ID.String()+"/resolve", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed candidate id", func(t *testing.T) {
		engine := newReviewRouter(t, db, "dana")
		w := postJSON(engine, "/api/v1/review/"+record.ID.String()+"/resolve",
			`{"action":"accept","candidate_id":"nope"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	apptrade "github.com/mezze/backend/internal/application/trade"
	"github.com/mezze/backend/internal/infrastructure/persistence"
)

func newOrderRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	svc := apptrade.NewOrderService(persistence.NewGormOrderRepository(db))
	engine := gin.New()
	NewOrderHandler(svc).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func TestOrderHandlerList(t *testing.T) {
	db := openMigratedDB(t)
	account := seedTestAccount(t, db, "ACC-0001", "Mamoun's Falafel")
	seedTestOrder(t, db, account.ID, account.Name, "W03-17",
		time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC))
	seedTestOrder(t, db, account.ID, account.Name, "W04-02",
		time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC))
	engine := newOrderRouter(t, db)

	t.Run("all orders", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(2), resp.Meta.Total)
	})

	t.Run("window is half open on order date", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
			"/api/v1/orders?window_start=2026-01-12&window_end=2026-01-19", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(1), resp.Meta.Total)
		assert.Contains(t, w.Body.String(), "W03-17")
		assert.NotContains(t, w.Body.String(), "W04-02")
	})

	t.Run("filter by account", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
			"/api/v1/orders?account_id="+account.ID.String(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(2), resp.Meta.Total)
	})

	t.Run("malformed account id is 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet,
			"/api/v1/orders?account_id=nope", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandlerGet(t *testing.T) {
	db := openMigratedDB(t)
	account := seedTestAccount(t, db, "ACC-0001", "Mamoun's Falafel")
	order := seedTestOrder(t, db, account.ID, account.Name, "W03-17",
		time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC))
	engine := newOrderRouter(t, db)

	t.Run("found with lines", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+order.ID.String(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "W03-17")
		assert.Contains(t, w.Body.String(), "Hummus 16oz")
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	appcatalog "github.com/mezze/backend/internal/application/catalog"
	"github.com/mezze/backend/internal/domain/catalog"
	"github.com/mezze/backend/internal/domain/shared/valueobject"
	"github.com/mezze/backend/internal/infrastructure/persistence"
)

func newProductRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	svc := appcatalog.NewProductService(
		persistence.NewGormProductRepository(db),
		persistence.NewGormProductUnitRepository(db),
		persistence.NewGormProductPriceRepository(db),
	)
	engine := gin.New()
	NewProductHandler(svc).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func seedTestProduct(t *testing.T, db *gorm.DB, code, sku, name string) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct(code, sku, name, valueobject.UnitCodeEach)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormProductRepository(db).Save(context.Background(), product))
	return product
}

func TestProductHandlerList(t *testing.T) {
	db := openMigratedDB(t)
	seedTestProduct(t, db, "PRD-0001", "HUM-16", "Hummus 16oz")
	seedTestProduct(t, db, "PRD-0002", "BAB-12", "Baba Ghanoush 12oz")
	engine := newProductRouter(t, db)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(2), resp.Meta.Total)
}

func TestProductHandlerGet(t *testing.T) {
	db := openMigratedDB(t)
	product := seedTestProduct(t, db, "PRD-0001", "HUM-16", "Hummus 16oz")
	ctx := context.Background()

	unit, err := catalog.NewProductUnit(product.ID, valueobject.UnitCodeCase, "case of 12", decimal.NewFromInt(12))
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormProductUnitRepository(db).Save(ctx, unit))

	price, err := catalog.NewProductPrice(product.ID, valueobject.UnitCodeEach,
		valueobject.NewMoneyUSD(decimal.NewFromFloat(4.50)),
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormProductPriceRepository(db).Append(ctx, price))

	engine := newProductRouter(t, db)

	t.Run("detail includes units and prices", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+product.ID.String(), nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Hummus 16oz")
		assert.Contains(t, w.Body.String(), "case of 12")
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/"+uuid.NewString(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id is 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/nope", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

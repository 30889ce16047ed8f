package trade

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/domain/shared/valueobject"
	"github.com/mezze/backend/internal/domain/trade"
	"github.com/mezze/backend/internal/infrastructure/persistence"
)

func newOrderService(t *testing.T) (*OrderService, trade.OrderRepository) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(persistence.AllEntities()...))

	repo := persistence.NewGormOrderRepository(db)
	return NewOrderService(repo), repo
}

func seedOrder(t *testing.T, repo trade.OrderRepository, sourceCode, sourceRef string, accountID uuid.UUID, day int) *trade.Order {
	t.Helper()

	order, err := trade.NewOrder(sourceCode, sourceRef, accountID, "Mamoun's Falafel",
		time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = order.AddLine(uuid.New(), "HUM-16", "Hummus 16oz",
		valueobject.UnitCodeEach, valueobject.UnitCodeEach,
		decimal.NewFromInt(3), decimal.NewFromInt(1),
		valueobject.NewMoneyUSD(decimal.NewFromFloat(4.50)))
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), order))
	return order
}

func TestOrderService_ListOrdersFilters(t *testing.T) {
	svc, repo := newOrderService(t)
	ctx := context.Background()
	accountID := uuid.New()

	seedOrder(t, repo, "mezze", "W03-17", accountID, 12)
	seedOrder(t, repo, "mezze", "W03-18", accountID, 14)
	seedOrder(t, repo, "csv-drop", "INV-100", uuid.New(), 20)

	orders, total, err := svc.ListOrders(ctx, trade.OrderQuery{}, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, orders, 3)

	orders, total, err = svc.ListOrders(ctx, trade.OrderQuery{SourceCode: "mezze"}, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	orders, total, err = svc.ListOrders(ctx, trade.OrderQuery{AccountID: accountID}, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	// Half-open window: the 14th is in, the 20th is out.
	orders, total, err = svc.ListOrders(ctx, trade.OrderQuery{
		WindowStart: time.Date(2026, 1, 13, 0, 0, 0, 0, time.UTC),
		WindowEnd:   time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC),
	}, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, orders, 1)
	assert.Equal(t, "W03-18", orders[0].SourceRef)
}

func TestOrderService_GetOrder(t *testing.T) {
	svc, repo := newOrderService(t)
	ctx := context.Background()

	seeded := seedOrder(t, repo, "mezze", "W03-17", uuid.New(), 12)

	order, err := svc.GetOrder(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, "W03-17", order.SourceRef)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, "HUM-16", order.Lines[0].ProductSKU)

	_, err = svc.GetOrder(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

package partner

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

	"github.com/mezze/backend/internal/domain/partner"
	"github.com/mezze/backend/internal/domain/shared"
	"github.com/mezze/backend/internal/domain/shared/valueobject"
	"github.com/mezze/backend/internal/domain/trade"
	"github.com/mezze/backend/internal/infrastructure/persistence"
)

func newAccountService(t *testing.T) (*AccountService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(persistence.AllEntities()...))

	return NewAccountService(
		persistence.NewGormAccountRepository(db),
		persistence.NewGormOrderRepository(db),
	), db
}

func seedAccount(t *testing.T, db *gorm.DB, code, name string) *partner.Account {
	t.Helper()
	account, err := partner.NewAccount(code, name)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormAccountRepository(db).Save(context.Background(), account))
	return account
}

func TestAccountService_ListAndGet(t *testing.T) {
	svc, db := newAccountService(t)
	ctx := context.Background()

	mamoun := seedAccount(t, db, "ACC-0001", "Mamoun's Falafel")
	seedAccount(t, db, "ACC-0002", "Crown Deli")

	accounts, total, err := svc.ListAccounts(ctx, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, accounts, 2)

	found, err := svc.GetAccount(ctx, mamoun.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mamoun's Falafel", found.Name)

	_, err = svc.GetAccount(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAccountService_ListAccountOrders(t *testing.T) {
	svc, db := newAccountService(t)
	ctx := context.Background()

	account := seedAccount(t, db, "ACC-0001", "Mamoun's Falafel")
	other := seedAccount(t, db, "ACC-0002", "Crown Deli")

	orderRepo := persistence.NewGormOrderRepository(db)
	for i, ref := range []string{"W03-17", "W03-18"} {
		order, err := trade.NewOrder("mezze", ref, account.ID, account.Name,
			time.Date(2026, 1, 12+i, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		_, err = order.AddLine(uuid.New(), "HUM-16", "Hummus 16oz",
			valueobject.UnitCodeEach, valueobject.UnitCodeEach,
			decimal.NewFromInt(3), decimal.NewFromInt(1),
			valueobject.NewMoneyUSD(decimal.NewFromFloat(4.50)))
		require.NoError(t, err)
		require.NoError(t, orderRepo.Save(ctx, order))
	}

	orders, total, err := svc.ListAccountOrders(ctx, account.ID, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 2)

	orders, total, err = svc.ListAccountOrders(ctx, other.ID, shared.DefaultFilter())
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)

	_, _, err = svc.ListAccountOrders(ctx, uuid.New(), shared.DefaultFilter())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

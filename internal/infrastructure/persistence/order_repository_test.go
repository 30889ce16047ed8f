package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezze/backend/internal/domain/shared/valueobject"
	"github.com/mezze/backend/internal/domain/trade"
)

func buildTestOrder(t *testing.T, sourceRef string, orderDate time.Time) *trade.Order {
	t.Helper()

	order, err := trade.NewOrder("mezze", sourceRef, uuid.New(), "Mamoun's Falafel", orderDate)
	require.NoError(t, err)

	_, err = order.AddLine(
		uuid.New(), "HUM-16", "Hummus 16oz", "CASE", "EACH",
		decimal.NewFromInt(3), decimal.NewFromInt(12),
		valueobject.NewMoneyUSD(decimal.NewFromFloat(42.50)),
	)
	require.NoError(t, err)

	return order
}

func TestGormOrderRepository_SaveAndFindBySourceRef(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	orderDate := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	order := buildTestOrder(t, "W03-17", orderDate)
	require.NoError(t, repo.Save(ctx, order))

	found, err := repo.FindBySourceRef(ctx, "mezze", "W03-17")
	require.NoError(t, err)
	require.NotNil(t, found)

	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, "Mamoun's Falafel", found.AccountName)
	require.Len(t, found.Lines, 1)
	assert.Equal(t, "HUM-16", found.Lines[0].ProductSKU)
	assert.True(t, found.Lines[0].BaseQuantity.Equal(decimal.NewFromInt(36)))
	assert.True(t, found.TotalAmount.Equal(decimal.NewFromFloat(127.50)))
}

func TestGormOrderRepository_FindBySourceRef_NeverSeen(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db)

	found, err := repo.FindBySourceRef(context.Background(), "mezze", "W99-01")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestGormOrderRepository_SaveReplacesLines(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	orderDate := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	order := buildTestOrder(t, "W03-17", orderDate)
	require.NoError(t, repo.Save(ctx, order))

	// An approved revision replaces the line set wholesale
	revision := buildTestOrder(t, "W03-17", orderDate)
	_, err := revision.AddLine(
		uuid.New(), "BAB-08", "Baba Ganoush 8oz", "CASE", "EACH",
		decimal.NewFromInt(2), decimal.NewFromInt(24),
		valueobject.NewMoneyUSD(decimal.NewFromFloat(36.00)),
	)
	require.NoError(t, err)

	stored, err := repo.FindBySourceRef(ctx, "mezze", "W03-17")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NoError(t, stored.ApplyRevision(revision))
	require.NoError(t, repo.Save(ctx, stored))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Len(t, found.Lines, 2)

	var total int64
	require.NoError(t, db.Table("order_lines").Count(&total).Error)
	assert.EqualValues(t, 2, total, "replaced lines must not linger")
}

func TestGormOrderRepository_DedupKeyIsUnique(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	orderDate := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, buildTestOrder(t, "W03-17", orderDate)))

	err := repo.Save(ctx, buildTestOrder(t, "W03-17", orderDate))
	require.Error(t, err, "same source record must never commit twice")
}

func TestGormOrderRepository_FindCommittedInPeriod(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	jan12 := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	jan19 := time.Date(2026, 1, 19, 0, 0, 0, 0, time.UTC)

	inside := buildTestOrder(t, "W03-17", jan12)
	require.NoError(t, repo.Save(ctx, inside))

	outside := buildTestOrder(t, "W04-03", jan19)
	require.NoError(t, repo.Save(ctx, outside))

	cancelled := buildTestOrder(t, "W03-18", jan12)
	require.NoError(t, cancelled.Cancel("duplicate entry"))
	require.NoError(t, repo.Save(ctx, cancelled))

	orders, err := repo.FindCommittedInPeriod(ctx, jan12, jan19)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "W03-17", orders[0].SourceRef)
}

func TestGormOrderRepository_CountByQuery(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	jan12 := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	order := buildTestOrder(t, "W03-17", jan12)
	require.NoError(t, repo.Save(ctx, order))

	count, err := repo.Count(ctx, trade.OrderQuery{SourceCode: "mezze"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = repo.Count(ctx, trade.OrderQuery{SourceCode: "gmail"})
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	exists, err := repo.ExistsBySourceRef(ctx, "mezze", "W03-17")
	require.NoError(t, err)
	assert.True(t, exists)
}

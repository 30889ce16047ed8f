package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezze/backend/internal/domain/partner"
	"github.com/mezze/backend/internal/domain/shared"
)

func TestGormAccountRepository_SaveAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	account, err := partner.NewAccount("ACC-0001", "Mamoun's Falafel")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, account))

	t.Run("by ID", func(t *testing.T) {
		found, err := repo.FindByID(ctx, account.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "Mamoun's Falafel", found.Name)
		assert.Equal(t, "ACC-0001", found.Code)
	})

	t.Run("by code is case-insensitive", func(t *testing.T) {
		found, err := repo.FindByCode(ctx, "acc-0001")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, account.ID, found.ID)
	})

	t.Run("by exact name", func(t *testing.T) {
		found, err := repo.FindByName(ctx, "Mamoun's Falafel")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, account.ID, found.ID)
	})
}

func TestGormAccountRepository_FindByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormAccountRepository(db)

	// Absence is a normal answer for the pipeline, not an error
	found, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestGormAccountRepository_NextCode(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	t.Run("starts at one on an empty store", func(t *testing.T) {
		code, err := repo.NextCode(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ACC-0001", code)
	})

	t.Run("advances past the highest code on file", func(t *testing.T) {
		for _, c := range []string{"ACC-0001", "ACC-0006"} {
			account, err := partner.NewAccount(c, "Account "+c)
			require.NoError(t, err)
			require.NoError(t, repo.Save(ctx, account))
		}

		code, err := repo.NextCode(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ACC-0007", code)
	})

	t.Run("ignores codes outside the sequence", func(t *testing.T) {
		manual, err := partner.NewAccount("LEGACY-9", "Manual Entry")
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, manual))

		code, err := repo.NextCode(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ACC-0007", code)
	})
}

func TestGormAccountRepository_DuplicateCode(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	first, err := partner.NewAccount("ACC-0001", "First")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))

	second, err := partner.NewAccount("ACC-0001", "Second")
	require.NoError(t, err)

	err = repo.Save(ctx, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvariantViolation)
}

func TestGormAccountRepository_FindActive(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormAccountRepository(db)
	ctx := context.Background()

	active, err := partner.NewAccount("ACC-0001", "Active One")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, active))

	inactive, err := partner.NewAccount("ACC-0002", "Closed One")
	require.NoError(t, err)
	require.NoError(t, inactive.Deactivate())
	require.NoError(t, repo.Save(ctx, inactive))

	accounts, err := repo.FindActive(ctx, shared.Filter{})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Active One", accounts[0].Name)
}

func TestGormAccountGroupRepository_DeleteClearsMembership(t *testing.T) {
	db := newTestDB(t)
	groups := NewGormAccountGroupRepository(db)
	accounts := NewGormAccountRepository(db)
	ctx := context.Background()

	group, err := partner.NewAccountGroup("CHAIN", "Falafel Chain")
	require.NoError(t, err)
	require.NoError(t, groups.Save(ctx, group))

	account, err := partner.NewAccount("ACC-0001", "Mamoun's Falafel")
	require.NoError(t, err)
	require.NoError(t, account.AssignGroup(group.ID))
	require.NoError(t, accounts.Save(ctx, account))

	require.NoError(t, groups.Delete(ctx, group.ID))

	found, err := accounts.FindByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Nil(t, found.GroupID, "member accounts keep running ungrouped")
}

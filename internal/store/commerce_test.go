package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalparedes/adalcore/internal/model"
)

func TestCreditPackCatalog(t *testing.T) {
	st := openTestStore(t)

	require.NoError(t, st.PutCreditPack(&model.CreditPack{
		Code: "mega", Name: "Mega Pack", PriceUSD: 19.99, Credits: 500, IsActive: true, SortOrder: 2,
	}))
	require.NoError(t, st.PutCreditPack(&model.CreditPack{
		Code: "basic", Name: "Basic Pack", PriceUSD: 4.99, Credits: 100, IsActive: true, SortOrder: 1,
	}))
	require.NoError(t, st.PutCreditPack(&model.CreditPack{
		Code: "legacy", Name: "Legacy", PriceUSD: 1.99, Credits: 10, IsActive: false, SortOrder: 0,
	}))

	pack, err := st.GetCreditPack("mega")
	require.NoError(t, err)
	assert.Equal(t, int64(500), pack.Credits)

	_, err = st.GetCreditPack("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Listing returns active packs only, in sort order.
	packs, err := st.ListCreditPacks()
	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, "basic", packs[0].Code)
	assert.Equal(t, "mega", packs[1].Code)
}

func TestRecordTransactionUpdatesBalance(t *testing.T) {
	st := openTestStore(t)

	balance, err := st.Balance("user-1")
	require.NoError(t, err)
	assert.Zero(t, balance)

	txn := func(delta int64) *model.CreditTransaction {
		return &model.CreditTransaction{
			ID:           uuid.Must(uuid.NewV7()).String(),
			UserID:       "user-1",
			PackCode:     "basic",
			CreditsDelta: delta,
			Status:       "success",
			CreatedAt:    time.Now(),
		}
	}

	balance, err = st.RecordTransaction(txn(100))
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	balance, err = st.RecordTransaction(txn(-30))
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)

	stored, err := st.Balance("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), stored)

	// Another user's ledger is untouched.
	other, err := st.Balance("user-2")
	require.NoError(t, err)
	assert.Zero(t, other)
}

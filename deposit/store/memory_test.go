package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/deposit-engine/deposit"
)

func record(principal int64) (deposit.InputRecord, deposit.ResultRecord) {
	now := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)
	in := deposit.InputRecord{
		Request: deposit.Request{
			CurrencyCode: "INR",
			Principal:    decimal.NewFromInt(principal),
			TenureValue:  12,
			TenureUnit:   deposit.TenureMonths,
			InterestType: deposit.InterestSimple,
			Cumulative:   true,
			ProductCode:  "FD001",
		},
		CreatedAt: now,
	}
	out := deposit.ResultRecord{
		MaturityValue: decimal.NewFromInt(principal).Mul(decimal.RequireFromString("1.076")),
		MaturityDate:  now.AddDate(1, 0, 0),
		CreatedAt:     now,
	}
	return in, out
}

func TestMemory_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	in, out := record(100000)
	calcID, resultID, err := m.SaveCalculation(ctx, in, out)
	require.NoError(t, err)
	assert.Equal(t, int64(1), calcID)
	assert.Equal(t, int64(1), resultID)

	gotIn, gotOut, err := m.GetCalculation(ctx, calcID)
	require.NoError(t, err)
	require.NotNil(t, gotIn)
	require.NotNil(t, gotOut)
	assert.Equal(t, calcID, gotIn.ID)
	assert.Equal(t, calcID, gotOut.InputID)
	assert.Equal(t, "107600", gotOut.MaturityValue.String())

	gotIn, gotOut, err = m.GetCalculation(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, gotIn)
	assert.Nil(t, gotOut)
}

func TestMemory_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	for _, p := range []int64{10000, 20000, 30000} {
		in, out := record(p)
		_, _, err := m.SaveCalculation(ctx, in, out)
		require.NoError(t, err)
	}

	records, err := m.ListCalculations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(3), records[0].Input.ID)
	assert.Equal(t, int64(2), records[1].Input.ID)

	all, err := m.ListCalculations(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, 3, m.Count())
}

func TestMemory_UpsertCategory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	created, err := m.UpsertCategory(ctx, deposit.Category{Code: "SR", AdditionalPercentage: decimal.RequireFromString("0.75")})
	require.NoError(t, err)
	assert.True(t, created)
	created, err = m.UpsertCategory(ctx, deposit.Category{Code: "GOLD", AdditionalPercentage: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.UpsertCategory(ctx, deposit.Category{Code: "SR", AdditionalPercentage: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.False(t, created)

	categories, err := m.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "GOLD", categories[0].Code)
	assert.Equal(t, "SR", categories[1].Code)
	assert.Equal(t, int64(1), categories[1].ID)
	assert.Equal(t, "1", categories[1].AdditionalPercentage.String())
}

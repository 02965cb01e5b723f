package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/deposit-engine/deposit"
	"github.com/warp/deposit-engine/ratecache"
	"github.com/warp/deposit-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var created = time.Date(2025, time.January, 15, 9, 30, 0, 0, time.UTC)

func cumulativeRecords() (deposit.InputRecord, deposit.ResultRecord) {
	in := deposit.InputRecord{
		Request: deposit.Request{
			CurrencyCode:         "INR",
			Principal:            decimal.NewFromInt(100000),
			TenureValue:          12,
			TenureUnit:           deposit.TenureMonths,
			InterestType:         deposit.InterestCompound,
			CompoundingFrequency: deposit.FrequencyYearly,
			Category1:            "SR",
			Cumulative:           true,
			ProductCode:          "FD001",
		},
		CreatedAt: created,
	}
	out := deposit.ResultRecord{
		MaturityValue: decimal.RequireFromString("110000.00"),
		MaturityDate:  time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC),
		APY:           decimal.RequireFromString("10.0000"),
		EffectiveRate: decimal.RequireFromString("10.0000"),
		CreatedAt:     created,
	}
	return in, out
}

// =============================================================================
// CALCULATION STORE TESTS
// =============================================================================

func TestSaveCalculation_RoundTrip(t *testing.T) {
	// GIVEN: A cumulative calculation
	// WHEN: It is saved and loaded by calc id
	// THEN: Every field survives the round trip

	store := newTestStore(t)
	ctx := context.Background()

	in, out := cumulativeRecords()
	calcID, resultID, err := store.SaveCalculation(ctx, in, out)
	require.NoError(t, err)
	assert.Positive(t, calcID)
	assert.Positive(t, resultID)

	gotIn, gotOut, err := store.GetCalculation(ctx, calcID)
	require.NoError(t, err)
	require.NotNil(t, gotIn)
	require.NotNil(t, gotOut)

	assert.Equal(t, calcID, gotIn.ID)
	assert.Equal(t, resultID, gotOut.ID)
	assert.Equal(t, calcID, gotOut.InputID)
	assert.Equal(t, "INR", gotIn.Request.CurrencyCode)
	assert.True(t, gotIn.Request.Principal.Equal(decimal.NewFromInt(100000)))
	assert.Equal(t, deposit.TenureMonths, gotIn.Request.TenureUnit)
	assert.Equal(t, deposit.FrequencyYearly, gotIn.Request.CompoundingFrequency)
	assert.Equal(t, "SR", gotIn.Request.Category1)
	assert.Empty(t, gotIn.Request.Category2)
	assert.True(t, gotIn.Request.Cumulative)
	assert.True(t, gotIn.CreatedAt.Equal(created))

	assert.Equal(t, "110000.00", gotOut.MaturityValue.StringFixed(2))
	assert.True(t, gotOut.MaturityDate.Equal(out.MaturityDate))
	assert.Nil(t, gotOut.PayoutFrequency)
	assert.Nil(t, gotOut.PayoutAmount)
}

func TestSaveCalculation_NonCumulativePayout(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in, out := cumulativeRecords()
	in.Request.Cumulative = false
	in.Request.PayoutFrequency = deposit.FrequencyYearly
	freq := deposit.FrequencyYearly
	payout := decimal.RequireFromString("5190.64")
	out.PayoutFrequency = &freq
	out.PayoutAmount = &payout

	calcID, _, err := store.SaveCalculation(ctx, in, out)
	require.NoError(t, err)

	_, gotOut, err := store.GetCalculation(ctx, calcID)
	require.NoError(t, err)
	require.NotNil(t, gotOut.PayoutFrequency)
	assert.Equal(t, deposit.FrequencyYearly, *gotOut.PayoutFrequency)
	require.NotNil(t, gotOut.PayoutAmount)
	assert.Equal(t, "5190.64", gotOut.PayoutAmount.String())
}

func TestGetCalculation_Missing(t *testing.T) {
	store := newTestStore(t)

	in, out, err := store.GetCalculation(context.Background(), 42)
	require.NoError(t, err)
	assert.Nil(t, in)
	assert.Nil(t, out)
}

func TestListCalculations_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		in, out := cumulativeRecords()
		in.Request.TenureValue = 12 + i
		id, _, err := store.SaveCalculation(ctx, in, out)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	records, err := store.ListCalculations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, ids[2], records[0].Input.ID)
	assert.Equal(t, ids[1], records[1].Input.ID)

	all, err := store.ListCalculations(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// =============================================================================
// RATE CACHE TESTS
// =============================================================================

func TestRateCacheEntries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.GetEntry(ctx, "FD001")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, store.PutEntry(ctx, ratecache.Entry{
		ProductCode: "FD001", BaseRate: decimal.RequireFromString("7.6"), LastUpdated: created,
	}))
	later := created.Add(25 * time.Hour)
	require.NoError(t, store.PutEntry(ctx, ratecache.Entry{
		ProductCode: "FD001", BaseRate: decimal.RequireFromString("7.75"), LastUpdated: later,
	}))

	got, err := store.GetEntry(ctx, "FD001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "7.75", got.BaseRate.String())
	assert.True(t, got.LastUpdated.Equal(later))
}

// =============================================================================
// CATEGORY TESTS
// =============================================================================

func TestUpsertCategory_KeyedByCode(t *testing.T) {
	// GIVEN: A stored SR category
	// WHEN: SR is upserted again with a new percentage
	// THEN: The row is updated in place, not duplicated

	store := newTestStore(t)
	ctx := context.Background()

	isNew, err := store.UpsertCategory(ctx, deposit.Category{
		Code: "SR", Name: "Senior Citizen Benefit", AdditionalPercentage: decimal.RequireFromString("0.5"), ProductCode: "FD001",
	})
	require.NoError(t, err)
	assert.True(t, isNew)

	_, err = store.UpsertCategory(ctx, deposit.Category{
		Code: "GOLD", Name: "Gold Members Benefit", AdditionalPercentage: decimal.NewFromInt(1), ProductCode: "FD001",
	})
	require.NoError(t, err)

	isNew, err = store.UpsertCategory(ctx, deposit.Category{
		Code: "SR", Name: "Senior Citizen Benefit", AdditionalPercentage: decimal.RequireFromString("0.75"), ProductCode: "FD001",
	})
	require.NoError(t, err)
	assert.False(t, isNew)

	categories, err := store.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "GOLD", categories[0].Code)
	assert.Equal(t, "SR", categories[1].Code)
	assert.Equal(t, "0.75", categories[1].AdditionalPercentage.String())
}

func TestReset(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	in, out := cumulativeRecords()
	calcID, _, err := store.SaveCalculation(ctx, in, out)
	require.NoError(t, err)

	require.NoError(t, store.Reset(ctx))

	gotIn, _, err := store.GetCalculation(ctx, calcID)
	require.NoError(t, err)
	assert.Nil(t, gotIn)
}

// =============================================================================
// CORRUPT ROW TESTS
// =============================================================================

// newFileStore opens a store on disk plus a second raw connection to it.
func newFileStore(t *testing.T) (*sqlite.Store, *sql.DB) {
	path := filepath.Join(t.TempDir(), "deposits.db")
	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	raw, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return store, raw
}

func TestGetCalculation_CorruptRow(t *testing.T) {
	tests := []struct {
		name   string
		update string
	}{
		{"maturity value", "UPDATE calculation_results SET maturity_value = 'abc'"},
		{"maturity date", "UPDATE calculation_results SET maturity_date = '15/01/2026'"},
		{"principal", "UPDATE calculation_inputs SET principal = ''"},
		{"created at", "UPDATE calculation_inputs SET created_at = 'yesterday'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN: A stored calculation with one column overwritten
			store, raw := newFileStore(t)
			ctx := context.Background()
			in, out := cumulativeRecords()
			calcID, _, err := store.SaveCalculation(ctx, in, out)
			require.NoError(t, err)
			_, err = raw.ExecContext(ctx, tt.update)
			require.NoError(t, err)

			// WHEN: It is read back
			_, _, getErr := store.GetCalculation(ctx, calcID)
			_, listErr := store.ListCalculations(ctx, 0)

			// THEN: Both reads fail instead of returning zero values
			assert.Error(t, getErr)
			assert.Error(t, listErr)
		})
	}
}

func TestGetEntry_CorruptRow(t *testing.T) {
	store, raw := newFileStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutEntry(ctx, ratecache.Entry{
		ProductCode: "FD001", BaseRate: decimal.RequireFromString("7.6"), LastUpdated: created,
	}))

	_, err := raw.ExecContext(ctx, "UPDATE rate_cache SET base_rate = 'n/a'")
	require.NoError(t, err)
	_, err = store.GetEntry(ctx, "FD001")
	assert.Error(t, err)

	_, err = raw.ExecContext(ctx, "UPDATE rate_cache SET base_rate = '7.6', last_updated = ''")
	require.NoError(t, err)
	_, err = store.GetEntry(ctx, "FD001")
	assert.Error(t, err)
}

func TestListCategories_CorruptRow(t *testing.T) {
	store, raw := newFileStore(t)
	ctx := context.Background()
	_, err := store.UpsertCategory(ctx, deposit.Category{
		Code: "SR", Name: "Senior Citizen Benefit", AdditionalPercentage: decimal.RequireFromString("0.75"), ProductCode: "FD001",
	})
	require.NoError(t, err)

	_, err = raw.ExecContext(ctx, "UPDATE categories SET additional_percentage = 'three quarters'")
	require.NoError(t, err)

	_, err = store.ListCategories(ctx)
	assert.Error(t, err)
}

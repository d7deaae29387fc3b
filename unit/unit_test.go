package unit

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCentsPerSatFromUSDPerBTC(t *testing.T) {
	r := CentsPerSatFromUSDPerBTC(decimal.NewFromInt(50_000))
	assert.Equal(t, "0.05", r.String())

	r = CentsPerSatFromCentsPerBTC(decimal.NewFromInt(50_000))
	assert.Equal(t, "0.0005", r.String())
}

func TestSatsToCentsTruncates(t *testing.T) {
	rate, err := ParseCentsPerSat("0.0005055")
	require.NoError(t, err)

	cases := []struct {
		sats Sats
		want UsdCents
	}{
		{100_000_000, 50550},
		{1, 0},
		// 1978 * 0.0005055 = 0.999879
		{1978, 0},
		{1979, 1},
		// negative amounts truncate toward zero too
		{-1979, -1},
	}
	for _, tc := range cases {
		got, err := tc.sats.ToCents(rate)
		require.NoError(t, err, tc.sats)
		assert.Equal(t, tc.want, got, tc.sats)
	}
}

func TestCentsToSatsTruncates(t *testing.T) {
	rate, err := ParseCentsPerSat("0.0005")
	require.NoError(t, err)
	third, err := ParseCentsPerSat("3")
	require.NoError(t, err)
	one := decimal.NewFromInt(1)

	cases := []struct {
		cents UsdCents
		rate  CentsPerSat
		adj   decimal.Decimal
		want  Sats
	}{
		{1, rate, one, 2000},
		{1, rate, decimal.RequireFromString("0.989"), 1978},
		{1, rate, decimal.RequireFromString("1.011"), 2022},
		{10, third, one, 3},
		{-10, third, one, -3},
	}
	for _, tc := range cases {
		got, err := tc.cents.ToSats(tc.rate, tc.adj)
		require.NoError(t, err, tc.cents)
		assert.Equal(t, tc.want, got, tc.cents)
	}
}

func TestCentsToSatsZeroRate(t *testing.T) {
	got, err := UsdCents(100).ToSats(CentsPerSat{}, decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, Sats(0), got)
}

func TestConversionOutOfRange(t *testing.T) {
	rate, err := ParseCentsPerSat("0.0005")
	require.NoError(t, err)

	// 1e17 cents / 0.0005 = 2e20 sats, beyond int64
	_, err = UsdCents(100_000_000_000_000_000).ToSats(rate, decimal.RequireFromString("1.011"))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)
	_, err = UsdCents(-100_000_000_000_000_000).ToSats(rate, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	big, err := ParseCentsPerSat("1000")
	require.NoError(t, err)
	_, err = Sats(math.MaxInt64).ToCents(big)
	assert.ErrorIs(t, err, ErrAmountOutOfRange)

	// boundary: exactly MaxInt64 fits
	got, err := Sats(math.MaxInt64).ToCents(NewCentsPerSat(decimal.NewFromInt(1)))
	require.NoError(t, err)
	assert.Equal(t, UsdCents(math.MaxInt64), got)
}

func TestCentsPerSatJSON(t *testing.T) {
	var r CentsPerSat
	require.NoError(t, r.UnmarshalJSON([]byte(`"0.0005"`)))
	assert.True(t, r.Equal(NewCentsPerSat(decimal.RequireFromString("0.0005"))))
	b, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"0.0005"`, string(b))
}

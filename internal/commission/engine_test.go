package commission

import (
	"github.com/Fuonder/marketledger.git/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"math/rand"
	"testing"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompute(t *testing.T) {
	tests := []struct {
		name         string
		total        string
		percent      string
		split        models.SplitName
		wantTotal    string
		wantReferrer string
		wantPlatform string
	}{
		{"ten thousand at ten percent", "10000", "10", models.SplitDefault, "1000", "450", "550"},
		{"empty split falls back to default", "10000", "10", "", "1000", "450", "550"},
		{"partner share page", "10000", "10", models.SplitPartnerShare, "1000", "400", "600"},
		{"half cent rounds up for the referrer", "3.33", "50", models.SplitDefault, "1.67", "0.75", "0.92"},
		{"minimum partner percent", "999.99", "2", models.SplitDefault, "20", "9", "11"},
		{"full percent", "0.01", "100", models.SplitDefault, "0.01", "0", "0.01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(d(tt.total), d(tt.percent), tt.split)
			require.NoError(t, err)
			assert.True(t, d(tt.wantTotal).Equal(got.TotalCommission), "total %s", got.TotalCommission)
			assert.True(t, d(tt.wantReferrer).Equal(got.ReferrerShare), "referrer %s", got.ReferrerShare)
			assert.True(t, d(tt.wantPlatform).Equal(got.PlatformShare), "platform %s", got.PlatformShare)
		})
	}
}

func TestCompute_Errors(t *testing.T) {
	_, err := Compute(d("100"), d("1.99"), models.SplitDefault)
	assert.ErrorIs(t, err, models.ErrNotPartnerProduct)

	_, err = Compute(d("100"), d("100.01"), models.SplitDefault)
	assert.ErrorIs(t, err, models.ErrInvalidPercent)

	_, err = Compute(d("0"), d("10"), models.SplitDefault)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = Compute(d("100.005"), d("10"), models.SplitDefault)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = Compute(d("1000000000000"), d("10"), models.SplitDefault)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)

	_, err = Compute(d("100"), d("10"), models.SplitName("vip"))
	assert.ErrorIs(t, err, models.ErrInvalidOrder)
}

func TestCompute_SharesSumExactly(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		total := decimal.New(rnd.Int63n(100_000_000)+1, -2)
		percent := decimal.New(rnd.Int63n(9801)+200, -2)
		for _, split := range []models.SplitName{models.SplitDefault, models.SplitPartnerShare} {
			got, err := Compute(total, percent, split)
			require.NoError(t, err)

			want := models.Round2(total.Mul(percent).Div(decimal.NewFromInt(100)))
			assert.True(t, got.ReferrerShare.Add(got.PlatformShare).Equal(want),
				"total=%s percent=%s split=%s", total, percent, split)
			assert.False(t, got.ReferrerShare.IsNegative())
			assert.False(t, got.PlatformShare.IsNegative())
			assert.True(t, got.ReferrerShare.Equal(got.ReferrerShare.Round(2)))
		}
	}
}

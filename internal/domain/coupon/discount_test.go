package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		discount Discount
		subtotal int64
		want     int64
	}{
		{
			name:     "percentage",
			discount: Percentage{Value: decimal.NewFromInt(10)},
			subtotal: 100_000,
			want:     10_000,
		},
		{
			name:     "percentage rounds half up",
			discount: Percentage{Value: decimal.NewFromFloat(12.5)},
			subtotal: 999,
			// 999 × 0.125 = 124.875 → 125
			want: 125,
		},
		{
			name:     "percentage capped by maximum discount",
			discount: Percentage{Value: decimal.NewFromInt(10), MaxDiscount: 50_000},
			subtotal: 600_000,
			want:     50_000,
		},
		{
			name:     "percentage under the cap is not touched",
			discount: Percentage{Value: decimal.NewFromInt(10), MaxDiscount: 50_000},
			subtotal: 400_000,
			want:     40_000,
		},
		{
			name:     "hundred percent takes the whole subtotal",
			discount: Percentage{Value: decimal.NewFromInt(100)},
			subtotal: 42_000,
			want:     42_000,
		},
		{
			name:     "fixed",
			discount: Fixed{Value: 20_000},
			subtotal: 100_000,
			want:     20_000,
		},
		{
			name:     "fixed larger than subtotal clamps to subtotal",
			discount: Fixed{Value: 20_000},
			subtotal: 15_000,
			want:     15_000,
		},
		{
			name:     "zero subtotal yields zero discount",
			discount: Fixed{Value: 20_000},
			subtotal: 0,
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.discount, tt.subtotal))
		})
	}
}
